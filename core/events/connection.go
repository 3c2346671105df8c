package events

import (
	"time"

	"github.com/safih1/policedispatch/core/model"
	"github.com/safih1/policedispatch/core/transport"
)

// ConnectionEvent is published when the police channel changes state.
type ConnectionEvent struct {
	State transport.State
	Err   error
	Time  time.Time
}

// OfficerLocationEvent mirrors an officer_location_update broadcast.
type OfficerLocationEvent struct {
	OfficerID   int64
	Name        string
	Status      string
	Coordinates model.Coordinates
	Time        time.Time
}
