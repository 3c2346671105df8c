package coordinator

import (
	"errors"

	"github.com/safih1/policedispatch/core/dispatch"
	"github.com/safih1/policedispatch/core/emergency"
	"github.com/safih1/policedispatch/core/location"
)

var (
	ErrNotFound            = emergency.ErrNotFound
	ErrNotPending          = dispatch.ErrNotPending
	ErrLocationUnavailable = location.ErrUnavailable
	// ErrAlreadyResponding rejects an accept while another emergency is active.
	ErrAlreadyResponding = errors.New("officer is already responding to an emergency")
	// ErrNotResponding rejects resolve and on-scene without an active emergency.
	ErrNotResponding = errors.New("officer is not responding to an emergency")
)
