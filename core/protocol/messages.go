package protocol

import (
	"encoding/json"

	"github.com/safih1/policedispatch/core/model"
)

// Envelope is the outer frame of every inbound message.
type Envelope struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound is implemented by every decoded inbound payload.
type Inbound interface {
	Kind() Kind
}

// NewEmergency announces an emergency raised by a citizen.
type NewEmergency struct {
	AlertID     ID                 `json:"alert_id" validate:"required"`
	Location    string             `json:"location"`
	Timestamp   Timestamp          `json:"timestamp"`
	Coordinates *model.Coordinates `json:"coordinates"`
	UserID      *ID                `json:"user_id"`
	UserName    string             `json:"user_name"`
}

func (NewEmergency) Kind() Kind { return KindNewEmergency }

// Emergency converts the payload to a pending emergency record.
func (m NewEmergency) Emergency() model.Emergency {
	e := model.Emergency{
		ID:          model.EmergencyID(m.AlertID.Int64()),
		AlertID:     m.AlertID.Int64(),
		Location:    m.Location,
		Timestamp:   m.Timestamp.Time,
		Coordinates: m.Coordinates,
		UserName:    m.UserName,
		Status:      model.StatusPending,
	}
	if m.UserID != nil {
		uid := m.UserID.Int64()
		e.UserID = &uid
	}
	return e
}

// OfficerLocationUpdate is broadcast by the backend whenever an officer
// reports a new position.
type OfficerLocationUpdate struct {
	OfficerID   ID                 `json:"officer_id" validate:"required"`
	BadgeNumber string             `json:"badge_number"`
	Name        string             `json:"name"`
	Status      string             `json:"status"`
	Coordinates *model.Coordinates `json:"coordinates" validate:"required"`
	Timestamp   Timestamp          `json:"timestamp"`
}

func (OfficerLocationUpdate) Kind() Kind { return KindOfficerLocationUpdate }

// TaskStatusUpdate carries a backend status change for an emergency, keyed by
// the backend alert id.
type TaskStatusUpdate struct {
	EmergencyID ID     `json:"emergency_id" validate:"required"`
	Status      string `json:"status" validate:"required"`
}

func (TaskStatusUpdate) Kind() Kind { return KindTaskStatusUpdate }

// ThreatResolved reports that the reporter cancelled the emergency.
type ThreatResolved struct {
	UserID ID     `json:"user_id" validate:"required"`
	Reason string `json:"reason"`
}

func (ThreatResolved) Kind() Kind { return KindThreatResolved }

// AcceptEmergency tells the backend the local officer is responding.
type AcceptEmergency struct {
	Type              Kind              `json:"type"`
	UserID            *int64            `json:"user_id"`
	AlertID           int64             `json:"alert_id"`
	PoliceCoordinates model.Coordinates `json:"police_coordinates"`
}

// NewAcceptEmergency builds the accept command for e.
func NewAcceptEmergency(e model.Emergency, pos model.Coordinates) AcceptEmergency {
	return AcceptEmergency{Type: KindAcceptEmergency, UserID: e.UserID, AlertID: e.AlertID, PoliceCoordinates: pos}
}

// LocationUpdate is the periodic position push of a responding officer.
type LocationUpdate struct {
	Type        Kind              `json:"type"`
	UserID      *int64            `json:"user_id"`
	Coordinates model.Coordinates `json:"coordinates"`
	ETA         int               `json:"eta"`
}

// NewLocationUpdate builds a telemetry frame addressed to the reporter of e.
func NewLocationUpdate(e model.Emergency, pos model.Coordinates, eta int) LocationUpdate {
	return LocationUpdate{Type: KindLocationUpdate, UserID: e.UserID, Coordinates: pos, ETA: eta}
}

// ResolveEmergency closes the emergency for the reporter.
type ResolveEmergency struct {
	Type   Kind  `json:"type"`
	UserID int64 `json:"user_id"`
}

func NewResolveEmergency(userID int64) ResolveEmergency {
	return ResolveEmergency{Type: KindResolveEmergency, UserID: userID}
}
