package model

import (
	"strconv"
	"time"
)

// EmergencyStatus is the lifecycle state of an emergency. Statuses other than
// the three known values are carried through as reported by the backend.
type EmergencyStatus string

const (
	StatusPending  EmergencyStatus = "pending"
	StatusAssigned EmergencyStatus = "assigned"
	StatusResolved EmergencyStatus = "resolved"
)

// Rank orders statuses for monotonic transitions. Unknown statuses rank with
// pending.
func (s EmergencyStatus) Rank() int {
	switch s {
	case StatusAssigned:
		return 1
	case StatusResolved:
		return 2
	default:
		return 0
	}
}

// Known reports whether s is one of pending, assigned or resolved.
func (s EmergencyStatus) Known() bool {
	return s == StatusPending || s == StatusAssigned || s == StatusResolved
}

// Emergency is one active incident reported by a citizen.
type Emergency struct {
	ID          string          `json:"id"`
	AlertID     int64           `json:"alert_id"`
	Location    string          `json:"location"`
	Coordinates *Coordinates    `json:"coordinates,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	UserID      *int64          `json:"user_id,omitempty"`
	UserName    string          `json:"user_name,omitempty"`
	Status      EmergencyStatus `json:"status"`
}

// EmergencyID derives the stable external identifier from a backend alert id.
func EmergencyID(alertID int64) string {
	return "E-" + strconv.FormatInt(alertID, 10)
}

// HasUser reports whether the emergency carries a reporter identity.
func (e Emergency) HasUser() bool { return e.UserID != nil }

// Matcher selects a stored emergency by one of its correlation keys. Different
// inbound messages carry different identifiers, so any non-empty key may match.
type Matcher struct {
	ID      string
	AlertID *int64
	UserID  *int64
}

// ByID matches on the external identifier.
func ByID(id string) Matcher { return Matcher{ID: id} }

// ByAlertID matches on the backend alert identifier.
func ByAlertID(id int64) Matcher { return Matcher{AlertID: &id} }

// ByUserID matches on the reporter identity.
func ByUserID(id int64) Matcher { return Matcher{UserID: &id} }

// Match reports whether e satisfies any key set on m.
func (m Matcher) Match(e Emergency) bool {
	if m.ID != "" && e.ID == m.ID {
		return true
	}
	if m.AlertID != nil && e.AlertID == *m.AlertID {
		return true
	}
	if m.UserID != nil && e.UserID != nil && *e.UserID == *m.UserID {
		return true
	}
	return false
}

// Empty reports whether no key is set.
func (m Matcher) Empty() bool { return m.ID == "" && m.AlertID == nil && m.UserID == nil }
