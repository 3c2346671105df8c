package events

import "time"

// NoticeKind classifies operator notices.
type NoticeKind string

const (
	NoticeNoOfficers          NoticeKind = "no_officers"
	NoticeAvailabilityFailed  NoticeKind = "availability_failed"
	NoticeAssignmentFailed    NoticeKind = "assignment_failed"
	NoticeOfficerAssigned     NoticeKind = "officer_assigned"
	NoticeLocationUnavailable NoticeKind = "location_unavailable"
	NoticeConnectionFailed    NoticeKind = "connection_failed"
	NoticeDeclineUnreported   NoticeKind = "decline_unreported"
)

// Notice is a user-visible message. Every notice leaves the session in a
// resumable state.
type Notice struct {
	Kind        NoticeKind `json:"kind"`
	EmergencyID string     `json:"emergency_id,omitempty"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Err         error      `json:"-"`
	Time        time.Time  `json:"time"`
}
