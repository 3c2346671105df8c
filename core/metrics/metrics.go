package metrics

import "time"

// LifecycleEvent is one emergency transition to be recorded.
type LifecycleEvent struct {
	Kind        string
	EmergencyID string
	AlertID     int64
	Status      string
	OfficerID   *int64
	DistanceKm  float64
	Source      string
	Time        time.Time
}

// MetricsSink records emergency lifecycle transitions.
type MetricsSink interface {
	RecordLifecycle(ev LifecycleEvent) error
}

// NoticeEvent is an operator notice, typically a failure.
type NoticeEvent struct {
	Kind        string
	EmergencyID string
	Error       string
	Time        time.Time
}

// NoticeRecorder records operator notices.
type NoticeRecorder interface {
	RecordNotice(ev NoticeEvent) error
}

// OfficerLocationEvent is a position broadcast for one officer.
type OfficerLocationEvent struct {
	OfficerID int64
	Name      string
	Status    string
	Lat       float64
	Lng       float64
	Time      time.Time
}

// OfficerLocationRecorder records officer positions.
type OfficerLocationRecorder interface {
	RecordOfficerLocation(ev OfficerLocationEvent) error
}

// ConnectionEvent is a state change of the backend channel.
type ConnectionEvent struct {
	State string
	Error string
	Time  time.Time
}

// ConnectionRecorder records channel state changes.
type ConnectionRecorder interface {
	RecordConnection(ev ConnectionEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordLifecycle(LifecycleEvent) error             { return nil }
func (NopSink) RecordNotice(NoticeEvent) error                   { return nil }
func (NopSink) RecordOfficerLocation(OfficerLocationEvent) error { return nil }
func (NopSink) RecordConnection(ConnectionEvent) error           { return nil }
