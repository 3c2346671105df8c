package events

import (
	"time"

	"github.com/safih1/policedispatch/core/model"
)

// LifecycleKind names a transition of an emergency.
type LifecycleKind string

const (
	Received      LifecycleKind = "received"
	Duplicate     LifecycleKind = "duplicate"
	Assigned      LifecycleKind = "assigned"
	Accepted      LifecycleKind = "accepted"
	Declined      LifecycleKind = "declined"
	StatusChanged LifecycleKind = "status_changed"
	Resolved      LifecycleKind = "resolved"
	Removed       LifecycleKind = "removed"
)

// Sources of a transition.
const (
	SourceBackend  = "backend"
	SourceAuto     = "auto"
	SourceOperator = "operator"
)

// LifecycleEvent is published for every store mutation.
type LifecycleEvent struct {
	Kind      LifecycleKind
	Emergency model.Emergency
	Officer   *model.Officer
	// Source is one of SourceBackend, SourceAuto or SourceOperator.
	Source string
	Reason string
	Time   time.Time
}
