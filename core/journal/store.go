// Package journal keeps an append-only audit trail of emergency lifecycle
// transitions. It is never replayed into session state.
package journal

import (
	"context"
	"time"

	"github.com/safih1/policedispatch/core/events"
)

// Record captures one lifecycle transition.
type Record struct {
	ID          string               `json:"id"`
	Timestamp   time.Time            `json:"timestamp"`
	Kind        events.LifecycleKind `json:"kind"`
	EmergencyID string               `json:"emergency_id"`
	AlertID     int64                `json:"alert_id"`
	Status      string               `json:"status"`
	Location    string               `json:"location,omitempty"`
	UserID      *int64               `json:"user_id,omitempty"`
	OfficerID   *int64               `json:"officer_id,omitempty"`
	DistanceKm  float64              `json:"distance_km,omitempty"`
	Source      string               `json:"source,omitempty"`
	Reason      string               `json:"reason,omitempty"`
}

// Query defines filters for retrieving records. Zero values match all.
type Query struct {
	Start       time.Time
	End         time.Time
	EmergencyID string
	Kind        events.LifecycleKind
}

// Match reports whether r passes every filter set on q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.EmergencyID != "" && r.EmergencyID != q.EmergencyID {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
