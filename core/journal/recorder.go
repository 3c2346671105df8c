package journal

import (
	"context"

	"github.com/google/uuid"

	"github.com/safih1/policedispatch/core/events"
	"github.com/safih1/policedispatch/core/logger"
	"github.com/safih1/policedispatch/internal/eventbus"
)

// FromEvent converts a lifecycle event to a journal record.
func FromEvent(ev events.LifecycleEvent) Record {
	r := Record{
		ID:          uuid.NewString(),
		Timestamp:   ev.Time,
		Kind:        ev.Kind,
		EmergencyID: ev.Emergency.ID,
		AlertID:     ev.Emergency.AlertID,
		Status:      string(ev.Emergency.Status),
		Location:    ev.Emergency.Location,
		UserID:      ev.Emergency.UserID,
		Source:      ev.Source,
		Reason:      ev.Reason,
	}
	if ev.Officer != nil {
		id := ev.Officer.ID
		r.OfficerID = &id
		r.DistanceKm = ev.Officer.DistanceKm
	}
	return r
}

// StartRecorder appends every lifecycle event published on bus until ctx is
// done. It subscribes before returning and records in its own goroutine.
// Duplicates are not journaled.
func StartRecorder(ctx context.Context, bus eventbus.EventBus, store Store, log logger.Logger) {
	log = logger.OrNop(log)
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case ev, ok := <-sub:
				if !ok {
					return
				}
				le, ok := ev.(events.LifecycleEvent)
				if !ok || le.Kind == events.Duplicate {
					continue
				}
				if err := store.Append(ctx, FromEvent(le)); err != nil {
					log.Errorf("journal: append %s %s: %v", le.Kind, le.Emergency.ID, err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
