package metrics

import (
	"context"

	"github.com/safih1/policedispatch/core/events"
	coremetrics "github.com/safih1/policedispatch/core/metrics"
	"github.com/safih1/policedispatch/infra/logger"
	"github.com/safih1/policedispatch/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("record %T: %v", ev, err)
				}
			}
		}
	}()
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.LifecycleEvent:
		return sink.RecordLifecycle(lifecycleEvent(e))
	case events.Notice:
		if r, ok := sink.(coremetrics.NoticeRecorder); ok {
			n := coremetrics.NoticeEvent{Kind: string(e.Kind), EmergencyID: e.EmergencyID, Time: e.Time}
			if e.Err != nil {
				n.Error = e.Err.Error()
			}
			return r.RecordNotice(n)
		}
	case events.OfficerLocationEvent:
		if r, ok := sink.(coremetrics.OfficerLocationRecorder); ok {
			return r.RecordOfficerLocation(coremetrics.OfficerLocationEvent{
				OfficerID: e.OfficerID,
				Name:      e.Name,
				Status:    e.Status,
				Lat:       e.Coordinates.Lat,
				Lng:       e.Coordinates.Lng,
				Time:      e.Time,
			})
		}
	case events.ConnectionEvent:
		if r, ok := sink.(coremetrics.ConnectionRecorder); ok {
			c := coremetrics.ConnectionEvent{State: string(e.State), Time: e.Time}
			if e.Err != nil {
				c.Error = e.Err.Error()
			}
			return r.RecordConnection(c)
		}
	}
	return nil
}

func lifecycleEvent(e events.LifecycleEvent) coremetrics.LifecycleEvent {
	out := coremetrics.LifecycleEvent{
		Kind:        string(e.Kind),
		EmergencyID: e.Emergency.ID,
		AlertID:     e.Emergency.AlertID,
		Status:      string(e.Emergency.Status),
		Source:      e.Source,
		Time:        e.Time,
	}
	if e.Officer != nil {
		id := e.Officer.ID
		out.OfficerID = &id
		out.DistanceKm = e.Officer.DistanceKm
	}
	return out
}
