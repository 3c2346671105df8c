package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/safih1/policedispatch/core/events"
	coremqtt "github.com/safih1/policedispatch/core/mqtt"
	"github.com/safih1/policedispatch/infra/logger"
	"github.com/safih1/policedispatch/internal/eventbus"
)

// lifecycleMessage is the JSON body mirrored for every lifecycle event.
type lifecycleMessage struct {
	Kind        string    `json:"kind"`
	EmergencyID string    `json:"emergency_id"`
	AlertID     int64     `json:"alert_id"`
	Status      string    `json:"status"`
	Location    string    `json:"location,omitempty"`
	OfficerID   *int64    `json:"officer_id,omitempty"`
	DistanceKm  float64   `json:"distance_km,omitempty"`
	Source      string    `json:"source,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Time        time.Time `json:"time"`
}

type noticeMessage struct {
	Kind        string    `json:"kind"`
	EmergencyID string    `json:"emergency_id,omitempty"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Error       string    `json:"error,omitempty"`
	Time        time.Time `json:"time"`
}

type officerMessage struct {
	OfficerID int64     `json:"officer_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Time      time.Time `json:"time"`
}

// Route maps a bus event to its topic and payload. ok is false for events
// that are not mirrored.
func Route(prefix string, ev eventbus.Event) (topic string, retained bool, payload any, ok bool) {
	switch e := ev.(type) {
	case events.LifecycleEvent:
		if e.Kind == events.Duplicate {
			return "", false, nil, false
		}
		m := lifecycleMessage{
			Kind:        string(e.Kind),
			EmergencyID: e.Emergency.ID,
			AlertID:     e.Emergency.AlertID,
			Status:      string(e.Emergency.Status),
			Location:    e.Emergency.Location,
			Source:      e.Source,
			Reason:      e.Reason,
			Time:        e.Time,
		}
		if e.Officer != nil {
			id := e.Officer.ID
			m.OfficerID = &id
			m.DistanceKm = e.Officer.DistanceKm
		}
		return fmt.Sprintf("%s/emergencies/%s/%s", prefix, e.Emergency.ID, e.Kind), false, m, true
	case events.Notice:
		m := noticeMessage{
			Kind:        string(e.Kind),
			EmergencyID: e.EmergencyID,
			Title:       e.Title,
			Message:     e.Message,
			Time:        e.Time,
		}
		if e.Err != nil {
			m.Error = e.Err.Error()
		}
		return prefix + "/notices", false, m, true
	case events.OfficerLocationEvent:
		return fmt.Sprintf("%s/officers/%d/location", prefix, e.OfficerID), true, officerMessage{
			OfficerID: e.OfficerID,
			Name:      e.Name,
			Status:    e.Status,
			Lat:       e.Coordinates.Lat,
			Lng:       e.Coordinates.Lng,
			Time:      e.Time,
		}, true
	case events.ConnectionEvent:
		return prefix + "/channel/state", true, map[string]string{"state": string(e.State)}, true
	}
	return "", false, nil, false
}

// StartMirror republishes bus events to MQTT until ctx is done.
func StartMirror(ctx context.Context, bus eventbus.EventBus, pub coremqtt.Publisher, prefix string) {
	if bus == nil || pub == nil {
		return
	}
	log := logger.New("mqtt_mirror")
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
				topic, retained, payload, ok := Route(prefix, ev)
				if !ok {
					continue
				}
				data, err := json.Marshal(payload)
				if err != nil {
					log.Errorf("encode %T: %v", ev, err)
					continue
				}
				if err := pub.Publish(topic, retained, data); err != nil {
					log.Warnf("mirror %s: %v", topic, err)
				}
			}
		}
	}()
}
