package coordinator

import (
	"errors"
	"time"

	"github.com/safih1/policedispatch/core/events"
	"github.com/safih1/policedispatch/core/model"
	"github.com/safih1/policedispatch/core/protocol"
)

func (c *Coordinator) handleFrame(frame []byte) {
	msg, err := protocol.Decode(frame)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, protocol.ErrUnknownKind) {
			reason = "unknown_type"
		}
		framesRejected.WithLabelValues(reason).Inc()
		c.log.Warnf("coordinator: frame dropped: %v", err)
		return
	}
	framesHandled.WithLabelValues(string(msg.Kind())).Inc()

	switch m := msg.(type) {
	case protocol.NewEmergency:
		c.onNewEmergency(m.Emergency())
	case protocol.OfficerLocationUpdate:
		c.onOfficerLocation(m)
	case protocol.TaskStatusUpdate:
		c.onTaskStatus(m.EmergencyID.Int64(), model.EmergencyStatus(m.Status))
	case protocol.ThreatResolved:
		c.onThreatResolved(m.UserID.Int64(), m.Reason)
	}
}

func (c *Coordinator) onNewEmergency(e model.Emergency) {
	if c.active != nil && c.active.ID == e.ID {
		c.log.Debugf("coordinator: duplicate of active emergency %s ignored", e.ID)
		return
	}
	// duplicates are absorbed by the dispatcher
	_ = c.deps.Dispatcher.HandleNewEmergency(e)
}

func (c *Coordinator) onOfficerLocation(m protocol.OfficerLocationUpdate) {
	id := m.OfficerID.Int64()
	pos := *m.Coordinates
	c.log.Debugw("officer location update", map[string]any{
		"officer_id": id,
		"name":       m.Name,
		"status":     m.Status,
		"lat":        pos.Lat,
		"lng":        pos.Lng,
	})
	at := m.Timestamp.Time
	if c.deps.Observer != nil {
		c.deps.Observer.Observe(id, pos, at)
	}
	if at.IsZero() {
		at = time.Now()
	}
	c.publish(events.OfficerLocationEvent{
		OfficerID:   id,
		Name:        m.Name,
		Status:      m.Status,
		Coordinates: pos,
		Time:        at,
	})
}

func (c *Coordinator) onTaskStatus(alertID int64, status model.EmergencyStatus) {
	if c.active != nil && c.active.AlertID == alertID {
		if status == model.StatusResolved {
			c.finishActive(events.SourceBackend, "")
			return
		}
		if status.Known() && status.Rank() < c.active.Status.Rank() {
			c.log.Warnf("coordinator: status %q for active %s rejected", status, c.active.ID)
			return
		}
		c.active.Status = status
		c.publish(events.LifecycleEvent{Kind: events.StatusChanged, Emergency: *c.active, Source: events.SourceBackend})
		return
	}
	c.deps.Dispatcher.HandleTaskStatus(alertID, status)
}

func (c *Coordinator) onThreatResolved(userID int64, reason string) {
	if c.active != nil && c.active.UserID != nil && *c.active.UserID == userID {
		c.finishActive(events.SourceBackend, reason)
		return
	}
	c.deps.Dispatcher.HandleThreatResolved(userID, reason)
}
