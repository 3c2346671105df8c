// Package coordinator owns the officer session. Inbound frames, operator
// actions, timer callbacks and request completions all run as tasks on one
// loop goroutine, so the first of two competing actions wins and the second
// observes its result.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/safih1/policedispatch/core/dispatch"
	"github.com/safih1/policedispatch/core/events"
	"github.com/safih1/policedispatch/core/location"
	"github.com/safih1/policedispatch/core/logger"
	"github.com/safih1/policedispatch/core/loop"
	"github.com/safih1/policedispatch/core/model"
	"github.com/safih1/policedispatch/core/protocol"
	"github.com/safih1/policedispatch/core/telemetry"
	"github.com/safih1/policedispatch/core/transport"
	"github.com/safih1/policedispatch/internal/eventbus"
)

// PositionObserver is fed officer_location_update broadcasts.
type PositionObserver interface {
	Observe(officerID int64, c model.Coordinates, at time.Time) bool
}

// Deps groups the collaborators of a Coordinator. Observer and Bus are
// optional.
type Deps struct {
	Loop       *loop.Loop
	Channel    transport.Channel
	Dispatcher *dispatch.Dispatcher
	Tracker    *telemetry.Tracker
	Location   location.Provider
	Observer   PositionObserver
	Bus        eventbus.EventBus
	Logger     logger.Logger
	// OfficerID identifies the local officer in lifecycle events.
	OfficerID int64
	// LocationTimeout bounds position acquisition on accept.
	LocationTimeout time.Duration
}

// StateView is a snapshot of the session for presentation.
type StateView struct {
	SessionID     string                   `json:"session_id"`
	OfficerStatus model.OfficerStatus      `json:"officer_status"`
	Active        *model.Emergency         `json:"active,omitempty"`
	Pending       []model.Emergency        `json:"emergencies"`
	Assignments   map[string]model.Officer `json:"assignments"`
	Connection    transport.State          `json:"connection"`
	Tracking      string                   `json:"tracking,omitempty"`
}

// Coordinator is the single actor of an officer session.
type Coordinator struct {
	deps      Deps
	log       logger.Logger
	sessionID string

	// loop-owned state
	status model.OfficerStatus
	active *model.Emergency
	conn   transport.State
}

// New wires the channel callbacks to the loop. Frames that arrive before Run
// is called are queued.
func New(deps Deps) *Coordinator {
	if deps.LocationTimeout <= 0 {
		deps.LocationTimeout = 10 * time.Second
	}
	c := &Coordinator{
		deps:      deps,
		log:       logger.OrNop(deps.Logger),
		sessionID: uuid.NewString(),
		status:    model.OnPatrol,
		conn:      transport.StateIdle,
	}
	deps.Channel.OnMessage(func(frame []byte) {
		if !deps.Loop.Submit(func() { c.handleFrame(frame) }) {
			c.log.Debugf("coordinator: frame dropped, session stopped")
		}
	})
	deps.Channel.OnStateChange(func(s transport.State, err error) {
		deps.Loop.Submit(func() { c.onConnectionState(s, err) })
	})
	return c
}

// SessionID identifies this session in logs and the state view.
func (c *Coordinator) SessionID() string { return c.sessionID }

// Run drives the session until ctx is cancelled, then stops telemetry and all
// pending dispatch work.
func (c *Coordinator) Run(ctx context.Context) error {
	c.log.Infof("coordinator: session %s started", c.sessionID)
	err := c.deps.Loop.Run(ctx)
	c.deps.Tracker.Stop()
	c.deps.Dispatcher.Stop()
	c.log.Infof("coordinator: session %s stopped", c.sessionID)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *Coordinator) do(ctx context.Context, fn func()) error {
	return c.deps.Loop.Do(ctx, fn)
}

// AcceptEmergency makes the local officer respond to a pending emergency. The
// position is acquired first; if it cannot be, nothing changes.
func (c *Coordinator) AcceptEmergency(ctx context.Context, id string) (e model.Emergency, err error) {
	defer func() { observeAction("accept", err) }()

	var precheck error
	if err := c.do(ctx, func() { precheck = c.checkAcceptable(id) }); err != nil {
		return model.Emergency{}, err
	}
	if precheck != nil {
		return model.Emergency{}, precheck
	}

	lctx, cancel := context.WithTimeout(ctx, c.deps.LocationTimeout)
	pos, perr := c.deps.Location.Current(lctx)
	cancel()
	if perr != nil {
		c.log.Warnf("coordinator: accept %s: %v", id, perr)
		c.notify(events.Notice{
			Kind:        events.NoticeLocationUnavailable,
			EmergencyID: id,
			Title:       "Location unavailable",
			Message:     "Could not acquire location.",
			Err:         perr,
		})
		return model.Emergency{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, perr)
	}

	var result error
	if err := c.do(ctx, func() { e, result = c.claim(id, pos) }); err != nil {
		return model.Emergency{}, err
	}
	return e, result
}

func (c *Coordinator) checkAcceptable(id string) error {
	if c.active != nil {
		return ErrAlreadyResponding
	}
	e, ok := c.deps.Dispatcher.Store().Get(id)
	if !ok {
		return ErrNotFound
	}
	if e.Status != model.StatusPending {
		return ErrNotPending
	}
	return nil
}

// claim runs on the loop. State is re-checked because other tasks may have
// run while the position was acquired.
func (c *Coordinator) claim(id string, pos model.Coordinates) (model.Emergency, error) {
	if err := c.checkAcceptable(id); err != nil {
		return model.Emergency{}, err
	}
	e, _ := c.deps.Dispatcher.Store().Get(id)
	if err := c.deps.Channel.Send(protocol.NewAcceptEmergency(e, pos)); err != nil {
		return model.Emergency{}, fmt.Errorf("send accept for %s: %w", id, err)
	}
	e, err := c.deps.Dispatcher.Take(id)
	if err != nil {
		return model.Emergency{}, err
	}
	e.Status = model.StatusAssigned
	c.active = &e
	c.status = model.Responding
	c.deps.Tracker.Start(e, c.deps.Location.Current)

	c.log.Infof("coordinator: responding to %s at %s", e.ID, e.Location)
	officer := model.Officer{ID: c.deps.OfficerID, Coordinates: &pos}
	c.publish(events.LifecycleEvent{Kind: events.Accepted, Emergency: e, Officer: &officer, Source: events.SourceOperator})
	return e, nil
}

// DeclineEmergency drops a pending emergency from the local list.
func (c *Coordinator) DeclineEmergency(ctx context.Context, id string) (e model.Emergency, err error) {
	defer func() { observeAction("decline", err) }()
	var result error
	if err := c.do(ctx, func() { e, result = c.deps.Dispatcher.Decline(id) }); err != nil {
		return model.Emergency{}, err
	}
	return e, result
}

// ResolveEmergency closes the active emergency. When the resolve command
// cannot be sent the session keeps responding so the operator can retry.
func (c *Coordinator) ResolveEmergency(ctx context.Context) (e model.Emergency, err error) {
	defer func() { observeAction("resolve", err) }()
	var result error
	if err := c.do(ctx, func() { e, result = c.resolveActive() }); err != nil {
		return model.Emergency{}, err
	}
	return e, result
}

func (c *Coordinator) resolveActive() (model.Emergency, error) {
	if c.active == nil {
		return model.Emergency{}, ErrNotResponding
	}
	e := *c.active
	if e.UserID != nil {
		if err := c.deps.Channel.Send(protocol.NewResolveEmergency(*e.UserID)); err != nil {
			return e, fmt.Errorf("send resolve for %s: %w", e.ID, err)
		}
	}
	return c.finishActive(events.SourceOperator, ""), nil
}

// finishActive returns the session to patrol. It runs on the loop.
func (c *Coordinator) finishActive(source, reason string) model.Emergency {
	e := *c.active
	e.Status = model.StatusResolved
	c.deps.Tracker.Stop()
	c.deps.Dispatcher.Forget(e.ID)
	c.active = nil
	c.status = model.OnPatrol
	c.log.Infof("coordinator: emergency %s resolved (%s)", e.ID, source)
	c.publish(events.LifecycleEvent{Kind: events.Resolved, Emergency: e, Source: source, Reason: reason})
	c.publish(events.LifecycleEvent{Kind: events.Removed, Emergency: e, Source: source, Reason: reason})
	return e
}

// MarkOnScene records arrival at the active emergency.
func (c *Coordinator) MarkOnScene(ctx context.Context) (err error) {
	defer func() { observeAction("on_scene", err) }()
	var result error
	if err := c.do(ctx, func() {
		if c.active == nil {
			result = ErrNotResponding
			return
		}
		c.status = model.OnScene
		c.log.Infof("coordinator: on scene at %s", c.active.ID)
	}); err != nil {
		return err
	}
	return result
}

// Reconnect asks the channel to retry after it gave up.
func (c *Coordinator) Reconnect() {
	c.deps.Channel.Reconnect()
}

// State returns a snapshot of the session.
func (c *Coordinator) State(ctx context.Context) (StateView, error) {
	var v StateView
	err := c.do(ctx, func() {
		v = StateView{
			SessionID:     c.sessionID,
			OfficerStatus: c.status,
			Pending:       c.deps.Dispatcher.Store().List(),
			Assignments:   c.deps.Dispatcher.Registry().Snapshot(),
			Connection:    c.conn,
		}
		if c.active != nil {
			a := *c.active
			v.Active = &a
		}
		if id, ok := c.deps.Tracker.Active(); ok {
			v.Tracking = id
		}
	})
	return v, err
}

func (c *Coordinator) onConnectionState(s transport.State, err error) {
	c.conn = s
	c.publish(events.ConnectionEvent{State: s, Err: err, Time: time.Now()})
	switch s {
	case transport.StateOpen:
		c.log.Infof("coordinator: connected")
	case transport.StateFailed:
		c.log.Errorf("coordinator: connection failed: %v", err)
		c.notify(events.Notice{
			Kind:    events.NoticeConnectionFailed,
			Title:   "Connection lost",
			Message: "Gave up reconnecting; retry manually.",
			Err:     err,
		})
	}
}

func (c *Coordinator) publish(ev eventbus.Event) {
	if le, ok := ev.(events.LifecycleEvent); ok && le.Time.IsZero() {
		le.Time = time.Now()
		ev = le
	}
	if c.deps.Bus != nil {
		c.deps.Bus.Publish(ev)
	}
}

func (c *Coordinator) notify(n events.Notice) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	c.publish(n)
}
