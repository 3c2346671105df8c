// Package dispatch runs the new-emergency workflow: dedup, roster query,
// nearest-officer selection and assignment. It also applies backend status
// pushes to the emergency store.
//
// Dispatcher methods are not safe for concurrent use. They are called from the
// session loop, and every asynchronous completion is posted back through the
// Executor before it touches state.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/safih1/policedispatch/core/emergency"
	"github.com/safih1/policedispatch/core/events"
	"github.com/safih1/policedispatch/core/logger"
	"github.com/safih1/policedispatch/core/model"
	"github.com/safih1/policedispatch/core/monitoring"
	"github.com/safih1/policedispatch/internal/eventbus"
)

// OfficerDirectory lists officers currently on duty.
type OfficerDirectory interface {
	Available(ctx context.Context) ([]model.Officer, error)
}

// Assigner commits an officer to an emergency on the backend.
type Assigner interface {
	Assign(ctx context.Context, officerID, alertID int64) (Assignment, error)
}

// Assignment is the backend answer to an assignment command.
type Assignment struct {
	TaskID  string
	Message string
	Officer model.Officer
}

// Executor posts work onto the session loop. Submit returns false when the
// loop is gone.
type Executor interface {
	Submit(fn func()) bool
}

// Dispatcher owns the emergency store writes and the assignment registry.
type Dispatcher struct {
	cfg      Config
	store    emergency.Store
	dir      OfficerDirectory
	assigner Assigner
	exec     Executor
	bus      eventbus.EventBus
	log      logger.Logger
	now      func() time.Time

	registry *Registry
	timers   map[string]*time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Dispatcher. bus may be nil.
func New(cfg Config, store emergency.Store, dir OfficerDirectory, assigner Assigner, exec Executor, bus eventbus.EventBus, log logger.Logger) *Dispatcher {
	cfg.SetDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		cfg:      cfg,
		store:    store,
		dir:      dir,
		assigner: assigner,
		exec:     exec,
		bus:      bus,
		log:      logger.OrNop(log),
		now:      time.Now,
		registry: newRegistry(),
		timers:   make(map[string]*time.Timer),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Registry returns the assignment registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Store returns the emergency store.
func (d *Dispatcher) Store() emergency.Store { return d.store }

// HandleNewEmergency stores e and starts auto-assignment. ErrDuplicateEmergency
// is returned when e is already known; callers absorb it.
func (d *Dispatcher) HandleNewEmergency(e model.Emergency) error {
	e.Status = model.StatusPending
	if !d.store.Upsert(e) {
		emergenciesReceived.WithLabelValues("duplicate").Inc()
		d.log.Debugf("dispatch: duplicate emergency %s ignored", e.ID)
		d.publish(events.LifecycleEvent{Kind: events.Duplicate, Emergency: e, Source: events.SourceBackend})
		return ErrDuplicateEmergency
	}
	emergenciesReceived.WithLabelValues("stored").Inc()
	activeEmergencies.Set(float64(d.store.Len()))
	d.log.Infof("dispatch: emergency %s received at %s", e.ID, e.Location)
	d.publish(events.LifecycleEvent{Kind: events.Received, Emergency: e, Source: events.SourceBackend})

	if !d.cfg.autoAssign() {
		return nil
	}
	if e.Coordinates == nil {
		assignmentsTotal.WithLabelValues("no_coordinates").Inc()
		d.log.Warnf("dispatch: emergency %s has no coordinates, auto-assignment skipped", e.ID)
		d.notify(events.Notice{
			Kind:        events.NoticeAssignmentFailed,
			EmergencyID: e.ID,
			Title:       "Assignment skipped",
			Message:     "Emergency has no location; accept it manually.",
			Err:         ErrMissingCoordinates,
		})
		return nil
	}
	d.queryOfficers(e, d.now())
	return nil
}

func (d *Dispatcher) queryOfficers(e model.Emergency, started time.Time) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer monitoring.Recover()
		ctx, cancel := context.WithTimeout(d.ctx, d.cfg.requestTimeout())
		defer cancel()
		officers, err := d.dir.Available(ctx)
		d.exec.Submit(func() { d.onOfficers(e.ID, officers, err, started) })
	}()
}

func (d *Dispatcher) onOfficers(id string, officers []model.Officer, err error, started time.Time) {
	e, ok := d.pending(id)
	if !ok {
		assignmentsTotal.WithLabelValues("stale").Inc()
		d.log.Debugf("dispatch: roster answer for %s dropped, emergency no longer pending", id)
		return
	}
	if err != nil {
		var qe *AvailabilityQueryError
		if !errors.As(err, &qe) {
			err = &AvailabilityQueryError{Err: err}
		}
		assignmentsTotal.WithLabelValues("availability_failed").Inc()
		d.log.Errorf("dispatch: %v", err)
		monitoring.CaptureException(err, map[string]string{"component": "dispatch", "emergency": id})
		d.notify(events.Notice{
			Kind:        events.NoticeAvailabilityFailed,
			EmergencyID: id,
			Title:       "Officer lookup failed",
			Message:     "Could not query available officers.",
			Err:         err,
		})
		return
	}
	for _, o := range officers {
		if o.Coordinates == nil {
			d.log.Warnf("dispatch: officer %d has no location, skipped", o.ID)
		}
	}
	nearest, found := SelectNearest(officers, *e.Coordinates)
	if !found {
		assignmentsTotal.WithLabelValues("no_officers").Inc()
		d.log.Warnf("dispatch: %v for %s", ErrNoOfficersAvailable, id)
		d.notify(events.Notice{
			Kind:        events.NoticeNoOfficers,
			EmergencyID: id,
			Title:       "No officers available",
			Message:     "No officers available for assignment.",
			Err:         ErrNoOfficersAvailable,
		})
		return
	}
	d.log.Infof("dispatch: nearest officer for %s is %d (%s) at %.2f km", id, nearest.ID, nearest.Name, nearest.DistanceKm)
	d.assign(e, nearest, started)
}

func (d *Dispatcher) assign(e model.Emergency, o model.Officer, started time.Time) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer monitoring.Recover()
		ctx, cancel := context.WithTimeout(d.ctx, d.cfg.requestTimeout())
		defer cancel()
		res, err := d.assigner.Assign(ctx, o.ID, e.AlertID)
		d.exec.Submit(func() { d.onAssigned(e.ID, o, res, err, started) })
	}()
}

func (d *Dispatcher) onAssigned(id string, o model.Officer, res Assignment, err error, started time.Time) {
	assignmentLatency.Observe(d.now().Sub(started).Seconds())
	if err != nil {
		var ae *AssignmentError
		if !errors.As(err, &ae) {
			err = &AssignmentError{OfficerID: o.ID, Err: err}
		}
		assignmentsTotal.WithLabelValues("assignment_failed").Inc()
		d.log.Errorf("dispatch: %v", err)
		monitoring.CaptureException(err, map[string]string{"component": "dispatch", "emergency": id})
		d.notify(events.Notice{
			Kind:        events.NoticeAssignmentFailed,
			EmergencyID: id,
			Title:       "Assignment failed",
			Message:     fmt.Sprintf("Could not assign %s.", o.Name),
			Err:         err,
		})
		return
	}
	if _, ok := d.pending(id); !ok {
		assignmentsTotal.WithLabelValues("stale").Inc()
		d.log.Debugf("dispatch: assignment of %s ignored, emergency no longer pending", id)
		return
	}
	e, err := d.store.UpdateStatus(model.ByID(id), model.StatusAssigned)
	if err != nil {
		d.log.Warnf("dispatch: mark %s assigned: %v", id, err)
		return
	}
	if res.Officer.Name != "" {
		o.Name = res.Officer.Name
	}
	if res.Officer.BadgeNumber != "" {
		o.BadgeNumber = res.Officer.BadgeNumber
	}
	d.registry.set(id, o)
	assignmentsTotal.WithLabelValues("assigned").Inc()
	officerDistance.Observe(o.DistanceKm)
	d.log.Infof("dispatch: officer %d assigned to %s (task %s)", o.ID, id, res.TaskID)
	officer := o
	d.publish(events.LifecycleEvent{Kind: events.Assigned, Emergency: e, Officer: &officer, Source: events.SourceAuto})
	d.notify(events.Notice{
		Kind:        events.NoticeOfficerAssigned,
		EmergencyID: id,
		Title:       "Officer assigned",
		Message:     fmt.Sprintf("%s assigned (%.2f km)", o.Name, o.DistanceKm),
	})
}

// Take removes a pending emergency so the local officer can respond to it.
func (d *Dispatcher) Take(id string) (model.Emergency, error) {
	e, ok := d.store.Get(id)
	if !ok {
		return model.Emergency{}, emergency.ErrNotFound
	}
	if e.Status != model.StatusPending {
		return e, ErrNotPending
	}
	d.store.Remove(model.ByID(id))
	d.cancelTimer(id)
	activeEmergencies.Set(float64(d.store.Len()))
	return e, nil
}

// Decline drops a pending emergency from the local list. The backend has no
// decline message, so the decline only exists in the journal and as a notice.
func (d *Dispatcher) Decline(id string) (model.Emergency, error) {
	e, err := d.Take(id)
	if err != nil {
		return e, err
	}
	d.log.Infof("dispatch: emergency %s declined", id)
	d.publish(events.LifecycleEvent{Kind: events.Declined, Emergency: e, Source: events.SourceOperator})
	d.notify(events.Notice{
		Kind:        events.NoticeDeclineUnreported,
		EmergencyID: id,
		Title:       "Emergency declined",
		Message:     "Declined locally; the backend is not informed.",
	})
	return e, nil
}

// HandleTaskStatus applies a backend status push. A resolved status schedules
// removal after the grace delay. Unknown emergencies are ignored.
func (d *Dispatcher) HandleTaskStatus(alertID int64, status model.EmergencyStatus) (model.Emergency, bool) {
	e, err := d.store.UpdateStatus(model.ByAlertID(alertID), status)
	switch {
	case errors.Is(err, emergency.ErrNotFound):
		d.log.Debugf("dispatch: status %q for unknown emergency %d ignored", status, alertID)
		return model.Emergency{}, false
	case err != nil:
		d.log.Warnf("dispatch: status %q for %s rejected: %v", status, e.ID, err)
		return e, false
	}
	d.log.Infof("dispatch: emergency %s is now %s", e.ID, status)
	d.publish(events.LifecycleEvent{Kind: events.StatusChanged, Emergency: e, Source: events.SourceBackend})
	if status == model.StatusResolved {
		d.publish(events.LifecycleEvent{Kind: events.Resolved, Emergency: e, Source: events.SourceBackend})
		d.scheduleRemoval(e.ID)
	}
	return e, true
}

// HandleThreatResolved removes the emergency reported by userID immediately.
func (d *Dispatcher) HandleThreatResolved(userID int64, reason string) (model.Emergency, bool) {
	e, ok := d.store.Remove(model.ByUserID(userID))
	if !ok {
		d.log.Debugf("dispatch: threat_resolved for unknown user %d ignored", userID)
		return model.Emergency{}, false
	}
	d.cancelTimer(e.ID)
	d.registry.remove(e.ID)
	activeEmergencies.Set(float64(d.store.Len()))
	e.Status = model.StatusResolved
	d.log.Infof("dispatch: emergency %s resolved by backend: %s", e.ID, reason)
	d.publish(events.LifecycleEvent{Kind: events.Resolved, Emergency: e, Source: events.SourceBackend, Reason: reason})
	d.publish(events.LifecycleEvent{Kind: events.Removed, Emergency: e, Source: events.SourceBackend, Reason: reason})
	return e, true
}

// Forget drops the registry entry of an emergency that left the session
// through the accept path.
func (d *Dispatcher) Forget(id string) {
	d.cancelTimer(id)
	d.registry.remove(id)
}

func (d *Dispatcher) scheduleRemoval(id string) {
	d.cancelTimer(id)
	d.timers[id] = time.AfterFunc(d.cfg.grace(), func() {
		d.exec.Submit(func() { d.removeAfterGrace(id) })
	})
}

func (d *Dispatcher) removeAfterGrace(id string) {
	if _, ok := d.timers[id]; !ok {
		return
	}
	delete(d.timers, id)
	e, ok := d.store.Remove(model.ByID(id))
	if !ok {
		return
	}
	d.registry.remove(id)
	activeEmergencies.Set(float64(d.store.Len()))
	d.log.Debugf("dispatch: resolved emergency %s removed", id)
	d.publish(events.LifecycleEvent{Kind: events.Removed, Emergency: e, Source: events.SourceBackend})
}

func (d *Dispatcher) cancelTimer(id string) {
	if t, ok := d.timers[id]; ok {
		t.Stop()
		delete(d.timers, id)
	}
}

// PendingRemovals returns the number of scheduled grace removals.
func (d *Dispatcher) PendingRemovals() int { return len(d.timers) }

// Stop cancels in-flight requests and grace timers and waits for the
// request goroutines to exit.
func (d *Dispatcher) Stop() {
	d.cancel()
	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}
	d.wg.Wait()
}

func (d *Dispatcher) pending(id string) (model.Emergency, bool) {
	e, ok := d.store.Get(id)
	if !ok || e.Status != model.StatusPending {
		return e, false
	}
	return e, true
}

func (d *Dispatcher) publish(ev events.LifecycleEvent) {
	if d.bus == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = d.now()
	}
	d.bus.Publish(ev)
}

func (d *Dispatcher) notify(n events.Notice) {
	if d.bus == nil {
		return
	}
	if n.Time.IsZero() {
		n.Time = d.now()
	}
	d.bus.Publish(n)
}
