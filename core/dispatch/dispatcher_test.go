package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safih1/policedispatch/core/emergency"
	"github.com/safih1/policedispatch/core/events"
	"github.com/safih1/policedispatch/core/loop"
	"github.com/safih1/policedispatch/core/model"
	"github.com/safih1/policedispatch/internal/eventbus"
)

type fakeDirectory struct {
	officers []model.Officer
	err      error
}

func (f *fakeDirectory) Available(context.Context) ([]model.Officer, error) {
	return f.officers, f.err
}

type fakeAssigner struct {
	mu    sync.Mutex
	calls [][2]int64
	err   error
	// gate, when set, blocks Assign until closed. entered is signalled on
	// every call before waiting.
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeAssigner) Assign(ctx context.Context, officerID, alertID int64) (Assignment, error) {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return Assignment{}, ctx.Err()
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, [2]int64{officerID, alertID})
	f.mu.Unlock()
	if f.err != nil {
		return Assignment{}, f.err
	}
	return Assignment{TaskID: "7", Message: "Officer assigned successfully"}, nil
}

func (f *fakeAssigner) Calls() [][2]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]int64(nil), f.calls...)
}

type harness struct {
	t    *testing.T
	d    *Dispatcher
	l    *loop.Loop
	bus  *eventbus.Bus
	sub  <-chan eventbus.Event
	ctx  context.Context
	dir  *fakeDirectory
	asgn *fakeAssigner
}

func newHarness(t *testing.T, dir *fakeDirectory, asgn *fakeAssigner) *harness {
	t.Helper()
	ResetMetrics(prometheus.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	l := loop.New(16)
	go func() { _ = l.Run(ctx) }()
	bus := eventbus.NewWithBuffer(128)
	h := &harness{t: t, l: l, bus: bus, sub: bus.Subscribe(), ctx: ctx, dir: dir, asgn: asgn}
	h.d = New(Config{GraceSeconds: 1}, emergency.NewMemoryStore(), dir, asgn, l, bus, nil)
	t.Cleanup(func() {
		h.d.Stop()
		cancel()
		bus.Close()
	})
	return h
}

func (h *harness) do(fn func()) {
	h.t.Helper()
	require.NoError(h.t, h.l.Do(h.ctx, fn))
}

func (h *harness) waitNotice(kind events.NoticeKind) events.Notice {
	h.t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.sub:
			if n, ok := ev.(events.Notice); ok && n.Kind == kind {
				return n
			}
		case <-deadline:
			h.t.Fatalf("notice %s not published", kind)
		}
	}
}

func (h *harness) status(id string) (model.EmergencyStatus, bool) {
	var (
		st model.EmergencyStatus
		ok bool
	)
	h.do(func() {
		var e model.Emergency
		e, ok = h.d.Store().Get(id)
		st = e.Status
	})
	return st, ok
}

func coords(lat, lng float64) *model.Coordinates { return &model.Coordinates{Lat: lat, Lng: lng} }

func alert(id int64, c *model.Coordinates) model.Emergency {
	uid := int64(7)
	return model.Emergency{
		ID:          model.EmergencyID(id),
		AlertID:     id,
		Location:    "Main St",
		Coordinates: c,
		UserID:      &uid,
	}
}

func TestAlertAssignedToNearestOfficer(t *testing.T) {
	dir := &fakeDirectory{officers: []model.Officer{
		{ID: 1, Name: "Officer A", Coordinates: coords(34.2, 73.24)},
		{ID: 2, Name: "Officer B", Coordinates: coords(34.5, 73.9)},
	}}
	asgn := &fakeAssigner{}
	h := newHarness(t, dir, asgn)

	h.do(func() { require.NoError(t, h.d.HandleNewEmergency(alert(42, coords(34.21, 73.25)))) })
	n := h.waitNotice(events.NoticeOfficerAssigned)
	assert.Equal(t, "E-42", n.EmergencyID)

	assert.Equal(t, [][2]int64{{1, 42}}, asgn.Calls())
	st, ok := h.status("E-42")
	require.True(t, ok)
	assert.Equal(t, model.StatusAssigned, st)
	h.do(func() {
		o, ok := h.d.Registry().Get("E-42")
		require.True(t, ok)
		assert.Equal(t, int64(1), o.ID)
		assert.Greater(t, o.DistanceKm, 0.0)
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(assignmentsTotal.WithLabelValues("assigned")))
}

func TestDuplicateEmergencyIgnored(t *testing.T) {
	asgn := &fakeAssigner{}
	h := newHarness(t, &fakeDirectory{officers: []model.Officer{{ID: 1, Coordinates: coords(0, 0)}}}, asgn)

	h.do(func() { require.NoError(t, h.d.HandleNewEmergency(alert(42, coords(0, 0)))) })
	h.do(func() { assert.ErrorIs(t, h.d.HandleNewEmergency(alert(42, coords(0, 0))), ErrDuplicateEmergency) })
	h.waitNotice(events.NoticeOfficerAssigned)

	h.do(func() { assert.Equal(t, 1, h.d.Store().Len()) })
	assert.Len(t, asgn.Calls(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(emergenciesReceived.WithLabelValues("duplicate")))
}

func TestNoOfficersLeavesEmergencyPending(t *testing.T) {
	h := newHarness(t, &fakeDirectory{officers: []model.Officer{{ID: 4, Name: "No GPS"}}}, &fakeAssigner{})

	h.do(func() { require.NoError(t, h.d.HandleNewEmergency(alert(5, coords(1, 1)))) })
	n := h.waitNotice(events.NoticeNoOfficers)
	assert.ErrorIs(t, n.Err, ErrNoOfficersAvailable)

	st, ok := h.status("E-5")
	require.True(t, ok)
	assert.Equal(t, model.StatusPending, st)
}

func TestAvailabilityFailureIsTyped(t *testing.T) {
	h := newHarness(t, &fakeDirectory{err: errors.New("boom")}, &fakeAssigner{})

	h.do(func() { require.NoError(t, h.d.HandleNewEmergency(alert(5, coords(1, 1)))) })
	n := h.waitNotice(events.NoticeAvailabilityFailed)
	var qe *AvailabilityQueryError
	require.ErrorAs(t, n.Err, &qe)

	st, _ := h.status("E-5")
	assert.Equal(t, model.StatusPending, st)
}

func TestAssignmentFailureKeepsPending(t *testing.T) {
	asgn := &fakeAssigner{err: &AssignmentError{OfficerID: 1, AlertID: 5, StatusCode: 400, Err: errors.New("Officer not found")}}
	h := newHarness(t, &fakeDirectory{officers: []model.Officer{{ID: 1, Coordinates: coords(1, 1)}}}, asgn)

	h.do(func() { require.NoError(t, h.d.HandleNewEmergency(alert(5, coords(1, 1)))) })
	n := h.waitNotice(events.NoticeAssignmentFailed)
	var ae *AssignmentError
	require.ErrorAs(t, n.Err, &ae)
	assert.Equal(t, 400, ae.StatusCode)

	st, _ := h.status("E-5")
	assert.Equal(t, model.StatusPending, st)
	h.do(func() { assert.Zero(t, h.d.Registry().Len()) })
}

func TestMissingCoordinatesSkipsQuery(t *testing.T) {
	asgn := &fakeAssigner{}
	h := newHarness(t, &fakeDirectory{officers: []model.Officer{{ID: 1, Coordinates: coords(1, 1)}}}, asgn)

	h.do(func() { require.NoError(t, h.d.HandleNewEmergency(alert(9, nil))) })
	n := h.waitNotice(events.NoticeAssignmentFailed)
	assert.ErrorIs(t, n.Err, ErrMissingCoordinates)
	assert.Empty(t, asgn.Calls())
}

func TestDeclineBeatsInFlightAssignment(t *testing.T) {
	asgn := &fakeAssigner{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	h := newHarness(t, &fakeDirectory{officers: []model.Officer{{ID: 1, Coordinates: coords(1, 1)}}}, asgn)

	h.do(func() { require.NoError(t, h.d.HandleNewEmergency(alert(3, coords(1, 1)))) })
	select {
	case <-asgn.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("assignment never started")
	}

	h.do(func() {
		_, err := h.d.Decline("E-3")
		require.NoError(t, err)
	})
	h.waitNotice(events.NoticeDeclineUnreported)
	close(asgn.gate)

	require.Eventually(t, func() bool { return len(asgn.Calls()) == 1 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(assignmentsTotal.WithLabelValues("stale")) == 1
	}, time.Second, 10*time.Millisecond)

	_, ok := h.status("E-3")
	assert.False(t, ok)
	h.do(func() {
		assert.Zero(t, h.d.Registry().Len())
		_, err := h.d.Decline("E-3")
		assert.ErrorIs(t, err, emergency.ErrNotFound)
	})
}

func TestTakeRequiresPending(t *testing.T) {
	h := newHarness(t, &fakeDirectory{officers: []model.Officer{{ID: 1, Coordinates: coords(1, 1)}}}, &fakeAssigner{})

	h.do(func() { require.NoError(t, h.d.HandleNewEmergency(alert(8, coords(1, 1)))) })
	h.waitNotice(events.NoticeOfficerAssigned)
	h.do(func() {
		_, err := h.d.Take("E-8")
		assert.ErrorIs(t, err, ErrNotPending)
	})
}

func TestTaskStatusResolvedRemovesAfterGrace(t *testing.T) {
	h := newHarness(t, &fakeDirectory{}, &fakeAssigner{})
	h.d.cfg.AutoAssign = new(bool)

	h.do(func() { require.NoError(t, h.d.HandleNewEmergency(alert(11, coords(1, 1)))) })
	h.do(func() {
		e, ok := h.d.HandleTaskStatus(11, model.StatusResolved)
		require.True(t, ok)
		assert.Equal(t, model.StatusResolved, e.Status)
		assert.Equal(t, 1, h.d.PendingRemovals())
	})

	_, ok := h.status("E-11")
	assert.True(t, ok, "record kept during grace delay")
	require.Eventually(t, func() bool {
		_, ok := h.status("E-11")
		return !ok
	}, 3*time.Second, 50*time.Millisecond)
}

func TestTaskStatusUnknownIsNoop(t *testing.T) {
	h := newHarness(t, &fakeDirectory{}, &fakeAssigner{})
	h.do(func() {
		_, ok := h.d.HandleTaskStatus(999, model.StatusResolved)
		assert.False(t, ok)
		assert.Zero(t, h.d.PendingRemovals())
		assert.Zero(t, h.d.Store().Len())
	})
}

func TestTaskStatusCannotGoBackwards(t *testing.T) {
	h := newHarness(t, &fakeDirectory{}, &fakeAssigner{})
	h.d.cfg.AutoAssign = new(bool)

	h.do(func() {
		require.NoError(t, h.d.HandleNewEmergency(alert(12, coords(1, 1))))
		_, ok := h.d.HandleTaskStatus(12, model.StatusAssigned)
		require.True(t, ok)
		_, ok = h.d.HandleTaskStatus(12, model.StatusPending)
		assert.False(t, ok)
	})
	st, _ := h.status("E-12")
	assert.Equal(t, model.StatusAssigned, st)
}

func TestThreatResolvedRemovesImmediately(t *testing.T) {
	h := newHarness(t, &fakeDirectory{}, &fakeAssigner{})
	h.d.cfg.AutoAssign = new(bool)

	h.do(func() {
		require.NoError(t, h.d.HandleNewEmergency(alert(13, coords(1, 1))))
		e, ok := h.d.HandleThreatResolved(7, "user safe")
		require.True(t, ok)
		assert.Equal(t, "E-13", e.ID)
		assert.Zero(t, h.d.Store().Len())

		_, ok = h.d.HandleThreatResolved(7, "again")
		assert.False(t, ok)
	})
}

func TestStopCancelsGraceTimers(t *testing.T) {
	h := newHarness(t, &fakeDirectory{}, &fakeAssigner{})
	h.d.cfg.AutoAssign = new(bool)

	h.do(func() {
		require.NoError(t, h.d.HandleNewEmergency(alert(14, coords(1, 1))))
		_, ok := h.d.HandleTaskStatus(14, model.StatusResolved)
		require.True(t, ok)
	})
	h.do(func() { h.d.Stop() })
	assert.Zero(t, h.d.PendingRemovals())
}
