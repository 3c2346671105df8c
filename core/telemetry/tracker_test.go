package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safih1/policedispatch/core/model"
	"github.com/safih1/policedispatch/core/protocol"
	"github.com/safih1/policedispatch/core/transport"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []protocol.LocationUpdate
	err  error
}

func (s *recordingSender) Send(msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg.(protocol.LocationUpdate))
	return nil
}

func (s *recordingSender) sent() []protocol.LocationUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.LocationUpdate(nil), s.msgs...)
}

func emergencyFor(id, user int64) model.Emergency {
	return model.Emergency{ID: model.EmergencyID(id), AlertID: id, UserID: &user}
}

func staticPos(c model.Coordinates) CoordinateFunc {
	return func(context.Context) (model.Coordinates, error) { return c, nil }
}

func TestTrackerPushesEveryInterval(t *testing.T) {
	s := &recordingSender{}
	tr := NewTracker(Config{IntervalSeconds: 1, ETAMinutes: 5}, s, nil)
	tr.Start(emergencyFor(42, 7), staticPos(model.Coordinates{Lat: 34.2, Lng: 73.2}))
	defer tr.Stop()

	require.Eventually(t, func() bool { return len(s.sent()) >= 1 }, 3*time.Second, 50*time.Millisecond)
	msg := s.sent()[0]
	assert.Equal(t, protocol.KindLocationUpdate, msg.Type)
	require.NotNil(t, msg.UserID)
	assert.Equal(t, int64(7), *msg.UserID)
	assert.Equal(t, 5, msg.ETA)
	assert.Equal(t, 34.2, msg.Coordinates.Lat)
}

func TestTrackerDoubleStartKeepsOneStream(t *testing.T) {
	s := &recordingSender{}
	tr := NewTracker(Config{IntervalSeconds: 1}, s, nil)
	tr.Start(emergencyFor(1, 10), staticPos(model.Coordinates{}))
	tr.Start(emergencyFor(2, 20), staticPos(model.Coordinates{}))
	defer tr.Stop()

	id, ok := tr.Active()
	require.True(t, ok)
	assert.Equal(t, "E-2", id)

	require.Eventually(t, func() bool { return len(s.sent()) >= 2 }, 4*time.Second, 50*time.Millisecond)
	for _, m := range s.sent() {
		assert.Equal(t, int64(20), *m.UserID)
	}
}

func TestTrackerStopIdleIsNoop(t *testing.T) {
	tr := NewTracker(Config{}, &recordingSender{}, nil)
	tr.Stop()
	tr.Stop()
	_, ok := tr.Active()
	assert.False(t, ok)
}

func TestTrackerStopHaltsPushes(t *testing.T) {
	s := &recordingSender{}
	tr := NewTracker(Config{IntervalSeconds: 1}, s, nil)
	tr.Start(emergencyFor(3, 30), staticPos(model.Coordinates{}))
	require.Eventually(t, func() bool { return len(s.sent()) >= 1 }, 3*time.Second, 50*time.Millisecond)
	tr.Stop()

	n := len(s.sent())
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, n, len(s.sent()))
	_, ok := tr.Active()
	assert.False(t, ok)
}

func TestTrackerReevaluatesPosition(t *testing.T) {
	s := &recordingSender{}
	tr := NewTracker(Config{IntervalSeconds: 1}, s, nil)
	var mu sync.Mutex
	lat := 1.0
	tr.Start(emergencyFor(4, 40), func(context.Context) (model.Coordinates, error) {
		mu.Lock()
		defer mu.Unlock()
		lat++
		return model.Coordinates{Lat: lat}, nil
	})
	defer tr.Stop()

	require.Eventually(t, func() bool { return len(s.sent()) >= 2 }, 4*time.Second, 50*time.Millisecond)
	msgs := s.sent()
	assert.NotEqual(t, msgs[0].Coordinates.Lat, msgs[1].Coordinates.Lat)
}

func TestTrackerSkipsFailedPositionAndDroppedSend(t *testing.T) {
	s := &recordingSender{err: transport.ErrNotConnected}
	tr := NewTracker(Config{IntervalSeconds: 1}, s, nil)
	calls := make(chan struct{}, 4)
	tr.Start(emergencyFor(5, 50), func(context.Context) (model.Coordinates, error) {
		select {
		case calls <- struct{}{}:
		default:
		}
		return model.Coordinates{}, errors.New("no fix")
	})
	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatal("position never requested")
	}
	tr.Stop()
	assert.Empty(t, s.sent())
}
