// Package telemetry streams the responding officer's position to the
// reporter of the accepted emergency.
package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/safih1/policedispatch/core/logger"
	"github.com/safih1/policedispatch/core/model"
	"github.com/safih1/policedispatch/core/protocol"
	"github.com/safih1/policedispatch/core/transport"
)

// CoordinateFunc returns the current officer position. It is called on every
// tick.
type CoordinateFunc func(ctx context.Context) (model.Coordinates, error)

var pushesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "telemetry_pushes_total",
		Help: "location_update pushes by result (sent, dropped, no_position)",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(pushesTotal)
}

// Tracker runs at most one position stream at a time.
type Tracker struct {
	cfg    Config
	sender transport.Sender
	log    logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	active string
}

// NewTracker creates an idle Tracker.
func NewTracker(cfg Config, sender transport.Sender, log logger.Logger) *Tracker {
	cfg.SetDefaults()
	return &Tracker{cfg: cfg, sender: sender, log: logger.OrNop(log)}
}

// Start begins pushing the position for e every interval. A running stream is
// stopped, and waited for, first.
func (t *Tracker) Start(e model.Emergency, pos CoordinateFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	t.active = e.ID
	go t.run(ctx, done, e, pos)
	t.log.Infof("telemetry: tracking started for %s", e.ID)
}

// Stop ends the running stream. It is a no-op when idle.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel == nil {
		return
	}
	id := t.active
	t.stopLocked()
	t.log.Infof("telemetry: tracking stopped for %s", id)
}

// Active returns the emergency id currently tracked.
func (t *Tracker) Active() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active, t.cancel != nil
}

func (t *Tracker) stopLocked() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel = nil
	t.done = nil
	t.active = ""
}

func (t *Tracker) run(ctx context.Context, done chan struct{}, e model.Emergency, pos CoordinateFunc) {
	defer close(done)
	ticker := time.NewTicker(t.cfg.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.push(ctx, e, pos)
		case <-ctx.Done():
			return
		}
	}
}

func (t *Tracker) push(ctx context.Context, e model.Emergency, pos CoordinateFunc) {
	c, err := pos(ctx)
	if err != nil {
		if ctx.Err() == nil {
			pushesTotal.WithLabelValues("no_position").Inc()
			t.log.Warnf("telemetry: position unavailable for %s: %v", e.ID, err)
		}
		return
	}
	err = t.sender.Send(protocol.NewLocationUpdate(e, c, t.cfg.ETAMinutes))
	switch {
	case errors.Is(err, transport.ErrNotConnected), errors.Is(err, transport.ErrClosed):
		pushesTotal.WithLabelValues("dropped").Inc()
		t.log.Debugf("telemetry: update for %s dropped: %v", e.ID, err)
	case err != nil:
		pushesTotal.WithLabelValues("dropped").Inc()
		t.log.Warnf("telemetry: send update for %s: %v", e.ID, err)
	default:
		pushesTotal.WithLabelValues("sent").Inc()
	}
}
