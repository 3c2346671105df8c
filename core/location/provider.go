// Package location supplies the local officer's position. Device geolocation
// is out of scope; positions come from configuration or from the backend's
// officer_location_update broadcasts.
package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/safih1/policedispatch/core/model"
)

// ErrUnavailable is returned when no position is known.
var ErrUnavailable = errors.New("could not acquire location")

// Provider returns the current officer position.
type Provider interface {
	Current(ctx context.Context) (model.Coordinates, error)
}

// Static always returns the configured position.
type Static struct {
	Position *model.Coordinates
}

func (s Static) Current(context.Context) (model.Coordinates, error) {
	if s.Position == nil {
		return model.Coordinates{}, ErrUnavailable
	}
	return *s.Position, nil
}

// Tracked remembers the last position broadcast for one officer id and falls
// back to another provider when none was seen or the fix is older than
// MaxAge.
type Tracked struct {
	OfficerID int64
	MaxAge    time.Duration
	Fallback  Provider

	mu   sync.RWMutex
	last *model.Coordinates
	at   time.Time
	now  func() time.Time
}

// NewTracked creates a Tracked provider. fallback may be nil.
func NewTracked(officerID int64, maxAge time.Duration, fallback Provider) *Tracked {
	return &Tracked{OfficerID: officerID, MaxAge: maxAge, Fallback: fallback, now: time.Now}
}

// Observe records a broadcast position. Updates for other officers and
// invalid coordinates are ignored. It reports whether the update was kept.
func (t *Tracked) Observe(officerID int64, c model.Coordinates, at time.Time) bool {
	if officerID != t.OfficerID || !c.Valid() {
		return false
	}
	if at.IsZero() {
		at = t.now()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last != nil && at.Before(t.at) {
		return false
	}
	t.last = &c
	t.at = at
	return true
}

func (t *Tracked) Current(ctx context.Context) (model.Coordinates, error) {
	t.mu.RLock()
	last, at := t.last, t.at
	t.mu.RUnlock()
	if last != nil && (t.MaxAge <= 0 || t.now().Sub(at) <= t.MaxAge) {
		return *last, nil
	}
	if t.Fallback != nil {
		return t.Fallback.Current(ctx)
	}
	return model.Coordinates{}, ErrUnavailable
}
