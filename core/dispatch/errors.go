package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOfficersAvailable is the legitimate terminal branch where nobody is
	// on duty with a known position. The emergency stays pending for manual
	// accept.
	ErrNoOfficersAvailable = errors.New("no officers available")
	// ErrDuplicateEmergency marks an emergency already present in the store.
	// It is absorbed, never surfaced.
	ErrDuplicateEmergency = errors.New("duplicate emergency")
	// ErrMissingCoordinates rejects assignment for an emergency without a
	// position.
	ErrMissingCoordinates = errors.New("emergency has no coordinates")
)

// AvailabilityQueryError reports a failed officer roster query.
type AvailabilityQueryError struct {
	StatusCode int
	Err        error
}

func (e *AvailabilityQueryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("officer availability query failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("officer availability query failed: %v", e.Err)
}

func (e *AvailabilityQueryError) Unwrap() error { return e.Err }

// AssignmentError reports an assignment command rejected by the backend.
type AssignmentError struct {
	OfficerID  int64
	AlertID    int64
	StatusCode int
	Err        error
}

func (e *AssignmentError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("assign officer %d to emergency %d failed (status %d): %v", e.OfficerID, e.AlertID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("assign officer %d to emergency %d failed: %v", e.OfficerID, e.AlertID, e.Err)
}

func (e *AssignmentError) Unwrap() error { return e.Err }

// ErrNotPending is returned when an operator acts on an emergency that was
// already taken by another path.
var ErrNotPending = errors.New("emergency is no longer pending")
