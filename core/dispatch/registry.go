package dispatch

import "github.com/safih1/policedispatch/core/model"

// Registry maps an emergency id to the officer the backend assigned to it.
// It is owned by the Dispatcher and only touched on the session loop.
type Registry struct {
	byEmergency map[string]model.Officer
}

func newRegistry() *Registry {
	return &Registry{byEmergency: make(map[string]model.Officer)}
}

func (r *Registry) set(emergencyID string, o model.Officer) { r.byEmergency[emergencyID] = o }

func (r *Registry) remove(emergencyID string) { delete(r.byEmergency, emergencyID) }

// Get returns the officer assigned to emergencyID.
func (r *Registry) Get(emergencyID string) (model.Officer, bool) {
	o, ok := r.byEmergency[emergencyID]
	return o, ok
}

// Snapshot returns a copy of all assignments.
func (r *Registry) Snapshot() map[string]model.Officer {
	out := make(map[string]model.Officer, len(r.byEmergency))
	for k, v := range r.byEmergency {
		out[k] = v
	}
	return out
}

// Len returns the number of assignments.
func (r *Registry) Len() int { return len(r.byEmergency) }
