package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/safih1/policedispatch/core/coordinator"
	"github.com/safih1/policedispatch/core/events"
	"github.com/safih1/policedispatch/core/journal"
	"github.com/safih1/policedispatch/core/loop"
	"github.com/safih1/policedispatch/core/model"
	"github.com/safih1/policedispatch/core/transport"
)

// Session is the operator surface of a coordinator.
type Session interface {
	State(ctx context.Context) (coordinator.StateView, error)
	AcceptEmergency(ctx context.Context, id string) (model.Emergency, error)
	DeclineEmergency(ctx context.Context, id string) (model.Emergency, error)
	ResolveEmergency(ctx context.Context) (model.Emergency, error)
	MarkOnScene(ctx context.Context) error
	Reconnect()
}

type errorBody struct {
	Error string `json:"error"`
}

// NewHandler returns the operator API:
//
//	GET  /api/state
//	POST /api/emergencies/{id}/accept
//	POST /api/emergencies/{id}/decline
//	POST /api/resolve
//	POST /api/on-scene
//	POST /api/reconnect
//	GET  /api/journal
//
// Requests must include an Authorization header with "Bearer <token>" when
// token is non-empty. A nil store disables the journal route.
func NewHandler(s Session, store journal.Store, token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", func(w http.ResponseWriter, r *http.Request) {
		v, err := s.State(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	})
	mux.HandleFunc("POST /api/emergencies/{id}/accept", func(w http.ResponseWriter, r *http.Request) {
		e, err := s.AcceptEmergency(r.Context(), r.PathValue("id"))
		respond(w, e, err)
	})
	mux.HandleFunc("POST /api/emergencies/{id}/decline", func(w http.ResponseWriter, r *http.Request) {
		e, err := s.DeclineEmergency(r.Context(), r.PathValue("id"))
		respond(w, e, err)
	})
	mux.HandleFunc("POST /api/resolve", func(w http.ResponseWriter, r *http.Request) {
		e, err := s.ResolveEmergency(r.Context())
		respond(w, e, err)
	})
	mux.HandleFunc("POST /api/on-scene", func(w http.ResponseWriter, r *http.Request) {
		if err := s.MarkOnScene(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/reconnect", func(w http.ResponseWriter, _ *http.Request) {
		s.Reconnect()
		w.WriteHeader(http.StatusAccepted)
	})
	if store != nil {
		mux.HandleFunc("GET /api/journal", journalHandler(store))
	}
	return requireToken(token, mux)
}

func requireToken(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func journalHandler(store journal.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := journal.Query{}
		if s := r.URL.Query().Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := r.URL.Query().Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		q.EmergencyID = r.URL.Query().Get("emergency_id")
		q.Kind = events.LifecycleKind(r.URL.Query().Get("kind"))
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []journal.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func respond(w http.ResponseWriter, e model.Emergency, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// statusFor maps coordinator errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, coordinator.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, coordinator.ErrNotPending),
		errors.Is(err, coordinator.ErrAlreadyResponding),
		errors.Is(err, coordinator.ErrNotResponding):
		return http.StatusConflict
	case errors.Is(err, coordinator.ErrLocationUnavailable),
		errors.Is(err, loop.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, transport.ErrNotConnected),
		errors.Is(err, transport.ErrClosed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
