package officers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safih1/policedispatch/core/dispatch"
)

const roster = `[
 {"id":1,"badge_number":"B-1","name":"Officer A","status":"free","location":{"latitude":34.2,"longitude":73.24},"last_update":"2026-01-01T10:00:00Z"},
 {"id":2,"badge_number":"B-2","name":"Officer B","status":"free","location":{"latitude":null,"longitude":null},"last_update":null},
 {"id":3,"badge_number":"B-3","name":"Officer C","status":"free","location":null}
]`

func TestAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/emergency/police/officers/available/", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(roster))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/emergency/police/", nil, nil)
	officers, err := c.Available(context.Background())
	require.NoError(t, err)
	require.Len(t, officers, 3)
	require.NotNil(t, officers[0].Coordinates)
	assert.Equal(t, 34.2, officers[0].Coordinates.Lat)
	assert.Equal(t, "B-1", officers[0].BadgeNumber)
	require.NotNil(t, officers[0].LastUpdate)
	assert.Nil(t, officers[1].Coordinates)
	assert.Nil(t, officers[2].Coordinates)
}

func TestAvailableError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Admin access required"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil, nil).Available(context.Background())
	var qe *dispatch.AvailabilityQueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, http.StatusForbidden, qe.StatusCode)
	assert.Contains(t, qe.Error(), "Admin access required")
}

func TestAssign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dispatch/assign/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]int64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]int64{"officer_id": 1, "emergency_id": 42}, body)
		_, _ = w.Write([]byte(`{"message":"Officer assigned successfully","task_id":9,"officer":{"id":1,"badge_number":"B-1","name":"Officer A"}}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, nil, nil).Assign(context.Background(), 1, 42)
	require.NoError(t, err)
	assert.Equal(t, "9", res.TaskID)
	assert.Equal(t, "Officer A", res.Officer.Name)
	assert.Equal(t, "Officer assigned successfully", res.Message)
}

func TestAssignRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Officer is not available"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil, nil).Assign(context.Background(), 1, 42)
	var ae *dispatch.AssignmentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusBadRequest, ae.StatusCode)
	assert.Equal(t, int64(42), ae.AlertID)
	assert.Equal(t, "Officer is not available", ae.Err.Error())
}

func TestAssignUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := New(srv.URL, nil, nil).Assign(context.Background(), 1, 42)
	var ae *dispatch.AssignmentError
	require.ErrorAs(t, err, &ae)
	assert.Zero(t, ae.StatusCode)
}

func TestClientHitsSlashedRoutes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/officers/available/{$}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("POST /api/dispatch/assign/{$}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":"ok","task_id":1,"officer":{"id":1,"name":"Officer A"}}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL+"/api", nil, nil)
	officers, err := c.Available(context.Background())
	require.NoError(t, err)
	assert.Empty(t, officers)

	res, err := c.Assign(context.Background(), 1, 42)
	require.NoError(t, err)
	assert.Equal(t, "Officer A", res.Officer.Name)
}
