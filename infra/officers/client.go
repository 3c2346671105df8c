// Package officers is the HTTP client for the officer roster and assignment
// endpoints of the dispatch backend.
package officers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/safih1/policedispatch/core/dispatch"
	"github.com/safih1/policedispatch/core/logger"
	"github.com/safih1/policedispatch/core/model"
	"github.com/safih1/policedispatch/core/protocol"
)

// Client implements dispatch.OfficerDirectory and dispatch.Assigner.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

// New creates a Client for baseURL, e.g.
// http://host:8000/api/emergency/police. The http client is expected to add
// authentication.
func New(baseURL string, httpClient *http.Client, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: httpClient, log: logger.OrNop(log)}
}

type rosterEntry struct {
	ID          protocol.ID `json:"id"`
	BadgeNumber string      `json:"badge_number"`
	Name        string      `json:"name"`
	Status      string      `json:"status"`
	Location    *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"location"`
	LastUpdate *protocol.Timestamp `json:"last_update"`
}

func (e rosterEntry) officer() model.Officer {
	o := model.Officer{
		ID:          e.ID.Int64(),
		Name:        e.Name,
		BadgeNumber: e.BadgeNumber,
		Status:      e.Status,
	}
	if e.Location != nil && e.Location.Latitude != nil && e.Location.Longitude != nil {
		c := model.Coordinates{Lat: *e.Location.Latitude, Lng: *e.Location.Longitude}
		if c.Valid() {
			o.Coordinates = &c
		}
	}
	if e.LastUpdate != nil && !e.LastUpdate.IsZero() {
		t := e.LastUpdate.Time
		o.LastUpdate = &t
	}
	return o
}

// Available returns the officers currently on duty. Entries without a
// position are returned with nil Coordinates.
func (c *Client) Available(ctx context.Context) ([]model.Officer, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/officers/available/", nil)
	if err != nil {
		return nil, &dispatch.AvailabilityQueryError{Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &dispatch.AvailabilityQueryError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		return nil, &dispatch.AvailabilityQueryError{StatusCode: resp.StatusCode, Err: errorBody(resp.Body)}
	}
	var entries []rosterEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, &dispatch.AvailabilityQueryError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode roster: %w", err)}
	}
	out := make([]model.Officer, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.officer())
	}
	c.log.Debugf("officers: %d available", len(out))
	return out, nil
}

type assignRequest struct {
	OfficerID   int64 `json:"officer_id"`
	EmergencyID int64 `json:"emergency_id"`
}

type assignResponse struct {
	Message string      `json:"message"`
	TaskID  protocol.ID `json:"task_id"`
	Officer struct {
		ID          protocol.ID `json:"id"`
		BadgeNumber string      `json:"badge_number"`
		Name        string      `json:"name"`
	} `json:"officer"`
}

// Assign commits officerID to the emergency with backend id alertID.
func (c *Client) Assign(ctx context.Context, officerID, alertID int64) (dispatch.Assignment, error) {
	fail := func(status int, err error) (dispatch.Assignment, error) {
		return dispatch.Assignment{}, &dispatch.AssignmentError{OfficerID: officerID, AlertID: alertID, StatusCode: status, Err: err}
	}
	body, err := json.Marshal(assignRequest{OfficerID: officerID, EmergencyID: alertID})
	if err != nil {
		return fail(0, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/dispatch/assign/", body)
	if err != nil {
		return fail(0, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		return fail(resp.StatusCode, errorBody(resp.Body))
	}
	var ar assignResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("decode assignment: %w", err))
	}
	return dispatch.Assignment{
		TaskID:  strconv.FormatInt(ar.TaskID.Int64(), 10),
		Message: ar.Message,
		Officer: model.Officer{ID: ar.Officer.ID.Int64(), Name: ar.Officer.Name, BadgeNumber: ar.Officer.BadgeNumber},
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// errorBody extracts the {"error": "..."} message of a failed response.
func errorBody(r io.Reader) error {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return errors.New(body.Error)
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = "empty response"
	}
	return errors.New(msg)
}
