package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind names a message type on the wire.
type Kind string

const (
	KindNewEmergency          Kind = "new_emergency"
	KindOfficerLocationUpdate Kind = "officer_location_update"
	KindTaskStatusUpdate      Kind = "task_status_update"
	KindThreatResolved        Kind = "threat_resolved"

	KindAcceptEmergency  Kind = "accept_emergency"
	KindLocationUpdate   Kind = "location_update"
	KindResolveEmergency Kind = "resolve_emergency"
)

// ID is a numeric identifier that the backend sometimes encodes as a string
// (user ids taken from URL routes arrive quoted).
type ID int64

func (i *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*i = ID(v)
	return nil
}

// Int64 returns the id as int64.
func (i ID) Int64() int64 { return int64(i) }

// Timestamp accepts RFC3339 strings or epoch milliseconds.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
			if ts, err := time.Parse(layout, s); err == nil {
				t.Time = ts
				return nil
			}
		}
		return fmt.Errorf("invalid timestamp %q", s)
	}
	ms, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s", b)
	}
	t.Time = time.UnixMilli(int64(ms))
	return nil
}
