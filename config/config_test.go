package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `backend:
  ws_url: "ws://192.168.1.8:8000/ws/police/"
  api_url: "http://192.168.1.8:8000/api/emergency/police"
  auth:
    token: "secret"
connection:
  max_attempts: 5
dispatch:
  grace_seconds: 4
telemetry:
  interval_seconds: 2
officer:
  id: 3
  position:
    lat: 34.2
    lng: 73.24
metrics:
  sinks:
    - type: "nop"
  prometheus_addr: ":9100"
journal:
  path: "journal.jsonl"
  max_backups: 2
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  topic_prefix: "unit3"
api:
  addr: ":8080"
  token: "op"
`

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sample))
	require.NoError(t, err)

	assert.Equal(t, "ws://192.168.1.8:8000/ws/police/", cfg.Connection.URL)
	assert.Equal(t, "secret", cfg.Backend.Auth.Token)
	assert.Equal(t, 5, cfg.Connection.MaxAttempts)
	assert.Equal(t, 3000, cfg.Connection.InitialBackoffMS)
	assert.Equal(t, 4, cfg.Dispatch.GraceSeconds)
	assert.Equal(t, 10, cfg.Dispatch.RequestTimeoutSeconds)
	assert.Equal(t, 2, cfg.Telemetry.IntervalSeconds)
	assert.Equal(t, 5, cfg.Telemetry.ETAMinutes)
	assert.Equal(t, int64(3), cfg.Officer.ID)
	require.NotNil(t, cfg.Officer.Position)
	assert.InDelta(t, 73.24, cfg.Officer.Position.Lng, 1e-9)
	require.Len(t, cfg.Metrics.Sinks, 1)
	assert.Equal(t, "nop", cfg.Metrics.Sinks[0].Type)
	assert.Equal(t, "jsonl", cfg.Journal.Backend)
	assert.Equal(t, 10, cfg.Journal.MaxSizeMB)
	assert.Equal(t, "unit3", cfg.MQTT.TopicPrefix)
	assert.Equal(t, ":8080", cfg.API.Addr)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("K_DISPATCH__GRACE_SECONDS", "7")
	cfg, err := Load(writeConfig(t, "config.yaml", sample))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Dispatch.GraceSeconds)
}

func TestLoadJSON(t *testing.T) {
	data := `{"backend":{"ws_url":"wss://example.org/ws/police/","api_url":"https://example.org/api"}}`
	cfg, err := Load(writeConfig(t, "config.json", data))
	require.NoError(t, err)
	assert.Equal(t, "wss://example.org/ws/police/", cfg.Connection.URL)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", ""))
	assert.Error(t, err)
}

func TestValidateJoinsAreaErrors(t *testing.T) {
	data := `backend:
  ws_url: "http://wrong"
api:
  addr: ":8080"
`
	_, err := Load(writeConfig(t, "config.yaml", data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend: api_url is required")
	assert.Contains(t, err.Error(), "connection: ws url must use ws or wss scheme")
	assert.Contains(t, err.Error(), "api: token is required")
}
