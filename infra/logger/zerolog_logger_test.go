package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer func() { assert.NoError(t, os.Unsetenv("APP_ENV")) }()
	l := NewZerologLogger("test")
	require.NotNil(t, l)
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestNewWithWriterLevelAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "dispatcher", "warn")
	l.Infof("hidden")
	l.Warnf("no officers for %s", "E-42")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "dispatcher", rec["component"])
	assert.Equal(t, "warn", rec["level"])
	assert.Equal(t, "no officers for E-42", rec["message"])
}

func TestDebugwFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "c", "debug")
	l.Debugw("frame", map[string]any{"kind": "new_emergency"})
	assert.Contains(t, buf.String(), `"kind":"new_emergency"`)
}
