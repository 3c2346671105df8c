package dispatch

import (
	"fmt"
	"time"
)

// Config defines dispatch-related settings.
type Config struct {
	// GraceSeconds delays removal after a backend-driven resolution.
	GraceSeconds int `json:"grace_seconds"`
	// RequestTimeoutSeconds bounds the roster query and the assignment call.
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`
	// AutoAssign turns off the nearest-officer workflow when false.
	AutoAssign *bool `json:"auto_assign"`
}

// SetDefaults applies the baseline 3s grace delay and 10s request timeout.
func (c *Config) SetDefaults() {
	if c.GraceSeconds <= 0 {
		c.GraceSeconds = 3
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 10
	}
	if c.AutoAssign == nil {
		on := true
		c.AutoAssign = &on
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.GraceSeconds > 300 {
		return fmt.Errorf("grace_seconds must be at most 300")
	}
	return nil
}

func (c Config) grace() time.Duration { return time.Duration(c.GraceSeconds) * time.Second }

func (c Config) requestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) autoAssign() bool { return c.AutoAssign == nil || *c.AutoAssign }
