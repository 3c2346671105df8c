package telemetry

import (
	"fmt"
	"time"
)

// Config controls the position stream sent while responding.
type Config struct {
	IntervalSeconds int `json:"interval_seconds"`
	ETAMinutes      int `json:"eta_minutes"`
}

// SetDefaults applies a 5s push interval and a fixed 5 minute ETA.
func (c *Config) SetDefaults() {
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 5
	}
	if c.ETAMinutes <= 0 {
		c.ETAMinutes = 5
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.IntervalSeconds > 3600 {
		return fmt.Errorf("interval_seconds must be at most 3600")
	}
	return nil
}

// Interval returns the push period.
func (c Config) Interval() time.Duration { return time.Duration(c.IntervalSeconds) * time.Second }
