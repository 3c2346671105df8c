package ws

import (
	"fmt"
	"net/url"
	"time"
)

// Config defines the police channel connection and its reconnect policy.
type Config struct {
	URL                     string `json:"url"`
	InitialBackoffMS        int    `json:"initial_backoff_ms"`
	MaxBackoffMS            int    `json:"max_backoff_ms"`
	MaxAttempts             int    `json:"max_attempts"`
	WriteTimeoutMS          int    `json:"write_timeout_ms"`
	PingIntervalSeconds     int    `json:"ping_interval_seconds"`
	HandshakeTimeoutSeconds int    `json:"handshake_timeout_seconds"`
	ReadLimitBytes          int64  `json:"read_limit_bytes"`
}

// SetDefaults applies the baseline policy: first retry after 3s, doubling up
// to one minute, ten attempts before giving up.
func (c *Config) SetDefaults() {
	if c.InitialBackoffMS <= 0 {
		c.InitialBackoffMS = 3000
	}
	if c.MaxBackoffMS <= 0 {
		c.MaxBackoffMS = 60000
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.WriteTimeoutMS <= 0 {
		c.WriteTimeoutMS = 5000
	}
	if c.HandshakeTimeoutSeconds <= 0 {
		c.HandshakeTimeoutSeconds = 10
	}
	if c.ReadLimitBytes <= 0 {
		c.ReadLimitBytes = 1 << 20
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("ws url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("ws url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("ws url must use ws or wss scheme, got %q", u.Scheme)
	}
	if c.MaxBackoffMS < c.InitialBackoffMS {
		return fmt.Errorf("max_backoff_ms must be >= initial_backoff_ms")
	}
	return nil
}

func (c Config) initialBackoff() time.Duration {
	return time.Duration(c.InitialBackoffMS) * time.Millisecond
}

func (c Config) maxBackoff() time.Duration { return time.Duration(c.MaxBackoffMS) * time.Millisecond }

func (c Config) writeTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}

func (c Config) pingInterval() time.Duration {
	return time.Duration(c.PingIntervalSeconds) * time.Second
}
