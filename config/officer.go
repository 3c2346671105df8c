package config

import (
	"fmt"
	"time"

	"github.com/safih1/policedispatch/core/model"
)

// OfficerConfig identifies the officer operating this session.
type OfficerConfig struct {
	// ID matches officer_location_update broadcasts to this session.
	ID int64 `json:"id"`
	// Position is the fallback used when no fresh broadcast is known.
	Position *model.Coordinates `json:"position"`
	// MaxAgeSeconds bounds how old a broadcast position may be.
	MaxAgeSeconds int `json:"max_age_seconds"`
}

func (c *OfficerConfig) SetDefaults() {
	if c.MaxAgeSeconds <= 0 {
		c.MaxAgeSeconds = 120
	}
}

func (c OfficerConfig) Validate() error {
	if c.Position != nil && !c.Position.Valid() {
		return fmt.Errorf("position %s is out of range", c.Position)
	}
	return nil
}

// MaxAge returns the broadcast freshness window.
func (c OfficerConfig) MaxAge() time.Duration { return time.Duration(c.MaxAgeSeconds) * time.Second }
