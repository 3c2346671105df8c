package config

import (
	"fmt"
	"net/url"

	"github.com/safih1/policedispatch/auth"
)

// BackendConfig locates the dispatch backend.
type BackendConfig struct {
	// WSURL is the police channel endpoint.
	WSURL string `json:"ws_url"`
	// APIURL is the base of the roster and assignment API.
	APIURL string    `json:"api_url"`
	Auth   auth.Conf `json:"auth"`
}

// Validate checks the API base URL.
func (c BackendConfig) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("api_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_url must use http or https scheme, got %q", u.Scheme)
	}
	return nil
}
