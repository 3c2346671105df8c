package config

import "fmt"

// APIConfig configures the operator HTTP API. An empty Addr disables it.
type APIConfig struct {
	Addr  string `json:"addr"`
	Token string `json:"token"`
}

func (c APIConfig) Validate() error {
	if c.Addr != "" && c.Token == "" {
		return fmt.Errorf("token is required when addr is set")
	}
	return nil
}
