package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/safih1/policedispatch/core/dispatch"
	"github.com/safih1/policedispatch/core/metrics"
	"github.com/safih1/policedispatch/core/telemetry"
	"github.com/safih1/policedispatch/infra/monitoring"
	"github.com/safih1/policedispatch/infra/mqtt"
	"github.com/safih1/policedispatch/infra/ws"
)

type Config struct {
	Backend    BackendConfig     `json:"backend"`
	Connection ws.Config         `json:"connection"`
	Dispatch   dispatch.Config   `json:"dispatch"`
	Telemetry  telemetry.Config  `json:"telemetry"`
	Officer    OfficerConfig     `json:"officer"`
	Metrics    metrics.Config    `json:"metrics"`
	Journal    JournalConfig     `json:"journal"`
	MQTT       mqtt.Config       `json:"mqtt"`
	Sentry     monitoring.Config `json:"sentry"`
	API        APIConfig         `json:"api"`
}

// Load reads a YAML or JSON file, applies K_ environment overrides
// (K_DISPATCH__GRACE_SECONDS sets dispatch.grace_seconds), fills defaults and
// validates every area.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every area. The channel URL falls back to backend.ws_url.
func (c *Config) SetDefaults() {
	if c.Connection.URL == "" {
		c.Connection.URL = c.Backend.WSURL
	}
	c.Connection.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Telemetry.SetDefaults()
	c.Officer.SetDefaults()
	c.Journal.SetDefaults()
	c.MQTT.SetDefaults()
}

// Validate joins the validation errors of every area.
func (c Config) Validate() error {
	var errs []error
	check := func(area string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", area, err))
		}
	}
	check("backend", c.Backend.Validate())
	check("connection", c.Connection.Validate())
	check("dispatch", c.Dispatch.Validate())
	check("telemetry", c.Telemetry.Validate())
	check("officer", c.Officer.Validate())
	check("journal", c.Journal.Validate())
	check("mqtt", c.MQTT.Validate())
	check("sentry", c.Sentry.Validate())
	check("api", c.API.Validate())
	return errors.Join(errs...)
}
