package main

import (
	"fmt"

	"github.com/kbukum/rtdbkit/config"
	"github.com/kbukum/rtdbkit/observability"
	"github.com/kbukum/rtdbkit/rtdb"
	"github.com/kbukum/rtdbkit/validation"
	"github.com/kbukum/rtdbkit/version"
)

const serviceName = "rtdb"

// Config is the configuration of the rtdb command.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	RTDB                 rtdb.Config          `yaml:"rtdb" mapstructure:"rtdb"`
	Observability        observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.Get().Short()
	}
	c.ServiceConfig.ApplyDefaults()
	c.RTDB.ApplyDefaults()

	d := observability.DefaultConfig(c.Name)
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = d.ServiceName
	}
	if c.Observability.ServiceVersion == "" {
		c.Observability.ServiceVersion = c.Version
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	if c.Observability.Endpoint == "" {
		c.Observability.Endpoint = d.Endpoint
	}
	if c.Observability.SampleRate == 0 {
		c.Observability.SampleRate = d.SampleRate
	}
	if c.Observability.Interval == 0 {
		c.Observability.Interval = d.Interval
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if c.RTDB.URL == "" {
		return fmt.Errorf("database URL is required: pass --url or set RTDB_URL")
	}
	if err := validation.Validate(&c.RTDB); err != nil {
		return fmt.Errorf("rtdb: %w", err)
	}
	if err := validation.Validate(&c.Observability); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(f *globalFlags) (*Config, error) {
	var opts []config.LoaderOption
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		opts = append(opts, config.WithEnvFile(f.envFile))
	}

	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	if f.url != "" {
		cfg.RTDB.URL = f.url
	}
	if f.timeout > 0 {
		cfg.RTDB.Timeout = f.timeout
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
