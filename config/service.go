package config

import (
	"fmt"

	"github.com/kbukum/rtdbkit/logger"
	"github.com/kbukum/rtdbkit/validation"
)

// ServiceConfig contains the fields every command needs. Embed it with
// mapstructure:",squash" to extend it.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string        `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging" validate:"-"`
}

// GetServiceConfig returns the base ServiceConfig. Promoted through
// embedding.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults applies default values. Embedding structs that override
// it call c.ServiceConfig.ApplyDefaults() first.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the base configuration fields.
func (c *ServiceConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
