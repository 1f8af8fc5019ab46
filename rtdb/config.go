package rtdb

import (
	"time"

	"github.com/kbukum/rtdbkit/resilience"
)

const defaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	// URL is the database root or any path below it.
	URL string `yaml:"url" mapstructure:"url" validate:"required,endpoint"`
	// Timeout bounds REST calls. Streams are bounded by their context only.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	// Retry enables retries of REST calls. Nil disables them. Set (POST)
	// and Update (PATCH) are never retried.
	Retry *resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
	// CircuitBreaker fails REST calls fast after repeated failures. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}
