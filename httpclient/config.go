package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/rtdbkit/resilience"
)

const (
	defaultTimeout = 30 * time.Second
	defaultName    = "httpclient"
)

// Config configures the HTTP adapter.
type Config struct {
	// Name identifies the adapter in spans, metrics and circuit breaker state.
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is the base URL prepended to all request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout is the default request timeout. Defaults to 30s.
	// Streaming requests are bounded by their context only.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Retry configures retry behavior. Nil disables retry.
	Retry *resilience.RetryConfig `yaml:"-" mapstructure:"-"`

	// CircuitBreaker configures circuit breaker behavior. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.Retry != nil && c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("httpclient: retry max attempts must not be negative")
	}
	if c.CircuitBreaker != nil && c.CircuitBreaker.MaxFailures < 0 {
		return fmt.Errorf("httpclient: circuit breaker max failures must not be negative")
	}
	return nil
}

// DefaultRetryConfig returns a default retry config suitable for HTTP clients.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}

// DefaultCircuitBreakerConfig returns a default circuit breaker config.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	return &cfg
}
