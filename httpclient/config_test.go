package httpclient

import (
	"testing"
	"time"

	"github.com/kbukum/rtdbkit/resilience"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", cfg.Timeout)
	}
	if cfg.Name != "httpclient" {
		t.Errorf("expected default name 'httpclient', got %q", cfg.Name)
	}
}

func TestConfig_ApplyDefaults_PreservesExisting(t *testing.T) {
	cfg := Config{Name: "rtdb", Timeout: 10 * time.Second}
	cfg.ApplyDefaults()
	if cfg.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Timeout)
	}
	if cfg.Name != "rtdb" {
		t.Errorf("expected name 'rtdb', got %q", cfg.Name)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Timeout: 10 * time.Second}, false},
		{"negative timeout", Config{Timeout: -1}, true},
		{"negative retry attempts", Config{Timeout: time.Second, Retry: &resilience.RetryConfig{MaxAttempts: -1}}, true},
		{"negative breaker failures", Config{Timeout: time.Second, CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: -2}}, true},
		{"with defaults", Config{Timeout: time.Second, Retry: DefaultRetryConfig(), CircuitBreaker: DefaultCircuitBreakerConfig("x")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.MaxAttempts <= 0 {
		t.Error("expected positive MaxAttempts")
	}
	if cfg.RetryIf == nil {
		t.Error("expected RetryIf to be set")
	}
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("test")
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.Name != "test" {
		t.Errorf("expected name 'test', got %q", cfg.Name)
	}
}
