package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2,
	}
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastRetry(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("got %q after %d calls", got, calls)
	}
}

func TestRetry_ExceedsMaxAttempts(t *testing.T) {
	sentinel := errors.New("always")
	calls := 0
	err := RetryFunc(context.Background(), fastRetry(2), func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("expected last error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestRetry_RetryIfFilter(t *testing.T) {
	permanent := errors.New("permanent")
	cfg := fastRetry(5)
	cfg.RetryIf = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	err := RetryFunc(context.Background(), cfg, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Errorf("expected one call returning permanent, got %d calls, err=%v", calls, err)
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry(10)
	cfg.InitialBackoff = time.Second
	cfg.MaxBackoff = time.Second
	cfg.OnRetry = func(int, error, time.Duration) { cancel() }

	err := RetryFunc(ctx, cfg, func() error { return errors.New("x") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{5, time.Second},
	}
	for _, tt := range tests {
		if got := cfg.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDefaultRetryIf(t *testing.T) {
	if DefaultRetryIf(context.Canceled) {
		t.Error("context.Canceled should not be retried")
	}
	if !DefaultRetryIf(errors.New("x")) {
		t.Error("plain errors should be retried")
	}
}
