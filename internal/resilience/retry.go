// Package resilience provides the retry and circuit breaker primitives used by
// the remote-service adapters.
package resilience

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Retry configuration constants
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 1500 * time.Millisecond
	DefaultMaxDelay  = 5 * time.Second
)

// RetryConfig holds retry settings.
// The delay before attempt n+1 is BaseDelay*n, capped at MaxDelay.
type RetryConfig struct {
	Attempts    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	IsRetryable func(error) bool
}

// DefaultRetryConfig returns the translation endpoint retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:    DefaultAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		IsRetryable: AlwaysRetry,
	}
}

// AlwaysRetry treats every error as transient.
func AlwaysRetry(err error) bool {
	return err != nil
}

// Retry executes fn up to cfg.Attempts times with linear backoff between
// attempts. fn receives the 1-based attempt number. Returns the last error if
// every attempt fails, or the context error if ctx ends while waiting.
func Retry(ctx context.Context, cfg RetryConfig, fn func(attempt int) error) error {
	cfg = cfg.withDefaults()
	var lastErr error

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(attempt); lastErr == nil {
			return nil
		}

		if !cfg.IsRetryable(lastErr) || attempt == cfg.Attempts {
			return lastErr
		}

		delay := backoffDelay(cfg, attempt)
		log.Debug().
			Int("attempt", attempt).
			Int("max", cfg.Attempts).
			Dur("delay", delay).
			Err(lastErr).
			Msg("retrying after error")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// backoffDelay grows linearly with the attempt number.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := cfg.BaseDelay * time.Duration(attempt)
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.Attempts <= 0 {
		c.Attempts = DefaultAttempts
	}
	if c.BaseDelay < 0 {
		c.BaseDelay = 0
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.IsRetryable == nil {
		c.IsRetryable = AlwaysRetry
	}
	return c
}
