// Package utils holds small helpers shared across packages.
package utils

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig controls how Retry paces its attempts.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        float64 // fraction of each delay randomized, 0 disables
}

// DefaultRetryConfig returns the pacing used for webhook delivery.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        0.2,
	}
}

// Retry runs fn up to MaxAttempts times, backing off exponentially between
// failures. The backoff sleep aborts as soon as ctx is cancelled.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}

		// No sleep after the final attempt
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(withJitter(delay, cfg.Jitter)):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}

// withJitter spreads d by up to frac in either direction.
func withJitter(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	spread := (rand.Float64()*2 - 1) * frac * float64(d)
	return d + time.Duration(spread)
}
