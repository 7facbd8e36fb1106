package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/multierr"
)

// RetryConfig holds configuration for the exponential backoff retry logic.
type RetryConfig struct {
	MaxRetries int           // attempts after the first one
	BaseDelay  time.Duration // initial delay before first retry
	MaxDelay   time.Duration // cap on any single delay

	// ShouldRetry decides whether an error is worth another attempt.
	// Defaults to IsServerError.
	ShouldRetry func(error) bool
}

// DefaultRetryConfig returns sensible defaults for retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   30 * time.Second,
	}
}

// RetryableFunc is one attempt. attempt starts at 0.
type RetryableFunc func(ctx context.Context, attempt int) error

// Retry executes fn with exponential backoff and full jitter:
//
//	delay = rand(0, min(maxDelay, baseDelay * 2^attempt))
//
// Non-retryable errors are returned unwrapped and immediately.
func Retry(ctx context.Context, cfg RetryConfig, fn RetryableFunc) error {
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsServerError
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("retry: cancelled after %d attempts: %w", attempt, multierr.Combine(err, lastErr))
			}
			return fmt.Errorf("retry: %w", err)
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if !shouldRetry(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxRetries {
			break
		}

		t := time.NewTimer(calculateDelay(attempt, cfg.BaseDelay, cfg.MaxDelay))
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry: cancelled during backoff: %w", multierr.Combine(ctx.Err(), lastErr))
		case <-t.C:
		}
	}

	return fmt.Errorf("retry: max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}

// calculateDelay computes the full-jitter backoff for the given attempt, at least 1ms.
func calculateDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	expDelay := float64(baseDelay) * math.Pow(2, float64(attempt))
	if maxDelay > 0 && expDelay > float64(maxDelay) {
		expDelay = float64(maxDelay)
	}

	jittered := time.Duration(rand.Float64() * expDelay)
	if jittered < time.Millisecond {
		jittered = time.Millisecond
	}
	return jittered
}
