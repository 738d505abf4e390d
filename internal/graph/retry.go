package graph

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig controls retry behavior for node execution.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64

	// Retryable decides whether an error is worth retrying. Nil retries
	// every error.
	Retryable func(error) bool
}

// DefaultRetryConfig retries twice more after the first failure with
// exponential backoff.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// withRetry wraps a node function with the retry policy. Backoff sleeps are
// context-aware so cancellation is never delayed by a pending retry.
func withRetry[S any](fn func(ctx context.Context, state S) (S, error), cfg *RetryConfig) func(ctx context.Context, state S) (S, error) {
	return func(ctx context.Context, state S) (S, error) {
		var zero S
		var lastErr error
		delay := cfg.InitialDelay

		for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return zero, fmt.Errorf("retry cancelled: %w", err)
			}

			out, err := fn(ctx, state)
			if err == nil {
				return out, nil
			}
			lastErr = err

			if cfg.Retryable != nil && !cfg.Retryable(err) {
				return zero, err
			}

			if attempt < cfg.MaxAttempts {
				select {
				case <-time.After(delay):
					delay = min(time.Duration(float64(delay)*cfg.BackoffFactor), cfg.MaxDelay)
				case <-ctx.Done():
					return zero, fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
				}
			}
		}
		return zero, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
	}
}
