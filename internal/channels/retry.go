package channels

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy bounds a retried provider call.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration // doubled after each failed attempt
	MaxDelay    time.Duration
}

// DefaultPolicy matches the historical provider behavior: three attempts
// with 1s, 2s backoff.
var DefaultPolicy = Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 2 * time.Minute}

// Retryable reports whether an error is worth retrying: transport failures,
// rate limits, and server errors are; other client errors are not.
func Retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 {
			return true
		}
		return apiErr.StatusCode >= 500
	}
	// Transport-level failure; the request may never have arrived.
	return true
}

// Retry runs fn with exponential backoff per the policy. It stops early on
// context cancellation or a non-retryable error, returning the last error.
func Retry(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	delay := policy.BaseDelay
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("channels: retry aborted: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
			if policy.MaxDelay > 0 && delay > policy.MaxDelay {
				delay = policy.MaxDelay
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("channels: %d attempts failed: %w", policy.MaxAttempts, lastErr)
}
