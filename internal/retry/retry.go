// Package retry provides a single configurable retry policy applied at the
// quote-provider and swap-submission boundaries. Venue adapters must not
// implement their own per-call retry loops.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy describes how an operation is retried.
type Policy struct {
	MaxAttempts  int           // total attempts including the first; <=0 means 1
	InitialDelay time.Duration // delay before the second attempt
	MaxDelay     time.Duration // cap for the exponential delay
	Multiplier   float64       // delay growth factor; <=1 means fixed delay
}

// DefaultPolicy retries twice more after the initial failure with a short
// exponential backoff. Suitable for transient RPC errors.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}
}

// Permanent marks err as not retryable. Do wraps and stops immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Do runs fn under the policy, returning the first successful result.
// It stops early on context cancellation or a Permanent error and returns
// the last error observed.
func Do[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	delay := policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}

		if policy.Multiplier > 1 {
			delay = time.Duration(float64(delay) * policy.Multiplier)
		}
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return zero, fmt.Errorf("retry: %d attempt(s) failed: %w", attempts, lastErr)
}
