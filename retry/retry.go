// Package retry provides generic operation retry with exponential backoff.
//
// A Policy bounds the number of attempts and shapes the backoff; a Classifier
// decides which failures are transient. Fatal failures propagate immediately,
// and when attempts are exhausted the last failure is returned unchanged so
// callers can still inspect the original cause with errors.Is / errors.As.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Classifier reports whether an error is transient and worth retrying
type Classifier func(error) bool

// Policy controls retry behavior for a wrapped operation
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first
	// default: 3
	MaxAttempts int `mapstructure:"max_attempts"`
	// BaseDelay is the delay before the second attempt; it doubles each
	// attempt after that
	// default: 500ms
	BaseDelay time.Duration `mapstructure:"base_delay"`
	// MaxDelay caps the per-attempt backoff delay
	// default: 30s
	MaxDelay time.Duration `mapstructure:"max_delay"`
	// Jitter randomizes each delay within ±50% to avoid synchronized retries
	Jitter bool `mapstructure:"jitter"`
	// Retryable classifies failures; a nil classifier retries everything
	Retryable Classifier `mapstructure:"-"`
}

// DefaultPolicy returns a policy with default attempts and backoff
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
	}
}

// MergeDefaults fills zero fields with default values and returns the policy
func (p Policy) MergeDefaults() Policy {
	defaults := DefaultPolicy()
	if p.MaxAttempts == 0 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	if p.BaseDelay == 0 {
		p.BaseDelay = defaults.BaseDelay
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = defaults.MaxDelay
	}
	return p
}

// Validate validates the policy
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts(p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return ErrInvalidDelay(p.BaseDelay)
	}
	return nil
}

// Do runs op until it succeeds, fails fatally, or the policy's attempts are
// exhausted. The context is checked between attempts, and its error is
// returned if it is done while waiting to retry.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	p = p.MergeDefaults()
	if err := p.Validate(); err != nil {
		return zero, err
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.delay(attempt)); err != nil {
				return zero, err
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, lastErr
}

// Run is Do for operations without a result
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// delay computes the backoff before the given attempt (attempt >= 2):
// base, 2*base, 4*base, ... capped at MaxDelay
func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 2)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	if p.Jitter && d > 0 {
		// ±50%
		d = d/2 + time.Duration(rand.Int63n(int64(d)))
	}
	return d
}

// sleep waits for d or until the context is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
