package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ConfigError is a fatal configuration problem: missing or unusable
// credentials. It is never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("upstream: configuration error: %s", e.Reason)
}

// TransientError is a failure worth retrying: network trouble, rate
// limiting (429) or a server-side error (5xx).
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream: transient failure (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upstream: transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError is a failure that retrying will not fix: rejected
// authentication or a malformed response.
type FatalError struct {
	Status int
	Err    error
}

func (e *FatalError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream: fatal failure (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upstream: fatal failure: %v", e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// ErrMissingCredential returns a ConfigError for an absent credential field
func ErrMissingCredential(field string) error {
	return &ConfigError{Reason: fmt.Sprintf("missing %s", field)}
}

// IsTransient reports whether an upstream failure should be retried.
// It is the classifier handed to the retry wrapper for fetch operations.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return false
	}
	var config *ConfigError
	if errors.As(err, &config) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
