package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Predefined errors
var (
	// ErrKeyNotFound is returned when a key or hash field does not exist
	ErrKeyNotFound = fmt.Errorf("store: key not found")
)

// Error constructors

// ErrInvalidAddr returns an error for an invalid address
func ErrInvalidAddr(addr string) error {
	return fmt.Errorf("store: invalid addr: %q (must be non-empty)", addr)
}

// ErrInvalidDB returns an error for an invalid database number
func ErrInvalidDB(db int) error {
	return fmt.Errorf("store: invalid db: %d (must be >= 0)", db)
}

// ErrInvalidPoolSize returns an error for an invalid pool size
func ErrInvalidPoolSize(size int) error {
	return fmt.Errorf("store: invalid pool size: %d (must be >= 0)", size)
}

// ErrInvalidTimeout returns an error for a negative timeout
func ErrInvalidTimeout() error {
	return fmt.Errorf("store: invalid timeout (must be >= 0)")
}

// ErrConnect wraps a connection establishment failure
func ErrConnect(err error) error {
	return fmt.Errorf("store: failed to connect: %w", err)
}

// ErrUnsupportedOp returns an error for an unknown batch op kind
func ErrUnsupportedOp(kind OpKind) error {
	return fmt.Errorf("store: unsupported batch op kind: %d", kind)
}

// IsRetryable reports whether a store error looks like a transient
// transport failure worth retrying. Absence of a key is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrKeyNotFound) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := err.Error()
	retryable := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"too many connections",
		"LOADING",
		"READONLY",
		"network is unreachable",
	}
	for _, s := range retryable {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}
