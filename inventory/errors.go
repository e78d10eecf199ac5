package inventory

import (
	"fmt"
	"time"
)

// Predefined errors
var (
	// ErrRefreshInProgress is returned when another caller or instance
	// holds the refresh lock. It is surfaced immediately and never retried
	// by the coordinator; callers decide whether to wait and re-check.
	ErrRefreshInProgress = fmt.Errorf("inventory: refresh already in progress")

	// ErrItemNotFound is returned when a SKU is absent from the snapshot
	ErrItemNotFound = fmt.Errorf("inventory: item not found")

	// ErrNoSnapshot is returned when no snapshot has ever been cached and
	// refreshing failed
	ErrNoSnapshot = fmt.Errorf("inventory: no snapshot cached")
)

// Error constructors

// ErrInvalidNamespace returns an error for an invalid key namespace
func ErrInvalidNamespace(ns string) error {
	return fmt.Errorf("inventory: invalid namespace: %q (must be non-empty)", ns)
}

// ErrInvalidTTL returns an error for a non-positive duration setting
func ErrInvalidTTL(name string, d time.Duration) error {
	return fmt.Errorf("inventory: invalid %s: %v (must be > 0)", name, d)
}

// ErrSKUNotFound wraps ErrItemNotFound with the missing SKU
func ErrSKUNotFound(sku string) error {
	return fmt.Errorf("inventory: sku %q: %w", sku, ErrItemNotFound)
}
