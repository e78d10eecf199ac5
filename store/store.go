// Package store provides a key-value store adapter backed by Redis.
//
// The store package follows the repo conventions:
// - Interface-driven design for testability
// - Uses logger.Logger interface for unified logging
// - Configuration with validation and defaults
// - Structured error handling
//
// The Store interface exposes only the primitives the cache core relies on:
// per-key TTLs, a hash type for field-indexed lookups, an atomic conditional
// set for lock acquisition, pattern-based bulk delete, and an atomic batch
// that is the sole write path for multi-key cache population.
package store

import (
	"context"
	"time"
)

// Store is an abstract key-value store with per-key TTL support
type Store interface {
	// Get returns the value at key, or ErrKeyNotFound when absent
	Get(ctx context.Context, key string) (string, error)

	// SetWithTTL stores value at key; a zero ttl means no expiration
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error

	// SetIfAbsentWithTTL stores value at key only if the key does not exist,
	// as a single atomic conditional operation, and reports whether the
	// value was stored. It is never implemented as a check followed by a set.
	SetIfAbsentWithTTL(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// DeleteKey removes key; deleting an absent key is not an error
	DeleteKey(ctx context.Context, key string) error

	// DeletePattern removes every key matching the glob pattern and returns
	// the number of keys removed
	DeletePattern(ctx context.Context, pattern string) (int, error)

	// HashSet writes the given fields into the hash at key
	HashSet(ctx context.Context, key string, fields map[string]string) error

	// HashGet returns one field of the hash at key, or ErrKeyNotFound when
	// the hash or the field is absent
	HashGet(ctx context.Context, key, field string) (string, error)

	// AtomicBatch executes all ops as one atomic unit: either every op is
	// applied or none is, and no other client observes a partial batch
	AtomicBatch(ctx context.Context, ops []Op) error

	// Close releases the underlying connections
	Close() error
}

// OpKind identifies the operation carried by an Op
type OpKind int

const (
	// OpSet stores Value at Key with TTL
	OpSet OpKind = iota
	// OpDelete removes Key
	OpDelete
	// OpHashSet writes Fields into the hash at Key
	OpHashSet
	// OpExpire sets TTL on Key
	OpExpire
)

// Op is one declarative operation inside an atomic batch
type Op struct {
	Kind   OpKind
	Key    string
	Value  string
	Fields map[string]string
	TTL    time.Duration
}

// SetOp builds a set operation; a zero ttl means no expiration
func SetOp(key, value string, ttl time.Duration) Op {
	return Op{Kind: OpSet, Key: key, Value: value, TTL: ttl}
}

// DelOp builds a delete operation
func DelOp(key string) Op {
	return Op{Kind: OpDelete, Key: key}
}

// HSetOp builds a hash-populate operation
func HSetOp(key string, fields map[string]string) Op {
	return Op{Kind: OpHashSet, Key: key, Fields: fields}
}

// ExpireOp builds a TTL-set operation
func ExpireOp(key string, ttl time.Duration) Op {
	return Op{Kind: OpExpire, Key: key, TTL: ttl}
}
