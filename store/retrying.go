package store

import (
	"context"
	"time"

	"github.com/shelfwatch/stocksync/logger"
	"github.com/shelfwatch/stocksync/retry"
)

// retryingStore decorates a Store so every call goes through the retry
// wrapper with the store transient-failure classifier. Absent keys are not
// failures and pass through untouched.
type retryingStore struct {
	next   Store
	policy retry.Policy
	log    logger.Logger
}

// NewRetrying wraps a store with uniform retry behavior. The policy's
// classifier is forced to IsRetryable so only transport failures are
// retried.
func NewRetrying(next Store, policy retry.Policy, log logger.Logger) Store {
	policy = policy.MergeDefaults()
	policy.Retryable = IsRetryable
	return &retryingStore{next: next, policy: policy, log: log}
}

func (r *retryingStore) Get(ctx context.Context, key string) (string, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) (string, error) {
		return r.next.Get(ctx, key)
	})
}

func (r *retryingStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return retry.Run(ctx, r.policy, func(ctx context.Context) error {
		return r.next.SetWithTTL(ctx, key, value, ttl)
	})
}

func (r *retryingStore) SetIfAbsentWithTTL(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) (bool, error) {
		return r.next.SetIfAbsentWithTTL(ctx, key, value, ttl)
	})
}

func (r *retryingStore) DeleteKey(ctx context.Context, key string) error {
	return retry.Run(ctx, r.policy, func(ctx context.Context) error {
		return r.next.DeleteKey(ctx, key)
	})
}

func (r *retryingStore) DeletePattern(ctx context.Context, pattern string) (int, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) (int, error) {
		return r.next.DeletePattern(ctx, pattern)
	})
}

func (r *retryingStore) HashSet(ctx context.Context, key string, fields map[string]string) error {
	return retry.Run(ctx, r.policy, func(ctx context.Context) error {
		return r.next.HashSet(ctx, key, fields)
	})
}

func (r *retryingStore) HashGet(ctx context.Context, key, field string) (string, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) (string, error) {
		return r.next.HashGet(ctx, key, field)
	})
}

func (r *retryingStore) AtomicBatch(ctx context.Context, ops []Op) error {
	return retry.Run(ctx, r.policy, func(ctx context.Context) error {
		return r.next.AtomicBatch(ctx, ops)
	})
}

func (r *retryingStore) Close() error {
	return r.next.Close()
}
