package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shelfwatch/stocksync/logger"
	"github.com/shelfwatch/stocksync/retry"
	"github.com/shelfwatch/stocksync/store"
	"github.com/shelfwatch/stocksync/upstream"
)

// Coordinator owns the refresh protocol: distributed lock acquisition with
// stuck-lock takeover, the upstream fetch through the retry wrapper, the
// transform, and the single atomic batch that publishes the new snapshot.
type Coordinator struct {
	log    logger.Logger
	store  store.Store
	source upstream.Source
	creds  upstream.CredentialsProvider
	cfg    *Config
	keys   keys
	lock   *refreshLock
	fetch  retry.Policy
	now    func() time.Time
}

// NewCoordinator creates a refresh coordinator. The store is expected to
// carry its own retry behavior (see store.NewRetrying); the fetch policy
// from the config is bound to the upstream transient classifier here.
func NewCoordinator(log logger.Logger, st store.Store, src upstream.Source, creds upstream.CredentialsProvider, cfg *Config) *Coordinator {
	fetch := cfg.FetchRetry.MergeDefaults()
	fetch.Retryable = upstream.IsTransient

	return &Coordinator{
		log:    log,
		store:  st,
		source: src,
		creds:  creds,
		cfg:    cfg,
		keys:   keys{ns: cfg.Namespace},
		lock:   newRefreshLock(log, st, keys{ns: cfg.Namespace}.lock(), cfg.LockMaxHold),
		fetch:  fetch,
		now:    time.Now,
	}
}

// Refresh repopulates the snapshot from the upstream source. Any number of
// callers across any number of instances may invoke it concurrently; exactly
// one performs the work per cycle, the rest fail fast with
// ErrRefreshInProgress. A failed refresh records an error marker, releases
// the lock, and leaves the previous snapshot untouched.
func (c *Coordinator) Refresh(ctx context.Context) ([]Item, error) {
	token, acquired, err := c.lock.acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrRefreshInProgress
	}

	items, err := c.populate(ctx, token)
	if err != nil {
		c.fail(ctx, token, err)
		return nil, err
	}
	return items, nil
}

// populate runs the fetch-transform-publish sequence while holding the lock
func (c *Coordinator) populate(ctx context.Context, token string) ([]Item, error) {
	start := c.now()

	if err := c.store.SetWithTTL(ctx, c.keys.syncing(), "1", c.cfg.LockMaxHold); err != nil {
		return nil, err
	}

	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		// missing configuration is fatal; it never enters the retry loop
		return nil, err
	}

	records, err := retry.Do(ctx, c.fetch, func(ctx context.Context) ([]upstream.RawRecord, error) {
		return c.source.FetchRecords(ctx, creds)
	})
	if err != nil {
		return nil, err
	}

	items, skipped := transformRecords(records, start)
	if skipped > 0 {
		c.log.Warn("skipped records without a resolvable sku",
			zap.Int("skipped", skipped),
			zap.Int("total", len(records)),
		)
	}

	ops, err := c.publishOps(items, start)
	if err != nil {
		return nil, err
	}
	if err := c.store.AtomicBatch(ctx, ops); err != nil {
		return nil, err
	}

	c.log.Info("inventory snapshot refreshed",
		zap.Int("items", len(items)),
		zap.String("token", token),
		zap.Duration("duration", time.Since(start)),
	)

	return items, nil
}

// publishOps builds the single atomic batch that supersedes the previous
// snapshot: the full snapshot, the per-SKU index (cleared first so removed
// SKUs do not linger), the last-sync stamp, and the removal of the syncing
// flag, the previous error, the lock, and the now-stale derived caches.
func (c *Coordinator) publishOps(items []Item, now time.Time) ([]store.Op, error) {
	snapshot, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("inventory: marshal snapshot: %w", err)
	}

	index := make(map[string]string, len(items))
	for i := range items {
		body, err := json.Marshal(items[i])
		if err != nil {
			return nil, fmt.Errorf("inventory: marshal item %q: %w", items[i].SKU, err)
		}
		index[items[i].SKU] = string(body)
	}

	return []store.Op{
		store.DelOp(c.keys.skuHash()),
		store.SetOp(c.keys.full(), string(snapshot), c.cfg.CacheTTL),
		store.HSetOp(c.keys.skuHash(), index),
		store.ExpireOp(c.keys.skuHash(), c.cfg.CacheTTL),
		store.SetOp(c.keys.lastSync(), now.Format(time.RFC3339Nano), 0),
		store.DelOp(c.keys.syncing()),
		store.DelOp(c.keys.lastError()),
		store.DelOp(c.keys.lock()),
		store.DelOp(c.keys.summary()),
		store.DelOp(c.keys.vendors()),
	}, nil
}

// fail records the error marker, clears the syncing flag and releases the
// lock. The cleanup runs on a cancellation-proof context: the previous
// snapshot was never touched, but the lock must not outlive the attempt.
func (c *Coordinator) fail(ctx context.Context, token string, cause error) {
	cleanup, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := c.store.SetWithTTL(cleanup, c.keys.lastError(), cause.Error(), c.cfg.ErrorTTL); err != nil {
		c.log.Warn("failed to record refresh error", zap.Error(err))
	}
	if err := c.store.DeleteKey(cleanup, c.keys.syncing()); err != nil {
		c.log.Warn("failed to clear syncing flag", zap.Error(err))
	}
	c.lock.release(cleanup, token)

	c.log.Error("inventory refresh failed", zap.String("token", token), zap.Error(cause))
}
