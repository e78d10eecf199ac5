package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shelfwatch/stocksync/logger"
	"github.com/shelfwatch/stocksync/store"
	"github.com/shelfwatch/stocksync/upstream"
)

// Cache is the read path over the snapshot. Reads hit the store first and
// trigger a refresh on miss; when a refresh fails but any snapshot is still
// present, the stale snapshot is served instead of the error. That trade is
// deliberate: an upstream outage degrades freshness, not availability.
type Cache struct {
	log   logger.Logger
	store store.Store
	coord *Coordinator
	cfg   *Config
	keys  keys
	now   func() time.Time
}

// New creates the inventory cache facade. Every store call goes through the
// retry wrapper with the store classifier; upstream fetches are retried by
// the coordinator with the upstream classifier.
func New(log logger.Logger, st store.Store, src upstream.Source, creds upstream.CredentialsProvider, cfg *Config) (*Cache, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	retrying := store.NewRetrying(st, cfg.StoreRetry, log)

	return &Cache{
		log:   log,
		store: retrying,
		coord: NewCoordinator(log, retrying, src, creds, cfg),
		cfg:   cfg,
		keys:  keys{ns: cfg.Namespace},
		now:   time.Now,
	}, nil
}

// GetAll returns the cached snapshot, refreshing it first on miss or when
// forceRefresh is set. A refresh failure is absorbed whenever any snapshot
// is still readable; the error propagates only when no data has ever been
// cached.
func (c *Cache) GetAll(ctx context.Context, forceRefresh bool) ([]Item, error) {
	if !forceRefresh {
		items, err := c.readSnapshot(ctx)
		if err == nil {
			return items, nil
		}
		if !errors.Is(err, store.ErrKeyNotFound) {
			c.log.Warn("snapshot read failed, attempting refresh", zap.Error(err))
		}
	}

	items, err := c.coord.Refresh(ctx)
	if err == nil {
		return items, nil
	}

	// stale-on-error fallback: the snapshot may still be present, either
	// from before the failed attempt or because this caller lost the lock
	// race to a refresh that is still running
	if stale, staleErr := c.readSnapshot(ctx); staleErr == nil {
		c.log.Warn("refresh failed, serving stale snapshot",
			zap.Int("items", len(stale)),
			zap.Error(err),
		)
		return stale, nil
	}

	return nil, err
}

// GetOne returns a single item by SKU, using the per-SKU index and falling
// back to a snapshot scan. Absent SKUs yield ErrItemNotFound.
func (c *Cache) GetOne(ctx context.Context, sku string) (*Item, error) {
	body, err := c.store.HashGet(ctx, c.keys.skuHash(), sku)
	if err == nil {
		var item Item
		if jsonErr := json.Unmarshal([]byte(body), &item); jsonErr == nil {
			return &item, nil
		}
		c.log.Warn("undecodable index entry, falling back to snapshot scan", zap.String("sku", sku))
	} else if !errors.Is(err, store.ErrKeyNotFound) {
		return nil, err
	}

	items, err := c.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].SKU == sku {
			return &items[i], nil
		}
	}
	return nil, ErrSKUNotFound(sku)
}

// GetVendors returns the distinct vendors in the snapshot, sorted. The list
// is cached under its own TTL-bearing key and recomputed lazily.
func (c *Cache) GetVendors(ctx context.Context) ([]string, error) {
	if body, err := c.store.Get(ctx, c.keys.vendors()); err == nil {
		var vendors []string
		if jsonErr := json.Unmarshal([]byte(body), &vendors); jsonErr == nil {
			return vendors, nil
		}
	}

	items, err := c.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	vendors := make([]string, 0)
	for i := range items {
		v := items[i].Vendor
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			vendors = append(vendors, v)
		}
	}
	sort.Strings(vendors)

	c.writeDerived(ctx, c.keys.vendors(), vendors)
	return vendors, nil
}

// GetSummary returns aggregate snapshot statistics, cached under its own
// TTL-bearing key and recomputed lazily.
func (c *Cache) GetSummary(ctx context.Context) (*Summary, error) {
	if body, err := c.store.Get(ctx, c.keys.summary()); err == nil {
		var summary Summary
		if jsonErr := json.Unmarshal([]byte(body), &summary); jsonErr == nil {
			return &summary, nil
		}
	}

	items, err := c.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}

	summary := summarize(items, c.now())
	c.writeDerived(ctx, c.keys.summary(), summary)
	return summary, nil
}

// Refresh forces a refresh cycle without the stale fallback; scheduled
// refreshes use it so failures stay visible to the scheduler.
func (c *Cache) Refresh(ctx context.Context) ([]Item, error) {
	return c.coord.Refresh(ctx)
}

// ClearCache deletes every namespaced key unconditionally, including any
// in-flight lock. It is an operator escape hatch, not part of normal flow.
func (c *Cache) ClearCache(ctx context.Context) error {
	n, err := c.store.DeletePattern(ctx, c.keys.pattern())
	if err != nil {
		return err
	}
	c.log.Info("inventory cache cleared", zap.Int("keys", n))
	return nil
}

// readSnapshot loads and decodes the full snapshot
func (c *Cache) readSnapshot(ctx context.Context) ([]Item, error) {
	body, err := c.store.Get(ctx, c.keys.full())
	if err != nil {
		return nil, err
	}
	var items []Item
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, fmt.Errorf("inventory: decode snapshot: %w", err)
	}
	return items, nil
}

// writeDerived best-effort caches a lazily computed view; a failed write
// only costs recomputation on the next call
func (c *Cache) writeDerived(ctx context.Context, key string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("failed to encode derived cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, string(body), c.cfg.SummaryTTL); err != nil {
		c.log.Warn("failed to cache derived entry", zap.String("key", key), zap.Error(err))
	}
}

// summarize aggregates a snapshot
func summarize(items []Item, now time.Time) *Summary {
	summary := &Summary{
		TotalItems:      len(items),
		TotalStockValue: decimal.Zero,
		GeneratedAt:     now,
	}

	vendors := make(map[string]struct{})
	for i := range items {
		item := &items[i]
		summary.TotalStockValue = summary.TotalStockValue.Add(
			item.UnitCost.Mul(decimal.NewFromInt(int64(item.Stock))),
		)
		if item.Vendor != "" {
			vendors[item.Vendor] = struct{}{}
		}
		switch item.StockStatus {
		case StockCritical:
			summary.CriticalCount++
		case StockLow:
			summary.LowCount++
		case StockOverstocked:
			summary.OverstockedCount++
		default:
			summary.AdequateCount++
		}
	}
	summary.VendorCount = len(vendors)

	return summary
}
