package inventory

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/shelfwatch/stocksync/store"
)

// GetStatus derives the sync status from cache state: the syncing flag, the
// last-sync stamp (next_sync is last_sync + CacheTTL) and the short-lived
// error marker. Nothing here is a source of truth of its own.
func (c *Cache) GetStatus(ctx context.Context) (*SyncStatus, error) {
	status := &SyncStatus{}

	if _, err := c.store.Get(ctx, c.keys.syncing()); err == nil {
		status.IsSyncing = true
	} else if !errors.Is(err, store.ErrKeyNotFound) {
		return nil, err
	}

	if stamp, err := c.store.Get(ctx, c.keys.lastSync()); err == nil {
		lastSync, parseErr := time.Parse(time.RFC3339Nano, stamp)
		if parseErr != nil {
			c.log.Warn("undecodable last-sync stamp", zap.String("stamp", stamp), zap.Error(parseErr))
		} else {
			nextSync := lastSync.Add(c.cfg.CacheTTL)
			status.LastSync = &lastSync
			status.NextSync = &nextSync
		}
	} else if !errors.Is(err, store.ErrKeyNotFound) {
		return nil, err
	}

	if msg, err := c.store.Get(ctx, c.keys.lastError()); err == nil {
		status.LastError = msg
	} else if !errors.Is(err, store.ErrKeyNotFound) {
		return nil, err
	}

	return status, nil
}
