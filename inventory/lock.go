package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shelfwatch/stocksync/logger"
	"github.com/shelfwatch/stocksync/store"
)

// lockRecord is the JSON body stored at the lock key. The store TTL is the
// crash backstop; the embedded timestamp drives stale detection so a lock
// can be recovered even when the store's clock and ours disagree about
// expiry.
type lockRecord struct {
	Token      string    `json:"token"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// refreshLock is the cross-instance mutual exclusion for refresh cycles.
// Acquisition is a single atomic conditional set; it is never emulated with
// a separate exists-check followed by a set.
type refreshLock struct {
	log     logger.Logger
	store   store.Store
	key     string
	maxHold time.Duration
	now     func() time.Time
}

func newRefreshLock(log logger.Logger, st store.Store, key string, maxHold time.Duration) *refreshLock {
	return &refreshLock{
		log:     log,
		store:   st,
		key:     key,
		maxHold: maxHold,
		now:     time.Now,
	}
}

// tryAcquire attempts a single atomic acquisition and returns the holder
// token on success
func (l *refreshLock) tryAcquire(ctx context.Context) (string, bool, error) {
	rec := lockRecord{Token: uuid.NewString(), AcquiredAt: l.now()}
	body, err := json.Marshal(rec)
	if err != nil {
		return "", false, fmt.Errorf("inventory: marshal lock record: %w", err)
	}

	acquired, err := l.store.SetIfAbsentWithTTL(ctx, l.key, string(body), l.maxHold)
	if err != nil {
		return "", false, err
	}
	if !acquired {
		return "", false, nil
	}
	return rec.Token, true, nil
}

// acquire attempts acquisition with a single stale-takeover retry. A lock
// older than maxHold is presumed abandoned (the holder crashed or hung
// without releasing) and is forcibly cleared; a younger lock is never
// touched.
func (l *refreshLock) acquire(ctx context.Context) (string, bool, error) {
	token, acquired, err := l.tryAcquire(ctx)
	if err != nil || acquired {
		return token, acquired, err
	}

	holder, err := l.holder(ctx)
	if err != nil {
		return "", false, err
	}
	if holder != nil && l.now().Sub(holder.AcquiredAt) <= l.maxHold {
		return "", false, nil
	}

	// the holder is gone or stuck past its max hold; clear and retry once
	if holder != nil {
		l.log.Warn("taking over stuck refresh lock",
			zap.String("holder_token", holder.Token),
			zap.Time("acquired_at", holder.AcquiredAt),
			zap.Duration("max_hold", l.maxHold),
		)
	}
	if err := l.store.DeleteKey(ctx, l.key); err != nil {
		return "", false, err
	}
	return l.tryAcquire(ctx)
}

// holder reads the current lock record, or nil when the lock is absent or
// undecodable (an undecodable record is treated as abandoned)
func (l *refreshLock) holder(ctx context.Context) (*lockRecord, error) {
	body, err := l.store.Get(ctx, l.key)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec lockRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		l.log.Warn("discarding undecodable lock record", zap.Error(err))
		return nil, nil
	}
	return &rec, nil
}

// release deletes the lock unconditionally. The token identifies the holder
// in logs only; recovery is by age, not identity.
func (l *refreshLock) release(ctx context.Context, token string) {
	if err := l.store.DeleteKey(ctx, l.key); err != nil {
		// the TTL will reap it; losing this delete costs one maxHold of
		// lockout at worst
		l.log.Warn("failed to release refresh lock",
			zap.String("token", token),
			zap.Error(err),
		)
		return
	}
	l.log.Debug("refresh lock released", zap.String("token", token))
}
