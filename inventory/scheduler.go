package inventory

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/shelfwatch/stocksync/cron"
	"github.com/shelfwatch/stocksync/logger"
	"github.com/shelfwatch/stocksync/routine"
)

// SchedulerConfig holds configuration for the periodic refresh
type SchedulerConfig struct {
	// Spec is the cron schedule (6 fields, seconds supported)
	// default: "0 */15 * * * *" (every 15 minutes)
	Spec string `mapstructure:"spec"`
	// WarmUp triggers an asynchronous read-through at Start so the first
	// caller does not pay for a cold cache
	WarmUp bool `mapstructure:"warm_up"`
}

// DefaultSchedulerConfig returns the default scheduler configuration
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{Spec: "0 */15 * * * *"}
}

// Scheduler keeps the snapshot fresh with a periodic forced refresh. Losing
// the lock race to another instance is normal and logged at debug only.
type Scheduler struct {
	log    logger.Logger
	cache  *Cache
	cron   cron.Cron
	warmUp bool
}

// NewScheduler creates a scheduler around the cache facade
func NewScheduler(log logger.Logger, cache *Cache, cfg *SchedulerConfig) (*Scheduler, error) {
	if cfg == nil {
		cfg = DefaultSchedulerConfig()
	} else if cfg.Spec == "" {
		cfg.Spec = DefaultSchedulerConfig().Spec
	}

	s := &Scheduler{
		log:    log,
		cache:  cache,
		cron:   cron.New(log),
		warmUp: cfg.WarmUp,
	}

	task := cron.TaskFunc{TaskName: "inventory-refresh", Exec: s.refresh}
	if err := s.cron.AddTask(cfg.Spec, task); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins the periodic refresh, optionally warming the cache first
func (s *Scheduler) Start() {
	if s.warmUp {
		routine.GoNamed(s.log, "inventory-warmup", func() {
			if _, err := s.cache.GetAll(context.Background(), false); err != nil {
				s.log.Warn("cache warm-up failed", zap.Error(err))
			}
		})
	}
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running refresh task to finish
func (s *Scheduler) Stop() {
	s.cron.Close()
}

// refresh is the scheduled task body. It bypasses the stale fallback so
// failures surface in the task log, and treats lock contention as success
// because some other instance is already doing the work.
func (s *Scheduler) refresh(ctx context.Context) error {
	_, err := s.cache.Refresh(ctx)
	if errors.Is(err, ErrRefreshInProgress) {
		s.log.Debug("refresh already in progress elsewhere, skipping")
		return nil
	}
	return err
}
