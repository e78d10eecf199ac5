package inventory

import (
	"time"

	"github.com/shelfwatch/stocksync/retry"
)

// Config holds configuration for the inventory cache
type Config struct {
	// Namespace prefixes every store key
	// default: "inventory"
	Namespace string `mapstructure:"namespace"`
	// CacheTTL is the freshness window of the snapshot; it also defines
	// next_sync = last_sync + CacheTTL
	// default: 1h
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// SummaryTTL bounds the lazily computed summary and vendor caches
	// default: 10m
	SummaryTTL time.Duration `mapstructure:"summary_ttl"`
	// ErrorTTL bounds the last-error marker
	// default: 5m
	ErrorTTL time.Duration `mapstructure:"error_ttl"`
	// LockMaxHold is how long a refresh may hold the lock before any other
	// instance may presume the holder dead and take over. It is a safety
	// margin, not a correctness guarantee: a holder whose clock is slow can
	// be preempted once it exceeds this age.
	// default: 10m
	LockMaxHold time.Duration `mapstructure:"lock_max_hold"`
	// FetchRetry shapes retries of upstream fetches
	FetchRetry retry.Policy `mapstructure:"fetch_retry"`
	// StoreRetry shapes retries of store operations
	StoreRetry retry.Policy `mapstructure:"store_retry"`
}

// DefaultConfig returns the default configuration for the inventory cache
func DefaultConfig() *Config {
	return &Config{
		Namespace:   "inventory",
		CacheTTL:    time.Hour,
		SummaryTTL:  10 * time.Minute,
		ErrorTTL:    5 * time.Minute,
		LockMaxHold: 10 * time.Minute,
		FetchRetry:  retry.Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second, Jitter: true},
		StoreRetry:  retry.Policy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second},
	}
}

// MergeDefaults fills zero fields with default values and returns the config
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Namespace == "" {
		c.Namespace = defaults.Namespace
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = defaults.CacheTTL
	}
	if c.SummaryTTL == 0 {
		c.SummaryTTL = defaults.SummaryTTL
	}
	if c.ErrorTTL == 0 {
		c.ErrorTTL = defaults.ErrorTTL
	}
	if c.LockMaxHold == 0 {
		c.LockMaxHold = defaults.LockMaxHold
	}
	if c.FetchRetry.MaxAttempts == 0 {
		c.FetchRetry = defaults.FetchRetry
	}
	if c.StoreRetry.MaxAttempts == 0 {
		c.StoreRetry = defaults.StoreRetry
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return ErrInvalidNamespace(c.Namespace)
	}
	if c.CacheTTL <= 0 {
		return ErrInvalidTTL("cache_ttl", c.CacheTTL)
	}
	if c.SummaryTTL <= 0 {
		return ErrInvalidTTL("summary_ttl", c.SummaryTTL)
	}
	if c.ErrorTTL <= 0 {
		return ErrInvalidTTL("error_ttl", c.ErrorTTL)
	}
	if c.LockMaxHold <= 0 {
		return ErrInvalidTTL("lock_max_hold", c.LockMaxHold)
	}
	if err := c.FetchRetry.Validate(); err != nil {
		return err
	}
	return c.StoreRetry.Validate()
}
