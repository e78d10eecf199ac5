package store

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds configuration for the Redis-backed store
type RedisConfig struct {
	// Addr is the host:port of the Redis server (required)
	Addr string `mapstructure:"addr"`
	// Username for Redis ACL authentication
	Username string `mapstructure:"username"`
	// Password for authentication
	Password string `mapstructure:"password"`
	// DB is the database number
	// default: 0
	DB int `mapstructure:"db"`
	// PoolSize is the maximum number of socket connections
	// default: 10
	PoolSize int `mapstructure:"pool_size"`
	// DialTimeout is the timeout for establishing new connections
	// default: 5s
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// ReadTimeout is the timeout for socket reads
	// default: 3s
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the timeout for socket writes
	// default: 3s
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultRedisConfig returns the default configuration for the Redis store
// Note: Addr has no default value and must be explicitly set by the user
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// MergeDefaults fills zero fields with default values and returns the config
func (c *RedisConfig) MergeDefaults() *RedisConfig {
	defaults := DefaultRedisConfig()
	if c.PoolSize == 0 {
		c.PoolSize = defaults.PoolSize
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	return c
}

// Validate validates the configuration
func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		return ErrInvalidAddr(c.Addr)
	}
	if c.DB < 0 {
		return ErrInvalidDB(c.DB)
	}
	if c.PoolSize < 0 {
		return ErrInvalidPoolSize(c.PoolSize)
	}
	if c.DialTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return ErrInvalidTimeout()
	}
	return nil
}

// Options converts the configuration to go-redis client options
func (c *RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}
