package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shelfwatch/stocksync/logger"
)

// redisStore implements Store over a go-redis client
type redisStore struct {
	log    logger.Logger
	client *redis.Client
}

// NewRedis creates a Redis-backed store and verifies connectivity with a ping
func NewRedis(log logger.Logger, cfg *RedisConfig) (Store, error) {
	if cfg == nil {
		cfg = DefaultRedisConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(cfg.Options())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, ErrConnect(err)
	}

	log.Debug("redis store connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))

	return &redisStore{log: log, client: client}, nil
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get %q: %w", key, err)
	}
	return val, nil
}

func (s *redisStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("store: set %q: %w", key, err)
	}
	return nil
}

func (s *redisStore) SetIfAbsentWithTTL(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	// SETNX in one round trip; never emulated as exists-check + set
	acquired, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("store: setnx %q: %w", key, err)
	}
	return acquired, nil
}

func (s *redisStore) DeleteKey(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("store: del %q: %w", key, err)
	}
	return nil
}

func (s *redisStore) DeletePattern(ctx context.Context, pattern string) (int, error) {
	var deleted int
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n, err := s.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return deleted, fmt.Errorf("store: del %q: %w", iter.Val(), err)
		}
		deleted += int(n)
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("store: scan %q: %w", pattern, err)
	}
	return deleted, nil
}

func (s *redisStore) HashSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, key, flatten(fields)...).Err(); err != nil {
		return fmt.Errorf("store: hset %q: %w", key, err)
	}
	return nil
}

func (s *redisStore) HashGet(ctx context.Context, key, field string) (string, error) {
	val, err := s.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: hget %q %q: %w", key, field, err)
	}
	return val, nil
}

func (s *redisStore) AtomicBatch(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}

	// MULTI/EXEC: all ops apply as one unit or not at all
	pipe := s.client.TxPipeline()
	for _, op := range ops {
		switch op.Kind {
		case OpSet:
			pipe.Set(ctx, op.Key, op.Value, op.TTL)
		case OpDelete:
			pipe.Del(ctx, op.Key)
		case OpHashSet:
			if len(op.Fields) > 0 {
				pipe.HSet(ctx, op.Key, flatten(op.Fields)...)
			}
		case OpExpire:
			pipe.Expire(ctx, op.Key, op.TTL)
		default:
			return ErrUnsupportedOp(op.Kind)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: atomic batch (%d ops): %w", len(ops), err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

// flatten converts a field map to go-redis HSet variadic arguments
func flatten(fields map[string]string) []interface{} {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
