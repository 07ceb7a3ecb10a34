package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "widget:"

// RedisScope persists widget state under a namespaced key prefix in Redis.
type RedisScope struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// OpenRedis connects to redisURL and verifies the connection.
// A zero ttl keeps keys until they are deleted.
func OpenRedis(ctx context.Context, redisURL, namespace string, ttl time.Duration) (*RedisScope, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return NewRedisScope(rdb, namespace, ttl), nil
}

// NewRedisScope wraps an existing client.
func NewRedisScope(rdb *redis.Client, namespace string, ttl time.Duration) *RedisScope {
	return &RedisScope{
		rdb:    rdb,
		prefix: redisPrefix + namespace + ":",
		ttl:    ttl,
	}
}

func (s *RedisScope) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

func (s *RedisScope) Set(ctx context.Context, key string, value []byte) error {
	if err := s.rdb.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisScope) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisScope) Close() error {
	return s.rdb.Close()
}
