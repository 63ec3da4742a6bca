// Package cache holds the read-view cache the HTTP layer consults before
// hitting the database, and the invalidation keys tied to lot and
// reservation mutations.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys for the externally cached read views. Every committed allocation,
// release or lot mutation must invalidate all three before the call returns.
const (
	KeyAdminLots      = "admin:lots"
	KeyAdminDashboard = "admin:dashboard"
	KeyUserLots       = "user:lots"
)

const (
	AdminLotsTTL      = 5 * time.Minute
	AdminDashboardTTL = 5 * time.Minute
	UserLotsTTL       = 2 * time.Minute
)

// Cache is the invalidate/read contract the services depend on. Values are
// opaque strings (the services store JSON).
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(opts *redis.Options) *RedisCache {
	return &RedisCache{rdb: redis.NewClient(opts)}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cache get %q: %w", key, err)
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate %v: %w", keys, err)
	}
	return nil
}

// Ping verifies Redis connectivity. Useful for startup checks.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
