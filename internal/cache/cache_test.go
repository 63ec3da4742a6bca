package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisCache(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisCacheGetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	value, ok, err := c.Get(context.Background(), KeyAdminLots)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestRedisCacheSetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, KeyUserLots, `[{"id":1}]`, UserLotsTTL))

	value, ok, err := c.Get(ctx, KeyUserLots)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":1}]`, value)
}

func TestRedisCacheTTLExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, KeyUserLots, "payload", UserLotsTTL))

	mr.FastForward(UserLotsTTL + time.Second)

	_, ok, err := c.Get(ctx, KeyUserLots)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, KeyAdminLots, "a", AdminLotsTTL))
	require.NoError(t, c.Set(ctx, KeyAdminDashboard, "b", AdminDashboardTTL))
	require.NoError(t, c.Set(ctx, KeyUserLots, "c", UserLotsTTL))

	require.NoError(t, c.Invalidate(ctx, KeyAdminLots, KeyAdminDashboard, KeyUserLots))

	for _, key := range []string{KeyAdminLots, KeyAdminDashboard, KeyUserLots} {
		_, ok, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestRedisCacheInvalidateNoKeys(t *testing.T) {
	c, _ := newTestCache(t)
	assert.NoError(t, c.Invalidate(context.Background()))
}
