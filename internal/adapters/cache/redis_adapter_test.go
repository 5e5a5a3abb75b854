package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/functional-assessment/backend/internal/adapters/cache"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/functional-assessment/backend/internal/infrastructure/clients/redis"
)

func newAdapter(t *testing.T) (*cache.RedisAdapter, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redisclient.NewClientFromRedis(redis.NewClient(&redis.Options{Addr: server.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisAdapter(client), server
}

func TestRedisAdapter_GetSet(t *testing.T) {
	adapter, server := newAdapter(t)
	ctx := context.Background()

	_, err := adapter.Get(ctx, "missing")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)

	require.NoError(t, adapter.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := adapter.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	exists, err := adapter.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	server.FastForward(2 * time.Minute)
	_, err = adapter.Get(ctx, "k")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestRedisAdapter_DeletePattern(t *testing.T) {
	adapter, _ := newAdapter(t)
	ctx := context.Background()

	for _, key := range []string{
		"http:cache:GET:/api/assessment/sessions/s1/status",
		"http:cache:GET:/api/assessment/sessions/s1/summary",
		"http:cache:GET:/api/assessment/sessions/s2/status",
	} {
		require.NoError(t, adapter.Set(ctx, key, []byte("x"), 0))
	}

	require.NoError(t, adapter.DeletePattern(ctx, providers.SessionHTTPCachePattern("s1")))

	exists, err := adapter.Exists(ctx, "http:cache:GET:/api/assessment/sessions/s1/status")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = adapter.Exists(ctx, "http:cache:GET:/api/assessment/sessions/s2/status")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRedisAdapter_DeleteMany(t *testing.T) {
	adapter, _ := newAdapter(t)
	ctx := context.Background()
	require.NoError(t, adapter.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, adapter.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, adapter.Delete(ctx, "a", "b"))
	require.NoError(t, adapter.Delete(ctx))

	_, err := adapter.Get(ctx, "a")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}
