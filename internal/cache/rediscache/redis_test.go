package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewWithClient(client, "test:", zerolog.Nop())
}

func TestRedisStoreGetSet(t *testing.T) {
	ctx := context.Background()
	mr, store := setupTestRedis(t)

	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	got, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	assert.True(t, mr.Exists("test:k"), "keys should carry the prefix")

	stats := store.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Sets)
	assert.Equal(t, -1, stats.Entries, "stats never scan the keyspace")
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	mr, store := setupTestRedis(t)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Second))
	_, ok := store.Get(ctx, "k")
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok = store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisStoreNoExpiry(t *testing.T) {
	ctx := context.Background()
	mr, store := setupTestRedis(t)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))
	assert.Equal(t, time.Duration(0), mr.TTL("test:k"))
}

func TestRedisStoreDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	mr, store := setupTestRedis(t)

	require.NoError(t, mr.Set("other:keep", "x"))
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, k, []byte(k), time.Minute))
	}

	require.NoError(t, store.Delete(ctx, "a"))
	assert.False(t, mr.Exists("test:a"))

	require.NoError(t, store.Clear(ctx))
	assert.False(t, mr.Exists("test:b"))
	assert.False(t, mr.Exists("test:c"))
	assert.True(t, mr.Exists("other:keep"), "clear must stay inside the prefix")
}

func TestRedisStoreHealthCheck(t *testing.T) {
	ctx := context.Background()
	mr, store := setupTestRedis(t)

	assert.True(t, store.HealthCheck(ctx))

	mr.Close()
	assert.False(t, store.HealthCheck(ctx))

	_, ok := store.Get(ctx, "k")
	assert.False(t, ok, "an unreachable server reads as a miss")
}
