package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for expiration tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, opts ...Option) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(append([]Option{WithName("test")}, opts...)...)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetSetRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, WithSweepInterval(0))

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok, "missing key should be a miss, not an error")

	require.NoError(t, c.Set(ctx, "k", []byte("v1"), time.Hour))
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, c.Set(ctx, "k", []byte("v2"), time.Hour))
	got, ok = c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), got, "Set should overwrite")
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, WithSweepInterval(0))

	value := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", value, time.Hour))
	value[0] = 'x'

	got, _ := c.Get(ctx, "k")
	got[1] = 'y'

	again, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}

// TestTTLExpiry sets an entry with a one second TTL, reads it immediately,
// then reads it again after two seconds.
func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, WithSweepInterval(0))

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 1*time.Second))
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok, "immediate get should hit")

	time.Sleep(2 * time.Second)

	_, ok = c.Get(ctx, "k")
	assert.False(t, ok, "get after TTL should miss")
}

func TestLazyExpirationBeforeSweep(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestCache(t, WithClock(clock.Now), WithSweepInterval(0))

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	clock.Advance(time.Minute)

	assert.Equal(t, 1, c.Len(), "entry not yet swept")
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok, "expired entry must miss even before the sweep")
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestCache(t, WithClock(clock.Now), WithSweepInterval(0))

	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "forever", []byte("3"), 0))

	clock.Advance(time.Minute)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 2, c.Len())

	_, ok := c.Get(ctx, "long")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestJanitorSweepsInBackground(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, WithSweepInterval(20*time.Millisecond))

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))

	assert.Eventually(t, func() bool {
		return c.Len() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, WithSweepInterval(0))

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))

	require.NoError(t, c.Delete(ctx, "a"))
	require.NoError(t, c.Delete(ctx, "never-existed"))
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestStatsAndHitRate(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, WithSweepInterval(0))

	assert.Equal(t, 0.0, c.Stats().HitRate, "no requests yet")

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Hour))
	c.Get(ctx, "k")
	c.Get(ctx, "k")
	c.Get(ctx, "k")
	c.Get(ctx, "missing")

	stats := c.Stats()
	assert.Equal(t, uint64(3), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Sets)
	assert.Equal(t, 1, stats.Entries)
	assert.InDelta(t, 0.75, stats.HitRate, 1e-9)
}

func TestHealthCheckDoesNotSkewStats(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, WithSweepInterval(0))

	assert.True(t, c.HealthCheck(ctx))

	stats := c.Stats()
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
	assert.Zero(t, stats.Sets)
	assert.Zero(t, stats.Entries)
}

// TestConcurrentAccess exercises overlapping keys from many goroutines; run
// with -race to check the locking.
func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, WithSweepInterval(time.Millisecond))

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d", j%10)
				value := []byte(fmt.Sprintf("value-%d-%d", i, j))
				_ = c.Set(ctx, key, value, time.Millisecond*time.Duration(j%5+1))
				if got, ok := c.Get(ctx, key); ok {
					assert.Contains(t, string(got), "value-")
				}
				if j%25 == 0 {
					_ = c.Delete(ctx, key)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestCloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache()
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
