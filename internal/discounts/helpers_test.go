package discounts

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kosarica/deal-planner/internal/cache"
	"github.com/kosarica/deal-planner/internal/http/ratelimit"
	"github.com/kosarica/deal-planner/internal/types"
)

// copenhagen is the user location used across tests.
var copenhagen = types.Location{Latitude: 55.6761, Longitude: 12.5683}

// kmPerDegree is the meridian arc length of one degree on the haversine sphere.
const kmPerDegree = earthRadiusKm * 3.141592653589793 / 180

// north returns a point km kilometres due north of copenhagen.
func north(km float64) types.Location {
	return types.Location{Latitude: copenhagen.Latitude + km/kmPerDegree, Longitude: copenhagen.Longitude}
}

var (
	today    = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	nextWeek = today.AddDate(0, 0, 7)
)

func offer(product, store string, km float64, original, discount int64) types.DiscountItem {
	return types.DiscountItem{
		ProductName:    product,
		StoreName:      store,
		StoreLocation:  north(km),
		StoreAddress:   store + " 1",
		OriginalPrice:  original,
		DiscountPrice:  discount,
		ExpirationDate: nextWeek,
	}
}

func window(start, end time.Time) types.ShoppingWindow {
	return types.ShoppingWindow{Start: start, End: end}
}

// fakeSource is a scriptable Source. errs are returned by successive calls;
// once exhausted every call returns err (nil means success).
type fakeSource struct {
	mu    sync.Mutex
	calls int
	items []types.DiscountItem
	errs  []error
	err   error
	delay time.Duration
	block bool
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context, _ types.Location, _ float64) ([]types.DiscountItem, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	if f.calls <= len(f.errs) {
		err = f.errs[f.calls-1]
	}
	items := slices.Clone(f.items)
	delay, block := f.delay, f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (f *fakeSource) HealthCheck(context.Context) bool { return true }

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSource) SetErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() Config {
	cfg := Defaults()
	cfg.Retry = ratelimit.Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
	cfg.RequestTimeout = time.Second
	return cfg
}

func newTestMatcher(t *testing.T, src Source, cfg Config, opts ...Option) (*Matcher, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
	store := cache.NewMemoryCache(cache.WithSweepInterval(0), cache.WithClock(clock.Now), cache.WithName("discounts_test"))
	t.Cleanup(func() { store.Close() })

	m, err := NewMatcher(src, store, cfg, opts...)
	require.NoError(t, err)
	return m, clock
}
