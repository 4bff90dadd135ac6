package cache

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSweepInterval is how often the janitor removes expired entries.
const DefaultSweepInterval = 60 * time.Second

const healthProbeKey = "\x00health-probe"

// MemoryCache is an in-process Store. Every operation, including the
// background sweep, takes the same mutex so readers never observe a
// partially written entry. Expiration is checked lazily on Get as well, so
// an expired entry the janitor has not reached yet is still a miss.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry

	hits      atomic.Uint64
	misses    atomic.Uint64
	sets      atomic.Uint64
	evictions atomic.Uint64

	sweepInterval time.Duration
	now           func() time.Time
	metrics       *MetricsRecorder
	logger        zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiration
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Option configures a MemoryCache.
type Option func(*MemoryCache)

// WithSweepInterval sets the janitor period. A non-positive interval
// disables the janitor; lazy expiration still applies.
func WithSweepInterval(d time.Duration) Option {
	return func(c *MemoryCache) { c.sweepInterval = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) { c.now = now }
}

// WithLogger sets the logger used by the janitor.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *MemoryCache) {
		if logger != nil {
			c.logger = logger.With().Str("component", "memory_cache").Logger()
		}
	}
}

// WithName sets the Prometheus label for this cache.
func WithName(name string) Option {
	return func(c *MemoryCache) { c.metrics = NewMetricsRecorder(name) }
}

// NewMemoryCache creates a cache and starts its janitor. Call Close to stop it.
func NewMemoryCache(opts ...Option) *MemoryCache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &MemoryCache{
		entries:       make(map[string]entry),
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		metrics:       NewMetricsRecorder("memory"),
		logger:        zerolog.Nop(),
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.sweepInterval > 0 {
		c.wg.Add(1)
		go c.runJanitor()
	}
	return c
}

// Get implements Store.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	value, ok := c.get(key)
	if ok {
		c.hits.Add(1)
		c.metrics.RecordHit()
	} else {
		c.misses.Add(1)
		c.metrics.RecordMiss()
	}
	return value, ok
}

func (c *MemoryCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		c.evictions.Add(1)
		c.metrics.RecordEvictions(1)
		return nil, false
	}
	return bytes.Clone(e.value), true
}

// Set implements Store.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.set(key, value, ttl)
	c.sets.Add(1)
	c.metrics.RecordSet()
	return nil
}

func (c *MemoryCache) set(key string, value []byte, ttl time.Duration) {
	e := entry{value: bytes.Clone(value)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	n := len(c.entries)
	c.mu.Unlock()

	c.metrics.RecordEntries(n)
}

// Delete implements Store.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	n := len(c.entries)
	c.mu.Unlock()

	c.metrics.RecordEntries(n)
	return nil
}

// Clear implements Store.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.metrics.RecordEntries(0)
	return nil
}

// HealthCheck writes, reads back and deletes a probe entry without touching
// the hit/miss counters.
func (c *MemoryCache) HealthCheck(_ context.Context) (healthy bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("Cache health check panicked")
			healthy = false
		}
	}()

	probe := []byte("ok")
	c.set(healthProbeKey, probe, time.Minute)
	got, ok := c.get(healthProbeKey)

	c.mu.Lock()
	delete(c.entries, healthProbeKey)
	c.mu.Unlock()

	return ok && bytes.Equal(got, probe)
}

// Stats implements Store.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	return Stats{
		Hits:      hits,
		Misses:    misses,
		Sets:      c.sets.Load(),
		Evictions: c.evictions.Load(),
		Entries:   n,
		HitRate:   HitRate(hits, misses),
	}
}

// Len returns the number of stored entries, including expired ones the
// janitor has not yet removed.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes all expired entries and returns how many were removed.
func (c *MemoryCache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	n := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(uint64(removed))
		c.metrics.RecordEvictions(removed)
	}
	c.metrics.RecordEntries(n)
	return removed
}

func (c *MemoryCache) runJanitor() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 {
				c.logger.Debug().Int("removed", removed).Msg("Swept expired cache entries")
			}
		}
	}
}

// Close stops the janitor. It is safe to call more than once.
func (c *MemoryCache) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.wg.Wait()
	})
	return nil
}
