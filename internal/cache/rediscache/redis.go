// Package rediscache provides a cache.Store backed by Redis, for deployments
// where several planner instances share one discount cache.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kosarica/deal-planner/internal/cache"
)

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "deal-planner:"

// Config holds connection settings.
type Config struct {
	URL         string        `mapstructure:"url"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Store implements cache.Store on top of a go-redis client. Expiration is
// delegated to Redis, so Evictions is always zero.
type Store struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger

	metrics *cache.MetricsRecorder
	hits    atomic.Uint64
	misses  atomic.Uint64
	sets    atomic.Uint64
}

// New parses cfg.URL, connects and pings the server.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(client, cfg.KeyPrefix, logger), nil
}

// NewWithClient wraps an existing client. An empty prefix uses DefaultKeyPrefix.
func NewWithClient(client *redis.Client, prefix string, logger zerolog.Logger) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		client:  client,
		prefix:  prefix,
		logger:  logger.With().Str("component", "redis_cache").Logger(),
		metrics: cache.NewMetricsRecorder("redis"),
	}
}

func (s *Store) key(k string) string { return s.prefix + k }

// Get implements cache.Store. Connection errors are logged and reported as a
// miss so callers fall through to the upstream source.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("Redis get failed")
		}
		s.misses.Add(1)
		s.metrics.RecordMiss()
		return nil, false
	}
	s.hits.Add(1)
	s.metrics.RecordHit()
	return value, true
}

// Set implements cache.Store. A non-positive ttl stores the value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	s.sets.Add(1)
	s.metrics.RecordSet()
	return nil
}

// Delete implements cache.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// Clear removes every key under the store's prefix.
func (s *Store) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis clear: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis clear: %w", err)
		}
	}
	return nil
}

// HealthCheck pings the server.
func (s *Store) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("Redis health check failed")
		return false
	}
	return true
}

// Stats implements cache.Store. Counters are per process. Entries is -1
// because counting keys on a shared server needs a full SCAN; use Count.
func (s *Store) Stats() cache.Stats {
	hits, misses := s.hits.Load(), s.misses.Load()
	return cache.Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    s.sets.Load(),
		Entries: -1,
		HitRate: cache.HitRate(hits, misses),
	}
}

// Count scans the keys under the prefix. It is O(keys) and meant for
// operator tooling, not health probes.
func (s *Store) Count(ctx context.Context) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ cache.Store = (*Store)(nil)
