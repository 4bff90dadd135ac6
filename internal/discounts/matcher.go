// Package discounts fetches discount offers from an upstream source through
// the cache and filters them for one shopper: within a radius, deduplicated,
// valid for the shopping window, closest stores first.
package discounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/kosarica/deal-planner/internal/cache"
	"github.com/kosarica/deal-planner/internal/http/ratelimit"
	"github.com/kosarica/deal-planner/internal/types"
)

const staleKeyPrefix = "stale:"

var tracer = otel.Tracer("github.com/kosarica/deal-planner/internal/discounts")

// CacheKey derives the cache key for a search. Coordinates and radius are
// rounded to 4 decimal places so near-identical requests share an entry.
func CacheKey(loc types.Location, radiusKm float64) string {
	return fmt.Sprintf("discounts:%.4f:%.4f:%.4f", loc.Latitude, loc.Longitude, radiusKm)
}

// Result is the outcome of a discount search.
type Result struct {
	Items []types.DiscountItem `json:"items"`

	// CacheHit is set when upstream was not called.
	CacheHit bool `json:"cacheHit"`

	// Stale is set when upstream failed and a previously fetched result
	// past its normal TTL was served instead.
	Stale bool `json:"stale"`
}

// Matcher is the Discount Matcher. It is safe for concurrent use.
type Matcher struct {
	source     Source
	cache      cache.Store
	calculator DistanceCalculator
	cfg        Config

	breaker *CircuitBreaker
	sf      singleflight.Group
	metrics *MetricsRecorder
	logger  zerolog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithDistanceCalculator replaces haversine distance with an external
// calculator. Each call is bounded by Config.DistanceTimeout. Failures fall
// back to haversine per item, and after a timeout the rest of the fetched
// batch uses haversine.
func WithDistanceCalculator(dc DistanceCalculator) Option {
	return func(m *Matcher) { m.calculator = dc }
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(m *Matcher) {
		if logger != nil {
			m.logger = logger.With().Str("component", "discount_matcher").Logger()
		}
	}
}

// NewMatcher creates a Matcher in front of source, caching in store.
func NewMatcher(source Source, store cache.Store, cfg Config, opts ...Option) (*Matcher, error) {
	if source == nil {
		return nil, errors.New("discount source is required")
	}
	if store == nil {
		return nil, errors.New("cache store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Matcher{
		source:  source,
		cache:   store,
		cfg:     cfg,
		metrics: NewMetricsRecorder(source.Name()),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.breaker = NewCircuitBreaker("discounts:"+source.Name(), cfg.CircuitBreaker, m.metrics, &m.logger)
	return m, nil
}

// Config returns the matcher configuration.
func (m *Matcher) Config() Config { return m.cfg }

// Find returns the offers within radiusKm of loc that are still valid on the
// first day of window.
func (m *Matcher) Find(ctx context.Context, loc types.Location, radiusKm float64, window types.ShoppingWindow) (*Result, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	res, err := m.Nearby(ctx, loc, radiusKm)
	if err != nil {
		return nil, err
	}
	res.Items = FilterValid(res.Items, window.Start)
	m.metrics.RecordItems(len(res.Items))
	return res, nil
}

// Nearby returns the geo-filtered, deduplicated, distance-sorted offers for
// loc without applying a validity window. This is the cached form.
func (m *Matcher) Nearby(ctx context.Context, loc types.Location, radiusKm float64) (*Result, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm <= 0 {
		return nil, types.ValidationError{Field: "radius_km", Reason: "must be a positive number"}
	}

	key := CacheKey(loc, radiusKm)
	if items, ok := m.readCache(ctx, key); ok {
		return &Result{Items: items, CacheHit: true}, nil
	}

	// the shared fetch is detached from any one caller's cancellation
	ch := m.sf.DoChan(key, func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx), key, loc, radiusKm)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return m.fallback(ctx, key, r.Err)
		}
		return &Result{Items: slices.Clone(r.Val.([]types.DiscountItem))}, nil
	}
}

// Invalidate drops the fresh cache entry for a search. The stale fallback
// entry is kept.
func (m *Matcher) Invalidate(ctx context.Context, loc types.Location, radiusKm float64) error {
	return m.cache.Delete(ctx, CacheKey(loc, radiusKm))
}

// SourceName returns the upstream source name.
func (m *Matcher) SourceName() string { return m.source.Name() }

// SourceHealthy reports upstream health.
func (m *Matcher) SourceHealthy(ctx context.Context) bool { return m.source.HealthCheck(ctx) }

// CacheHealthy reports cache health.
func (m *Matcher) CacheHealthy(ctx context.Context) bool { return m.cache.HealthCheck(ctx) }

// CacheStats returns the cache counters.
func (m *Matcher) CacheStats() cache.Stats { return m.cache.Stats() }

// CircuitState returns the upstream circuit breaker state.
func (m *Matcher) CircuitState() CircuitBreakerState { return m.breaker.State() }

func (m *Matcher) refresh(ctx context.Context, key string, loc types.Location, radiusKm float64) ([]types.DiscountItem, error) {
	ctx, span := tracer.Start(ctx, "discounts.fetch", trace.WithAttributes(
		attribute.String("source", m.source.Name()),
		attribute.String("location", loc.String()),
		attribute.Float64("radius_km", radiusKm),
	))
	defer span.End()

	start := time.Now()
	var raw []types.DiscountItem
	attempts, err := ratelimit.Retry(ctx, m.cfg.Retry, types.IsTransient, func(ctx context.Context, attempt int) error {
		if !m.breaker.Allow() {
			return &types.UpstreamError{Source: m.source.Name(), Op: "fetch", Err: ErrCircuitOpen}
		}
		m.metrics.RecordAttempt()

		attemptCtx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
		defer cancel()

		items, err := m.source.Fetch(attemptCtx, loc, radiusKm)
		if err != nil {
			err = m.classify(attemptCtx, err)
			m.breaker.RecordFailure(err)
			m.logger.Debug().
				Err(err).
				Int("attempt", attempt+1).
				Str("key", key).
				Bool("transient", types.IsTransient(err)).
				Msg("Upstream fetch attempt failed")
			return err
		}
		m.breaker.RecordSuccess()
		raw = items
		return nil
	})
	m.metrics.RecordFetch(time.Since(start), err, types.IsTransient(err))
	span.SetAttributes(attribute.Int("attempts", attempts))

	if err != nil {
		var upstream *types.UpstreamError
		if errors.As(err, &upstream) {
			annotated := *upstream
			annotated.Attempts = attempts
			err = &annotated
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	items := m.filter(ctx, loc, radiusKm, raw)
	span.SetAttributes(attribute.Int("items.raw", len(raw)), attribute.Int("items.kept", len(items)))
	m.logger.Info().
		Str("key", key).
		Int("raw", len(raw)).
		Int("kept", len(items)).
		Int("attempts", attempts).
		Dur("duration", time.Since(start)).
		Msg("Fetched discounts from upstream")

	m.store(ctx, key, items)
	return items, nil
}

// classify converts source errors that are not already UpstreamErrors.
// Timeouts and network errors are transient; anything else is permanent.
func (m *Matcher) classify(ctx context.Context, err error) error {
	var upstream *types.UpstreamError
	if errors.As(err, &upstream) {
		return err
	}
	var netErr net.Error
	transient := errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errors.As(err, &netErr)
	return &types.UpstreamError{Source: m.source.Name(), Op: "fetch", Transient: transient, Err: err}
}

// filter validates each raw offer, annotates travel distance and time, keeps
// offers within the radius, drops duplicates and sorts by distance.
func (m *Matcher) filter(ctx context.Context, loc types.Location, radiusKm float64, raw []types.DiscountItem) []types.DiscountItem {
	seen := make(map[string]struct{}, len(raw))
	out := make([]types.DiscountItem, 0, len(raw))
	rejected := 0
	calculator := m.calculator

	for _, item := range raw {
		if err := item.Validate(); err != nil {
			rejected++
			continue
		}
		km, err := m.distanceKm(ctx, calculator, loc, item.StoreLocation)
		if errors.Is(err, context.DeadlineExceeded) {
			// a calculator that timed out once is skipped for the rest of the batch
			calculator = nil
		}
		if km > radiusKm {
			continue
		}
		dedupeKey := item.DedupeKey()
		if _, dup := seen[dedupeKey]; dup {
			continue
		}
		seen[dedupeKey] = struct{}{}

		minutes := item.TravelTimeMinutes
		if minutes == 0 {
			minutes = km * m.cfg.MinutesPerKm
		}
		out = append(out, item.WithTravel(km, minutes))
	}

	if rejected > 0 {
		m.logger.Warn().Int("rejected", rejected).Msg("Dropped invalid offers from upstream")
	}
	SortByDistance(out)
	return out
}

func (m *Matcher) distanceKm(ctx context.Context, calculator DistanceCalculator, origin, destination types.Location) (float64, error) {
	var err error
	if calculator != nil {
		callCtx, cancel := context.WithTimeout(ctx, m.cfg.DistanceTimeout)
		var km float64
		km, err = calculator.CalculateDistance(callCtx, origin, destination)
		if err == nil && callCtx.Err() != nil {
			err = callCtx.Err()
		}
		cancel()
		if err == nil && km >= 0 && !math.IsNaN(km) {
			return km, nil
		}
		m.logger.Warn().Err(err).Msg("Distance calculator failed, using haversine")
	}
	return HaversineKm(origin.Latitude, origin.Longitude, destination.Latitude, destination.Longitude), err
}

func (m *Matcher) store(ctx context.Context, key string, items []types.DiscountItem) {
	data, err := json.Marshal(items)
	if err != nil {
		m.logger.Error().Err(err).Str("key", key).Msg("Failed to encode discounts for cache")
		return
	}
	if err := m.cache.Set(ctx, key, data, m.cfg.CacheTTL); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache discounts")
	}
	if err := m.cache.Set(ctx, staleKeyPrefix+key, data, m.cfg.StaleTTL); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("Failed to write stale fallback")
	}
}

func (m *Matcher) readCache(ctx context.Context, key string) ([]types.DiscountItem, bool) {
	data, ok := m.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var items []types.DiscountItem
	if err := json.Unmarshal(data, &items); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		_ = m.cache.Delete(ctx, key)
		return nil, false
	}
	return items, true
}

func (m *Matcher) fallback(ctx context.Context, key string, err error) (*Result, error) {
	if items, ok := m.readCache(ctx, staleKeyPrefix+key); ok {
		m.metrics.RecordStaleFallback()
		m.logger.Warn().
			Err(err).
			Str("key", key).
			Int("items", len(items)).
			Msg("Upstream failed, serving stale discounts")
		return &Result{Items: items, CacheHit: true, Stale: true}, nil
	}

	m.logger.Error().Err(err).Str("key", key).Msg("Upstream failed and no stale discounts are cached")
	return nil, fmt.Errorf("%w: %w", err, types.ErrNoStaleData)
}

// FilterValid drops offers that expire before start. The input is not modified.
func FilterValid(items []types.DiscountItem, start time.Time) []types.DiscountItem {
	out := make([]types.DiscountItem, 0, len(items))
	for _, item := range items {
		if !item.ExpiresBefore(start) {
			out = append(out, item)
		}
	}
	return out
}
