// Package app builds the planner pipeline from a loaded configuration. The
// server and the CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/kosarica/deal-planner/config"
	"github.com/kosarica/deal-planner/internal/cache"
	"github.com/kosarica/deal-planner/internal/cache/rediscache"
	"github.com/kosarica/deal-planner/internal/discounts"
	"github.com/kosarica/deal-planner/internal/discounts/filesource"
	"github.com/kosarica/deal-planner/internal/discounts/httpsource"
	"github.com/kosarica/deal-planner/internal/discounts/pgsource"
	"github.com/kosarica/deal-planner/internal/matching"
	"github.com/kosarica/deal-planner/internal/optimizer"
	"github.com/kosarica/deal-planner/internal/planner"
	"github.com/kosarica/deal-planner/internal/savings"
)

// App holds the wired components. Close releases the cache and source.
type App struct {
	Config    *config.Config
	Cache     cache.Store
	Source    discounts.Source
	Discounts *discounts.Matcher
	Planner   *planner.Planner

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// NewLogger returns a zerolog logger for the logging section.
func NewLogger(cfg config.LoggingConfig, service string) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer = os.Stdout
	if cfg.Format != "json" {
		output = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", service).Logger()
	return &logger
}

// New wires cache, source, discount matcher and planner.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	a := &App{Config: cfg}

	store, closer, err := NewCache(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	a.Cache = store
	a.closers = append(a.closers, closer)

	source, closer, err := NewSource(ctx, cfg.Source, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Source = source
	a.closers = append(a.closers, closer)

	a.Discounts, err = discounts.NewMatcher(source, store, cfg.Discounts, discounts.WithLogger(logger))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("discount matcher: %w", err)
	}
	a.Planner, err = NewPlanner(cfg, a.Discounts, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// NewPlanner builds the matching, optimization and savings stages around
// finder.
func NewPlanner(cfg *config.Config, finder planner.DiscountFinder, logger *zerolog.Logger) (*planner.Planner, error) {
	m, err := matching.NewMatcher(cfg.Matching, matching.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("ingredient matcher: %w", err)
	}
	o, err := optimizer.New(cfg.Optimizer,
		optimizer.WithLogger(logger),
		optimizer.WithMetrics(optimizer.NewMetricsRecorder()),
	)
	if err != nil {
		return nil, fmt.Errorf("optimizer: %w", err)
	}
	agg, err := savings.New(cfg.Savings)
	if err != nil {
		return nil, fmt.Errorf("savings: %w", err)
	}
	return planner.New(finder, m, o, agg,
		planner.WithLogger(logger),
		planner.WithDefaultRadius(cfg.Discounts.DefaultRadiusKm),
	), nil
}

// NewCache returns the configured cache backend.
func NewCache(ctx context.Context, cfg config.CacheConfig, logger *zerolog.Logger) (cache.Store, io.Closer, error) {
	switch cfg.Backend {
	case config.CacheRedis:
		log := zerolog.Nop()
		if logger != nil {
			log = *logger
		}
		store, err := rediscache.New(ctx, cfg.Redis, log)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.CacheMemory, "":
		store := cache.NewMemoryCache(
			cache.WithName("discounts"),
			cache.WithSweepInterval(cfg.SweepInterval),
			cache.WithLogger(logger),
		)
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// NewSource returns the configured discount source.
func NewSource(ctx context.Context, cfg config.SourceConfig, logger *zerolog.Logger) (discounts.Source, io.Closer, error) {
	switch cfg.Type {
	case config.SourceHTTP:
		src, err := httpsource.New(cfg.HTTP, logger)
		if err != nil {
			return nil, nil, err
		}
		return src, closerFunc(func() error { return nil }), nil
	case config.SourcePostgres:
		pool, err := pgsource.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		src := pgsource.New(pool, logger)
		if err := src.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return src, closerFunc(func() error { pool.Close(); return nil }), nil
	case config.SourceFile:
		src, err := filesource.New(cfg.File, logger)
		if err != nil {
			return nil, nil, err
		}
		return src, closerFunc(func() error { return nil }), nil
	default:
		return nil, nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

// Close releases resources in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
