// Package pgsource is a discount Source backed by a PostgreSQL offers table,
// filled by the CLI import command from offer feeds.
package pgsource

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/kosarica/deal-planner/internal/types"
)

// SourceName labels this source in errors and metrics.
const SourceName = "postgres"

// Schema creates the offers table. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS discount_offers (
	id               bigserial PRIMARY KEY,
	product_name     text             NOT NULL,
	store_name       text             NOT NULL,
	store_address    text             NOT NULL DEFAULT '',
	latitude         double precision NOT NULL,
	longitude        double precision NOT NULL,
	original_price   bigint           NOT NULL CHECK (original_price > 0),
	discount_price   bigint           NOT NULL CHECK (discount_price > 0 AND discount_price < original_price),
	discount_percent double precision NOT NULL DEFAULT 0,
	expires_on       date             NOT NULL,
	is_organic       boolean          NOT NULL DEFAULT false,
	imported_at      timestamptz      NOT NULL DEFAULT now(),
	UNIQUE (product_name, store_name, discount_price, expires_on)
);
CREATE INDEX IF NOT EXISTS discount_offers_geo_idx ON discount_offers (latitude, longitude);
CREATE INDEX IF NOT EXISTS discount_offers_expires_idx ON discount_offers (expires_on);
`

const kmPerDegreeLat = 111.195

// Config holds connection pool settings.
type Config struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// Connect creates and pings a connection pool.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("error parsing database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("error creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	return pool, nil
}

// Source reads offers from the discount_offers table.
type Source struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// New wraps a pool. The caller owns the pool.
func New(pool *pgxpool.Pool, logger *zerolog.Logger) *Source {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "pg_source").Logger()
	}
	return &Source{pool: pool, logger: l}
}

// Migrate applies Schema.
func (s *Source) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Name implements discounts.Source.
func (s *Source) Name() string { return SourceName }

// longitudeRanges returns the longitude intervals covering lon±dLon. A box
// that crosses the antimeridian is split in two; otherwise both intervals
// are the same.
func longitudeRanges(lon, dLon float64) [2][2]float64 {
	lo, hi := lon-dLon, lon+dLon
	switch {
	case dLon >= 180:
		return [2][2]float64{{-180, 180}, {-180, 180}}
	case lo < -180:
		return [2][2]float64{{-180, hi}, {lo + 360, 180}}
	case hi > 180:
		return [2][2]float64{{lo, 180}, {-180, hi - 360}}
	}
	return [2][2]float64{{lo, hi}, {lo, hi}}
}

// Fetch implements discounts.Source. It selects the bounding box around the
// radius; the matcher applies the exact great-circle filter.
func (s *Source) Fetch(ctx context.Context, loc types.Location, radiusKm float64) ([]types.DiscountItem, error) {
	dLat := radiusKm / kmPerDegreeLat
	cos := math.Max(math.Cos(loc.Latitude*math.Pi/180), 0.01)
	dLon := radiusKm / (kmPerDegreeLat * cos)
	lon := longitudeRanges(loc.Longitude, dLon)

	rows, err := s.pool.Query(ctx, `
		SELECT product_name, store_name, store_address, latitude, longitude,
		       original_price, discount_price, discount_percent, expires_on, is_organic
		FROM discount_offers
		WHERE latitude BETWEEN $1 AND $2
		  AND (longitude BETWEEN $3 AND $4 OR longitude BETWEEN $5 AND $6)
		ORDER BY id
	`, loc.Latitude-dLat, loc.Latitude+dLat, lon[0][0], lon[0][1], lon[1][0], lon[1][1])
	if err != nil {
		return nil, classify("fetch", err)
	}
	defer rows.Close()

	var items []types.DiscountItem
	for rows.Next() {
		var item types.DiscountItem
		if err := rows.Scan(
			&item.ProductName, &item.StoreName, &item.StoreAddress,
			&item.StoreLocation.Latitude, &item.StoreLocation.Longitude,
			&item.OriginalPrice, &item.DiscountPrice, &item.DiscountPercent,
			&item.ExpirationDate, &item.IsOrganic,
		); err != nil {
			return nil, classify("fetch", fmt.Errorf("scan offer: %w", err))
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("fetch", err)
	}
	return items, nil
}

// HealthCheck implements discounts.Source.
func (s *Source) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Database health check failed")
		return false
	}
	return true
}

// Insert stores offers, skipping ones already present. It returns the number
// of rows inserted.
func (s *Source) Insert(ctx context.Context, items []types.DiscountItem) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`
			INSERT INTO discount_offers (
				product_name, store_name, store_address, latitude, longitude,
				original_price, discount_price, discount_percent, expires_on, is_organic
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (product_name, store_name, discount_price, expires_on) DO NOTHING
		`,
			item.ProductName, item.StoreName, item.StoreAddress,
			item.StoreLocation.Latitude, item.StoreLocation.Longitude,
			item.OriginalPrice, item.DiscountPrice, item.DiscountPercent,
			types.Day(item.ExpirationDate), item.IsOrganic,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for i := range items {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert offer %d (%s): %w", i, items[i].ProductName, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// DeleteExpired removes offers that expired before day.
func (s *Source) DeleteExpired(ctx context.Context, day time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM discount_offers WHERE expires_on < $1`, types.Day(day))
	if err != nil {
		return 0, fmt.Errorf("delete expired offers: %w", err)
	}
	return tag.RowsAffected(), nil
}

// classify wraps database errors. Connection loss, timeouts and resource
// exhaustion are transient; query and schema errors are not.
func classify(op string, err error) error {
	transient := pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case "08", "53", "57": // connection exception, insufficient resources, operator intervention
			transient = true
		case "40": // serialization failure, deadlock
			transient = true
		}
	} else {
		var connErr *pgconn.ConnectError
		if errors.As(err, &connErr) {
			transient = true
		}
	}
	return &types.UpstreamError{Source: SourceName, Op: op, Transient: transient, Err: err}
}
