package pgsource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kosarica/deal-planner/internal/types"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("deals"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := Connect(ctx, Config{URL: connString, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

var copenhagen = types.Location{Latitude: 55.6761, Longitude: 12.5683}

func testOffer(product, store string, lat, lon float64, original, discount int64) types.DiscountItem {
	return types.DiscountItem{
		ProductName:     product,
		StoreName:       store,
		StoreLocation:   types.Location{Latitude: lat, Longitude: lon},
		StoreAddress:    store + " 1",
		OriginalPrice:   original,
		DiscountPrice:   discount,
		DiscountPercent: 20,
		ExpirationDate:  time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestSourceIntegration(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	src := New(pool, nil)

	require.NoError(t, src.Migrate(ctx))
	require.NoError(t, src.Migrate(ctx), "schema is idempotent")
	assert.True(t, src.HealthCheck(ctx))

	near := testOffer("Letmælk", "Netto", 55.6800, 12.5700, 1295, 995)
	near.IsOrganic = true
	items := []types.DiscountItem{
		near,
		testOffer("Rugbrød", "Føtex", 55.6700, 12.5600, 2500, 2000),
		testOffer("Ost", "Aarhus Netto", 56.1629, 10.2039, 4000, 3000),
	}

	inserted, err := src.Insert(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, int64(3), inserted)

	inserted, err = src.Insert(ctx, items[:1])
	require.NoError(t, err)
	assert.Zero(t, inserted, "duplicate offers are skipped")

	got, err := src.Fetch(ctx, copenhagen, 5)
	require.NoError(t, err)
	require.Len(t, got, 2, "the Aarhus offer is outside the bounding box")

	assert.Equal(t, "Letmælk", got[0].ProductName)
	assert.Equal(t, int64(1295), got[0].OriginalPrice)
	assert.Equal(t, int64(995), got[0].DiscountPrice)
	assert.True(t, got[0].IsOrganic)
	assert.Equal(t, near.StoreLocation, got[0].StoreLocation)
	assert.True(t, got[0].ExpirationDate.Equal(near.ExpirationDate))

	fiji := types.Location{Latitude: -16.5, Longitude: 179.99}
	_, err = src.Insert(ctx, []types.DiscountItem{testOffer("Kokos", "Taveuni Mart", -16.5, -179.99, 500, 400)})
	require.NoError(t, err)
	got, err = src.Fetch(ctx, fiji, 5)
	require.NoError(t, err)
	require.Len(t, got, 1, "stores across the antimeridian are inside the box")
	assert.Equal(t, "Kokos", got[0].ProductName)

	deleted, err := src.DeleteExpired(ctx, time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
}

func TestLongitudeRanges(t *testing.T) {
	tests := []struct {
		name string
		lon  float64
		dLon float64
		want [2][2]float64
	}{
		{"inside", 12.5, 0.5, [2][2]float64{{12, 13}, {12, 13}}},
		{"east edge", 179.75, 0.5, [2][2]float64{{179.25, 180}, {-180, -179.75}}},
		{"west edge", -179.75, 0.5, [2][2]float64{{-180, -179.25}, {179.75, 180}}},
		{"whole globe", 0, 200, [2][2]float64{{-180, 180}, {-180, 180}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := longitudeRanges(tt.lon, tt.dLon)
			for i := range got {
				assert.InDelta(t, tt.want[i][0], got[i][0], 1e-9)
				assert.InDelta(t, tt.want[i][1], got[i][1], 1e-9)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"connection exception", &pgconn.PgError{Code: "08006"}, true},
		{"too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("fetch", tt.err)
			var upstream *types.UpstreamError
			require.ErrorAs(t, err, &upstream)
			assert.Equal(t, SourceName, upstream.Source)
			assert.Equal(t, tt.transient, upstream.Transient)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
