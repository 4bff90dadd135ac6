package discounts

import (
	"context"

	"github.com/kosarica/deal-planner/internal/types"
)

// Source is an upstream provider of discount offers. Implementations return
// *types.UpstreamError for failures so the matcher can tell transient
// failures from permanent ones; any other error is treated as permanent.
type Source interface {
	// Name labels the source in logs, metrics and errors.
	Name() string

	// Fetch returns the offers near loc. Sources may return offers outside
	// radiusKm; the matcher filters them.
	Fetch(ctx context.Context, loc types.Location, radiusKm float64) ([]types.DiscountItem, error)

	// HealthCheck reports whether the source is reachable.
	HealthCheck(ctx context.Context) bool
}

// DistanceCalculator computes travel distance between two points, for
// example a routing or geocoding service.
type DistanceCalculator interface {
	CalculateDistance(ctx context.Context, origin, destination types.Location) (float64, error)
}
