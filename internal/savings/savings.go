// Package savings totals the money and time a purchase plan saves.
package savings

import (
	"math"

	"github.com/kosarica/deal-planner/internal/optimizer"
)

// Config holds the time estimate constants.
type Config struct {
	PerStoreOverheadMinutes float64 `mapstructure:"per_store_overhead_minutes" json:"perStoreOverheadMinutes"`
	MinutesPerKm            float64 `mapstructure:"minutes_per_km" json:"minutesPerKm"`
}

// Defaults returns 30 minutes per store and 3 minutes per kilometer.
func Defaults() Config {
	return Config{PerStoreOverheadMinutes: 30, MinutesPerKm: 3}
}

// Validate rejects negative constants.
func (c Config) Validate() error {
	if c.PerStoreOverheadMinutes < 0 || math.IsNaN(c.PerStoreOverheadMinutes) {
		return ErrInvalidConfig{Field: "per_store_overhead_minutes", Reason: "must be non-negative"}
	}
	if c.MinutesPerKm < 0 || math.IsNaN(c.MinutesPerKm) {
		return ErrInvalidConfig{Field: "minutes_per_km", Reason: "must be non-negative"}
	}
	return nil
}

// ErrInvalidConfig is returned when the configuration is invalid.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e ErrInvalidConfig) Error() string {
	return e.Field + ": " + e.Reason
}

// Summary is the aggregate of a plan. Money is in minor units.
type Summary struct {
	TotalSavings int64 `json:"totalSavings"`
	TotalCost    int64 `json:"totalCost"`
	RegularCost  int64 `json:"regularCost"`
	StoreCount   int   `json:"storeCount"`

	// TimeSavingsMinutes is BaselineMinutes minus PlanMinutes. It is negative
	// when the plan visits more stores than the baseline, and zero when no
	// single store carries every purchased ingredient.
	TimeSavingsMinutes float64 `json:"timeSavingsMinutes"`
	PlanMinutes        float64 `json:"planMinutes"`
	BaselineMinutes    float64 `json:"baselineMinutes"`
	BaselineStore      string  `json:"baselineStore"`
}

// Aggregator computes plan summaries.
type Aggregator struct {
	cfg Config
}

// New validates cfg.
func New(cfg Config) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{cfg: cfg}, nil
}

// StoreMinutes is the time estimate for one store visit.
func (a *Aggregator) StoreMinutes(distanceKm float64) float64 {
	return a.cfg.PerStoreOverheadMinutes + distanceKm*a.cfg.MinutesPerKm
}

// Aggregate sums the plan's purchases and estimates its time savings
// against the closest single store that could have supplied every purchased
// ingredient.
func (a *Aggregator) Aggregate(plan *optimizer.Plan) Summary {
	var s Summary
	if plan == nil {
		return s
	}
	for _, p := range plan.Purchases {
		s.TotalSavings += p.Savings
		s.TotalCost += p.Price
		s.RegularCost += p.OriginalPrice
	}
	s.StoreCount = len(plan.Stores)
	if len(plan.Purchases) == 0 {
		return s
	}

	for _, store := range plan.Stores {
		s.PlanMinutes += a.StoreMinutes(store.DistanceKm)
	}

	baseline, ok := closestCoveringStore(plan)
	if !ok {
		return s
	}
	s.BaselineStore = baseline.StoreName
	s.BaselineMinutes = a.StoreMinutes(baseline.DistanceKm)
	s.TimeSavingsMinutes = round2(s.BaselineMinutes - s.PlanMinutes)
	return s
}

func closestCoveringStore(plan *optimizer.Plan) (optimizer.StoreCoverage, bool) {
	need := make(map[int]struct{}, len(plan.Purchased))
	for _, idx := range plan.Purchased {
		need[idx] = struct{}{}
	}

	var best optimizer.StoreCoverage
	found := false
	for _, store := range plan.Coverage {
		covered := 0
		for _, idx := range store.Needs {
			if _, ok := need[idx]; ok {
				covered++
			}
		}
		if covered < len(need) {
			continue
		}
		if !found || store.DistanceKm < best.DistanceKm ||
			(store.DistanceKm == best.DistanceKm && store.StoreName < best.StoreName) {
			best, found = store, true
		}
	}
	return best, found
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
