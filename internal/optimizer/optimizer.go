// Package optimizer selects one product and store per ingredient by weighted
// savings, distance and quality scores, rewarding store consolidation, and
// assigns each purchase a day inside the shopping window.
package optimizer

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/kosarica/deal-planner/internal/types"
)

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *Optimizer) {
		if logger != nil {
			o.logger = logger.With().Str("component", "optimizer").Logger()
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *MetricsRecorder) Option {
	return func(o *Optimizer) {
		if m != nil {
			o.metrics = m
		}
	}
}

// Optimizer holds no per-request state and is safe for concurrent use.
type Optimizer struct {
	cfg     Config
	logger  zerolog.Logger
	metrics *MetricsRecorder
}

// New validates cfg and returns an Optimizer.
func New(cfg Config, opts ...Option) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Optimizer{
		cfg:     cfg,
		logger:  zerolog.Nop(),
		metrics: NewMetricsRecorder(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Config returns the active configuration.
func (o *Optimizer) Config() Config { return o.cfg }

// Optimize processes needs in order. For each it scores every candidate that
// has not expired before the window start, with the consolidation bonus
// reflecting the selections made so far, and keeps the best one. Needs
// without a usable candidate are reported in Plan.Unmapped.
func (o *Optimizer) Optimize(needs []Need, prefs Preferences, window types.ShoppingWindow) (*Plan, error) {
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()

	weights := prefs.EffectiveWeights(o.cfg.DefaultWeights)
	plan := &Plan{
		Purchases: []Purchase{},
		Stores:    []StoreSummary{},
		Unmapped:  []UnmappedNeed{},
		Weights:   weights,
	}

	selectedAt := make(map[string]int)
	coverage := make(map[string]*StoreCoverage)
	var coverageOrder []string
	var purchased []int

	for i, need := range needs {
		if len(need.Candidates) == 0 {
			plan.Unmapped = append(plan.Unmapped, UnmappedNeed{MealName: need.MealName, Ingredient: need.Ingredient, Reason: ReasonNoMatch})
			continue
		}

		var (
			best      types.DiscountItem
			bestScore Score
			bestDay   time.Time
			found     bool
		)
		for _, cand := range need.Candidates {
			item := cand.Item
			day, ok := AssignDay(window, item.ExpirationDate, need.PlannedDay)
			if !ok {
				continue
			}

			sc, seen := coverage[item.StoreName]
			if !seen {
				sc = &StoreCoverage{StoreName: item.StoreName, DistanceKm: item.TravelDistanceKm}
				coverage[item.StoreName] = sc
				coverageOrder = append(coverageOrder, item.StoreName)
			}
			if n := len(sc.Needs); n == 0 || sc.Needs[n-1] != i {
				sc.Needs = append(sc.Needs, i)
			}

			score := o.ScoreCandidate(item, weights, selectedAt[item.StoreName])
			if !found || better(item, score.Total, best, bestScore.Total) {
				best, bestScore, bestDay, found = item, score, day, true
			}
		}

		if !found {
			plan.Unmapped = append(plan.Unmapped, UnmappedNeed{MealName: need.MealName, Ingredient: need.Ingredient, Reason: ReasonAllExpired})
			continue
		}

		selectedAt[best.StoreName]++
		purchased = append(purchased, i)
		plan.Purchases = append(plan.Purchases, Purchase{
			ProductName:     best.ProductName,
			StoreName:       best.StoreName,
			PurchaseDay:     bestDay,
			Price:           best.DiscountPrice,
			OriginalPrice:   best.OriginalPrice,
			Savings:         best.Savings(),
			MealAssociation: need.MealName,
			Ingredient:      need.Ingredient,
			IsOrganic:       best.IsOrganic,
			ExpirationDate:  types.Day(best.ExpirationDate),
			DistanceKm:      best.TravelDistanceKm,
			Score:           bestScore.Total,
		})
		o.logger.Debug().
			Str("meal", need.MealName).
			Str("ingredient", need.Ingredient).
			Str("store", best.StoreName).
			Float64("score", bestScore.Total).
			Msg("Selected candidate")
	}

	o.groupByStore(plan, purchased, needs)
	for _, name := range coverageOrder {
		plan.Coverage = append(plan.Coverage, *coverage[name])
	}

	o.metrics.RecordPlan(time.Since(started), len(needs), plan)
	return plan, nil
}

// groupByStore orders stores by distance then name, builds their summaries
// and regroups purchases to match, keeping selection order inside a store.
func (o *Optimizer) groupByStore(plan *Plan, purchased []int, needs []Need) {
	type storeGroup struct {
		summary StoreSummary
		members []int
	}
	groups := make(map[string]*storeGroup)
	var names []string
	for idx, p := range plan.Purchases {
		g, ok := groups[p.StoreName]
		if !ok {
			g = &storeGroup{summary: StoreSummary{Name: p.StoreName, DistanceKm: p.DistanceKm}}
			groups[p.StoreName] = g
			names = append(names, p.StoreName)
		}
		g.members = append(g.members, idx)
		g.summary.ItemCount++
		g.summary.Subtotal += p.Price
		g.summary.Savings += p.Savings
	}

	// Address and location come from the selected offers.
	for idx, p := range plan.Purchases {
		g := groups[p.StoreName]
		if g.summary.Address != "" {
			continue
		}
		for _, cand := range needs[purchased[idx]].Candidates {
			if cand.Item.StoreName == p.StoreName && cand.Item.ProductName == p.ProductName {
				g.summary.Address = cand.Item.StoreAddress
				g.summary.Location = cand.Item.StoreLocation
				break
			}
		}
	}

	sort.SliceStable(names, func(i, j int) bool {
		a, b := groups[names[i]].summary, groups[names[j]].summary
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		return a.Name < b.Name
	})

	purchases := make([]Purchase, 0, len(plan.Purchases))
	order := make([]int, 0, len(purchased))
	for _, name := range names {
		g := groups[name]
		plan.Stores = append(plan.Stores, g.summary)
		for _, idx := range g.members {
			purchases = append(purchases, plan.Purchases[idx])
			order = append(order, purchased[idx])
		}
	}
	plan.Purchases = purchases
	plan.Purchased = order
}
