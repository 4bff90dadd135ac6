// Package planner is the entry point for shopping plan optimization. It runs
// the discount search, ingredient matching, plan selection and savings
// aggregation for one request.
package planner

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kosarica/deal-planner/internal/discounts"
	"github.com/kosarica/deal-planner/internal/matching"
	"github.com/kosarica/deal-planner/internal/optimizer"
	"github.com/kosarica/deal-planner/internal/savings"
	"github.com/kosarica/deal-planner/internal/types"
)

var tracer = otel.Tracer("github.com/kosarica/deal-planner/internal/planner")

// DiscountFinder returns the offers valid for a shopper's location and
// window. *discounts.Matcher implements it.
type DiscountFinder interface {
	Find(ctx context.Context, loc types.Location, radiusKm float64, window types.ShoppingWindow) (*discounts.Result, error)
}

// Request is a full optimization request. A zero RadiusKm uses the planner
// default.
type Request struct {
	Location    types.Location          `json:"location"`
	RadiusKm    float64                 `json:"radiusKm,omitempty"`
	Meals       []types.MealRequirement `json:"meals"`
	Preferences optimizer.Preferences   `json:"preferences"`
	Window      types.ShoppingWindow    `json:"window"`
}

// ShoppingRecommendation is the optimization result. Money is in minor
// units.
type ShoppingRecommendation struct {
	Purchases          []optimizer.Purchase     `json:"purchases"`
	TotalSavings       int64                    `json:"totalSavings"`
	TimeSavingsMinutes float64                  `json:"timeSavingsMinutes"`
	Stores             []optimizer.StoreSummary `json:"stores"`
	Summary            savings.Summary          `json:"summary"`
	Coverage           []matching.MealCoverage  `json:"coverage"`
	Unmapped           []optimizer.UnmappedNeed `json:"unmapped"`
	Weights            optimizer.Weights        `json:"weights"`
	Explanation        string                   `json:"explanation"`
	Notes              []string                 `json:"notes"`
	OffersConsidered   int                      `json:"offersConsidered"`
	RadiusKm           float64                  `json:"radiusKm"`
	Stale              bool                     `json:"stale"`
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger.With().Str("component", "planner").Logger()
		}
	}
}

// WithDefaultRadius sets the radius used when a request has none.
func WithDefaultRadius(km float64) Option {
	return func(p *Planner) {
		if km > 0 {
			p.defaultRadiusKm = km
		}
	}
}

// Planner wires the pipeline stages. It holds no per-request state.
type Planner struct {
	finder     DiscountFinder
	matcher    *matching.Matcher
	optimizer  *optimizer.Optimizer
	aggregator *savings.Aggregator

	defaultRadiusKm float64
	logger          zerolog.Logger
}

// New returns a Planner. Every stage is required.
func New(finder DiscountFinder, m *matching.Matcher, o *optimizer.Optimizer, a *savings.Aggregator, opts ...Option) *Planner {
	p := &Planner{
		finder:          finder,
		matcher:         m,
		optimizer:       o,
		aggregator:      a,
		defaultRadiusKm: 5,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultRadiusKm returns the radius used when a request has none.
func (p *Planner) DefaultRadiusKm() float64 { return p.defaultRadiusKm }

// Optimize plans purchases for meals within the default radius.
func (p *Planner) Optimize(ctx context.Context, loc types.Location, meals []types.MealRequirement, prefs optimizer.Preferences, window types.ShoppingWindow) (*ShoppingRecommendation, error) {
	return p.OptimizeRequest(ctx, Request{Location: loc, Meals: meals, Preferences: prefs, Window: window})
}

// OptimizeRequest validates the request before any upstream call, then runs
// the pipeline. A location without offers, or offers that match nothing,
// yields an empty recommendation with an explanation rather than an error.
// Validation failures are types.ValidationError; source failures with no
// cached fallback are *types.UpstreamError.
func (p *Planner) OptimizeRequest(ctx context.Context, req Request) (*ShoppingRecommendation, error) {
	if err := p.validate(&req); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "planner.Optimize")
	defer span.End()
	span.SetAttributes(
		attribute.Int("meals", len(req.Meals)),
		attribute.Float64("radius_km", req.RadiusKm),
	)

	started := time.Now()
	found, err := p.finder.Find(ctx, req.Location, req.RadiusKm, req.Window)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "discount search failed")
		p.logger.Error().Err(err).Str("location", req.Location.String()).Msg("Discount search failed")
		return nil, err
	}

	matches := p.matcher.MatchMeals(req.Meals, found.Items)
	needs := optimizer.NeedsFromMatches(req.Meals, matches)
	plan, err := p.optimizer.Optimize(needs, req.Preferences, req.Window)
	if err != nil {
		return nil, err
	}
	summary := p.aggregator.Aggregate(plan)

	rec := &ShoppingRecommendation{
		Purchases:          plan.Purchases,
		TotalSavings:       summary.TotalSavings,
		TimeSavingsMinutes: summary.TimeSavingsMinutes,
		Stores:             plan.Stores,
		Summary:            summary,
		Coverage:           coverage(req.Meals, plan),
		Unmapped:           plan.Unmapped,
		Weights:            plan.Weights,
		OffersConsidered:   len(found.Items),
		RadiusKm:           req.RadiusKm,
		Stale:              found.Stale,
	}
	rec.Explanation = explain(rec, req, len(needs))
	rec.Notes = notes(rec, req)

	span.SetAttributes(
		attribute.Int("purchases", len(rec.Purchases)),
		attribute.Int("stores", len(rec.Stores)),
	)
	p.logger.Info().
		Int("offers", rec.OffersConsidered).
		Int("purchases", len(rec.Purchases)).
		Int("unmapped", len(rec.Unmapped)).
		Int("stores", len(rec.Stores)).
		Int64("savings", rec.TotalSavings).
		Bool("stale", rec.Stale).
		Dur("duration", time.Since(started)).
		Msg("Shopping plan optimized")
	return rec, nil
}

func (p *Planner) validate(req *Request) error {
	if err := req.Location.Validate(); err != nil {
		return err
	}
	if err := req.Window.Validate(); err != nil {
		return err
	}
	if err := req.Preferences.Validate(); err != nil {
		return err
	}
	if err := types.ValidateMeals(req.Meals); err != nil {
		return err
	}
	switch r := req.RadiusKm; {
	case math.IsNaN(r) || math.IsInf(r, 0) || r < 0:
		return types.ValidationError{Field: "radiusKm", Reason: "must be a positive number"}
	case r == 0:
		req.RadiusKm = p.defaultRadiusKm
	}
	return nil
}

// coverage reports, per meal, the ingredients that ended up with a purchase.
// Needs are numbered meal by meal in declared order.
func coverage(meals []types.MealRequirement, plan *optimizer.Plan) []matching.MealCoverage {
	purchased := make(map[int]struct{}, len(plan.Purchased))
	for _, idx := range plan.Purchased {
		purchased[idx] = struct{}{}
	}

	out := make([]matching.MealCoverage, 0, len(meals))
	idx := 0
	for _, meal := range meals {
		var unmapped []string
		for _, ingredient := range meal.Ingredients {
			if _, ok := purchased[idx]; !ok {
				unmapped = append(unmapped, ingredient)
			}
			idx++
		}
		out = append(out, matching.NewCoverage(meal.MealName, len(meal.Ingredients), unmapped))
	}
	return out
}
