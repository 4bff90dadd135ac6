package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingredientsMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deal_planner_ingredients_matched_total",
		Help: "Ingredients with at least one discounted product match",
	})

	ingredientsUnmapped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deal_planner_ingredients_unmapped_total",
		Help: "Ingredients with no product above the similarity threshold",
	})

	candidatesPerIngredient = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deal_planner_ingredient_candidates_count",
		Help:    "Products scored per ingredient",
		Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000},
	})
)

func recordMatch(candidates, matches int) {
	candidatesPerIngredient.Observe(float64(candidates))
	if matches > 0 {
		ingredientsMatched.Inc()
	} else {
		ingredientsUnmapped.Inc()
	}
}
