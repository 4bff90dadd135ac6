package optimizer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// optimizationDuration tracks the time taken for plan selection.
	optimizationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deal_planner_optimization_duration_seconds",
		Help:    "Time taken to select a purchase plan",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	// needsCount tracks the number of ingredients per optimization.
	needsCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deal_planner_optimization_needs_count",
		Help:    "Ingredients per optimization request",
		Buckets: []float64{1, 5, 10, 20, 50, 100},
	})

	// storesPerPlan tracks how many stores a plan visits.
	storesPerPlan = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deal_planner_plan_stores_count",
		Help:    "Stores visited per purchase plan",
		Buckets: []float64{0, 1, 2, 3, 5, 10},
	})

	// unmappedNeeds counts ingredients left out of plans.
	unmappedNeeds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deal_planner_plan_unmapped_total",
		Help: "Ingredients left out of purchase plans by reason",
	}, []string{"reason"})
)

// MetricsRecorder provides methods to record optimizer metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordPlan records one completed optimization.
func (m *MetricsRecorder) RecordPlan(duration time.Duration, needs int, plan *Plan) {
	optimizationDuration.Observe(duration.Seconds())
	needsCount.Observe(float64(needs))
	storesPerPlan.Observe(float64(len(plan.Stores)))
	for _, u := range plan.Unmapped {
		unmappedNeeds.WithLabelValues(u.Reason).Inc()
	}
}
