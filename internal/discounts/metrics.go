package discounts

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deal_planner_upstream_fetch_attempts_total",
		Help: "Upstream discount fetch attempts by source",
	}, []string{"source"})

	fetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deal_planner_upstream_fetch_failures_total",
		Help: "Upstream discount fetches that failed after retries, by source and kind",
	}, []string{"source", "kind"}) // kind: transient, permanent

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deal_planner_upstream_fetch_duration_seconds",
		Help:    "Time taken by a complete upstream fetch including retries",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"source"})

	staleFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deal_planner_stale_fallbacks_total",
		Help: "Requests served from stale cached discounts after upstream failure",
	}, []string{"source"})

	itemsReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deal_planner_discount_items_count",
		Help:    "Number of discount items returned per request after filtering",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
	})

	circuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "deal_planner_circuit_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
	}, []string{"name"})
)

// MetricsRecorder records discount matcher metrics for one source.
type MetricsRecorder struct {
	source string
}

// NewMetricsRecorder creates a recorder labelled with the source name.
func NewMetricsRecorder(source string) *MetricsRecorder {
	return &MetricsRecorder{source: source}
}

// RecordAttempt records one upstream call.
func (m *MetricsRecorder) RecordAttempt() {
	fetchAttempts.WithLabelValues(m.source).Inc()
}

// RecordFetch records a finished fetch, successful or not.
func (m *MetricsRecorder) RecordFetch(duration time.Duration, err error, transient bool) {
	fetchDuration.WithLabelValues(m.source).Observe(duration.Seconds())
	if err == nil {
		return
	}
	kind := "permanent"
	if transient {
		kind = "transient"
	}
	fetchFailures.WithLabelValues(m.source, kind).Inc()
}

// RecordStaleFallback records a response served from the stale store.
func (m *MetricsRecorder) RecordStaleFallback() {
	staleFallbacks.WithLabelValues(m.source).Inc()
}

// RecordItems records the size of a filtered result.
func (m *MetricsRecorder) RecordItems(n int) {
	itemsReturned.Observe(float64(n))
}

// RecordCircuitState records a breaker state change.
func (m *MetricsRecorder) RecordCircuitState(name string, state CircuitBreakerState) {
	circuitState.WithLabelValues(name).Set(float64(state))
}
