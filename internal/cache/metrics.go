package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deal_planner_cache_hits_total",
		Help: "Total number of cache hits by cache name",
	}, []string{"cache"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deal_planner_cache_misses_total",
		Help: "Total number of cache misses by cache name",
	}, []string{"cache"})

	cacheSets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deal_planner_cache_sets_total",
		Help: "Total number of cache writes by cache name",
	}, []string{"cache"})

	cacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deal_planner_cache_evictions_total",
		Help: "Total number of expired entries removed by cache name",
	}, []string{"cache"})

	cacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "deal_planner_cache_entries",
		Help: "Number of entries currently held by cache name",
	}, []string{"cache"})
)

// MetricsRecorder mirrors cache counters into Prometheus.
type MetricsRecorder struct {
	name string
}

// NewMetricsRecorder creates a recorder labelled with the cache name.
func NewMetricsRecorder(name string) *MetricsRecorder {
	return &MetricsRecorder{name: name}
}

func (m *MetricsRecorder) RecordHit()  { cacheHits.WithLabelValues(m.name).Inc() }
func (m *MetricsRecorder) RecordMiss() { cacheMisses.WithLabelValues(m.name).Inc() }
func (m *MetricsRecorder) RecordSet()  { cacheSets.WithLabelValues(m.name).Inc() }

// RecordEvictions adds n expired-entry removals.
func (m *MetricsRecorder) RecordEvictions(n int) {
	if n > 0 {
		cacheEvictions.WithLabelValues(m.name).Add(float64(n))
	}
}

// RecordEntries sets the current entry gauge.
func (m *MetricsRecorder) RecordEntries(n int) {
	cacheEntries.WithLabelValues(m.name).Set(float64(n))
}
