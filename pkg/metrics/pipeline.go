package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records cache effectiveness and aggregation behavior.
type PipelineMetrics struct {
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	aggregation  prometheus.Histogram
	mutationOK   *prometheus.CounterVec
	mutationFail *prometheus.CounterVec
	combinedSize prometheus.Histogram
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	cacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lookup_cache_hits_total",
		Help: "Lookup cache hits by cache name.",
	}, []string{"cache"})
	cacheMisses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lookup_cache_misses_total",
		Help: "Lookup cache misses by cache name.",
	}, []string{"cache"})
	aggregation := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recommendation_aggregation_seconds",
		Help:    "Duration of cart-wide recommendation aggregation.",
		Buckets: prometheus.DefBuckets,
	})
	mutationOK := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutation_success_total",
		Help: "Successful cart mutations by operation.",
	}, []string{"op"})
	mutationFail := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutation_failure_total",
		Help: "Failed cart mutations by operation.",
	}, []string{"op"})
	combinedSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "combined_recommendations_size",
		Help:    "Size of the combined recommendation list after filtering.",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 8, 10},
	})
	reg.MustRegister(cacheHits, cacheMisses, aggregation, mutationOK, mutationFail, combinedSize)
	return &PipelineMetrics{
		cacheHits:    cacheHits,
		cacheMisses:  cacheMisses,
		aggregation:  aggregation,
		mutationOK:   mutationOK,
		mutationFail: mutationFail,
		combinedSize: combinedSize,
	}
}

// IncCacheHit increments the hit counter for the named cache.
func (m *PipelineMetrics) IncCacheHit(cache string) {
	if m == nil || m.cacheHits == nil {
		return
	}
	m.cacheHits.WithLabelValues(normalizeLabel(cache)).Inc()
}

// IncCacheMiss increments the miss counter for the named cache.
func (m *PipelineMetrics) IncCacheMiss(cache string) {
	if m == nil || m.cacheMisses == nil {
		return
	}
	m.cacheMisses.WithLabelValues(normalizeLabel(cache)).Inc()
}

// ObserveAggregation records the duration of one combine pass.
func (m *PipelineMetrics) ObserveAggregation(duration time.Duration) {
	if m == nil || m.aggregation == nil {
		return
	}
	m.aggregation.Observe(duration.Seconds())
}

// ObserveCombinedSize records the final list length of one combine pass.
func (m *PipelineMetrics) ObserveCombinedSize(n int) {
	if m == nil || m.combinedSize == nil {
		return
	}
	m.combinedSize.Observe(float64(n))
}

// IncMutationSuccess increments the success counter for the named operation.
func (m *PipelineMetrics) IncMutationSuccess(op string) {
	if m == nil || m.mutationOK == nil {
		return
	}
	m.mutationOK.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncMutationFailure increments the failure counter for the named operation.
func (m *PipelineMetrics) IncMutationFailure(op string) {
	if m == nil || m.mutationFail == nil {
		return
	}
	m.mutationFail.WithLabelValues(normalizeLabel(op)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
