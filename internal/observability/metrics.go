package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the citation graph service.
// Metrics are organized by subsystem: resolutions, sources, cache, batches
// and graph analysis.
type Metrics struct {
	// ResolutionsTotal counts finished resolutions, labeled by metric source
	// (primary, fallback, cache, unavailable).
	ResolutionsTotal *prometheus.CounterVec

	// ResolutionDuration observes end-to-end resolution duration in seconds.
	ResolutionDuration *prometheus.HistogramVec

	// SourceRequestsTotal counts provider attempts, labeled by provider.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed provider attempts, labeled by provider and failure kind.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes provider attempt duration in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses, labeled by provider.
	SourceRateLimited *prometheus.CounterVec

	// RetriesTotal counts attempts beyond the first, labeled by provider.
	RetriesTotal *prometheus.CounterVec

	// CacheHits counts cache reads that returned a valid entry.
	CacheHits prometheus.Counter

	// CacheMisses counts cache reads that found nothing usable.
	CacheMisses prometheus.Counter

	// CacheWrites counts write-through results, labeled by outcome (ok, error).
	CacheWrites *prometheus.CounterVec

	// CacheErrors counts absorbed cache failures, labeled by operation.
	CacheErrors *prometheus.CounterVec

	// BatchesTotal counts finished batches.
	BatchesTotal prometheus.Counter

	// BatchesLowSuccess counts batches that produced a low-success advisory.
	BatchesLowSuccess prometheus.Counter

	// BatchSize observes papers per batch.
	BatchSize prometheus.Histogram

	// BatchSuccessRate observes the success rate of each batch.
	BatchSuccessRate prometheus.Histogram

	// BatchDuration observes batch duration in seconds.
	BatchDuration prometheus.Histogram

	// PageRankIterations observes iterations until convergence.
	PageRankIterations prometheus.Histogram

	// PageRankDuration observes ranking duration in seconds.
	PageRankDuration prometheus.Histogram

	// PathQueries counts path searches, labeled by result (found, not_found).
	PathQueries *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with the default
// Prometheus registry. The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a Metrics instance registered with reg.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		// Resolutions
		ResolutionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Total number of paper resolutions by metric source",
		}, []string{"source"}),
		ResolutionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Duration of paper resolutions in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"source"}),

		// Sources
		SourceRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of citation provider attempts",
		}, []string{"provider"}),
		SourceRequestsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed citation provider attempts by failure kind",
		}, []string{"provider", "kind"}),
		SourceRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of citation provider attempts in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"provider"}),
		SourceRateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate-limited responses from citation providers",
		}, []string{"provider"}),
		RetriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_retries_total",
			Help:      "Total number of retried provider attempts",
		}, []string{"provider"}),

		// Cache
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of metric cache hits",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of metric cache misses",
		}),
		CacheWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Total number of metric cache writes by outcome",
		}, []string{"outcome"}),
		CacheErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Total number of absorbed metric cache errors by operation",
		}, []string{"operation"}),

		// Batches
		BatchesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of resolution batches",
		}),
		BatchesLowSuccess: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_low_success_total",
			Help:      "Total number of batches below the success threshold",
		}),
		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of papers per resolution batch",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		BatchSuccessRate: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_success_rate",
			Help:      "Fraction of papers resolved per batch",
			Buckets:   []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1},
		}),
		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of resolution batches in seconds",
			Buckets:   []float64{0.1, 1, 5, 10, 30, 60, 120, 300},
		}),

		// Graph
		PageRankIterations: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pagerank_iterations",
			Help:      "PageRank iterations until convergence",
			Buckets:   []float64{1, 5, 10, 20, 50, 100},
		}),
		PageRankDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pagerank_duration_seconds",
			Help:      "Duration of PageRank computations in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1},
		}),
		PathQueries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_queries_total",
			Help:      "Total number of citation path queries by result",
		}, []string{"result"}),
	}
}

// RecordResolution records a finished resolution.
func (m *Metrics) RecordResolution(source string, durationSeconds float64) {
	m.ResolutionsTotal.WithLabelValues(source).Inc()
	m.ResolutionDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordSourceRequest records a provider attempt. kind is empty on success.
func (m *Metrics) RecordSourceRequest(provider string, attempt int, kind string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(provider).Inc()
	m.SourceRequestDuration.WithLabelValues(provider).Observe(durationSeconds)
	if attempt > 1 {
		m.RetriesTotal.WithLabelValues(provider).Inc()
	}
	if kind != "" {
		m.SourceRequestsFailed.WithLabelValues(provider, kind).Inc()
	}
}

// RecordSourceRateLimited records a rate limit response from a provider.
func (m *Metrics) RecordSourceRateLimited(provider string) {
	m.SourceRateLimited.WithLabelValues(provider).Inc()
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}

// RecordCacheWrite records a write-through.
func (m *Metrics) RecordCacheWrite(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.CacheWrites.WithLabelValues(outcome).Inc()
}

// RecordCacheError records an absorbed cache failure.
func (m *Metrics) RecordCacheError(operation string) {
	m.CacheErrors.WithLabelValues(operation).Inc()
}

// RecordBatch records a finished batch.
func (m *Metrics) RecordBatch(size int, successRate float64, durationSeconds float64, lowSuccess bool) {
	m.BatchesTotal.Inc()
	m.BatchSize.Observe(float64(size))
	m.BatchSuccessRate.Observe(successRate)
	m.BatchDuration.Observe(durationSeconds)
	if lowSuccess {
		m.BatchesLowSuccess.Inc()
	}
}

// RecordPageRank records a PageRank computation.
func (m *Metrics) RecordPageRank(iterations int, durationSeconds float64) {
	m.PageRankIterations.Observe(float64(iterations))
	m.PageRankDuration.Observe(durationSeconds)
}

// RecordPathQuery records a citation path search.
func (m *Metrics) RecordPathQuery(found bool) {
	result := "found"
	if !found {
		result = "not_found"
	}
	m.PathQueries.WithLabelValues(result).Inc()
}
