package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally with NewMetrics, so
// tests use a fresh registry each.

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetricsWithRegistry("test_citegraph", prometheus.NewRegistry())
}

func TestNewMetrics(t *testing.T) {
	// Unique namespace to avoid conflicts in the default registry.
	m := NewMetrics("test_citegraph_default")

	assert.NotNil(t, m.ResolutionsTotal)
	assert.NotNil(t, m.ResolutionDuration)
	assert.NotNil(t, m.SourceRequestsTotal)
	assert.NotNil(t, m.SourceRequestsFailed)
	assert.NotNil(t, m.RetriesTotal)
	assert.NotNil(t, m.CacheHits)
	assert.NotNil(t, m.CacheWrites)
	assert.NotNil(t, m.BatchesTotal)
	assert.NotNil(t, m.PageRankIterations)
	assert.NotNil(t, m.PathQueries)
}

func TestNewMetricsWithRegistry_Independent(t *testing.T) {
	a := newTestMetrics(t)
	b := newTestMetrics(t)

	a.RecordCacheHit()
	assert.Equal(t, float64(1), testutil.ToFloat64(a.CacheHits))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.CacheHits))
}

func TestRecordResolution(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordResolution("primary", 0.4)
	m.RecordResolution("primary", 0.2)
	m.RecordResolution("unavailable", 12)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues("primary")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues("unavailable")))
}

func TestRecordSourceRequest(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSourceRequest("semantic_scholar", 1, "timeout", 8)
	m.RecordSourceRequest("semantic_scholar", 2, "timeout", 8)
	m.RecordSourceRequest("semantic_scholar", 3, "", 0.3)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.SourceRequestsTotal.WithLabelValues("semantic_scholar")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.RetriesTotal.WithLabelValues("semantic_scholar")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SourceRequestsFailed.WithLabelValues("semantic_scholar", "timeout")))
}

func TestRecordSourceRateLimited(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSourceRateLimited("google_scholar")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRateLimited.WithLabelValues("google_scholar")))
}

func TestRecordCache(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheMiss()
	m.RecordCacheWrite(true)
	m.RecordCacheWrite(false)
	m.RecordCacheError("get")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheMisses))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheWrites.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheWrites.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheErrors.WithLabelValues("get")))
}

func TestRecordBatch(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordBatch(10, 0.9, 3.2, false)
	m.RecordBatch(4, 0.25, 1.0, true)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.BatchesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BatchesLowSuccess))

	count, err := getHistogramSampleCount(m.BatchSize)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestRecordGraph(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordPageRank(17, 0.002)
	m.RecordPathQuery(true)
	m.RecordPathQuery(false)
	m.RecordPathQuery(false)

	count, err := getHistogramSampleCount(m.PageRankIterations)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PathQueries.WithLabelValues("found")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.PathQueries.WithLabelValues("not_found")))
}

// getHistogramSampleCount extracts the sample count from a histogram.
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var metric = &dto.Metric{}
	if err := m.Write(metric); err != nil {
		return 0, err
	}

	return metric.Histogram.GetSampleCount(), nil
}
