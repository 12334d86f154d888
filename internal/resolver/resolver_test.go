package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/citation-graph-service/internal/cache"
	"github.com/helixir/citation-graph-service/internal/domain"
	"github.com/helixir/citation-graph-service/internal/observability"
	"github.com/helixir/citation-graph-service/internal/papersources"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeCache is an in-memory MetricCache with injectable failures.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*domain.Metrics
	getErr  error
	putErr  error
	gets    atomic.Int32
	puts    atomic.Int32
}

var _ cache.MetricCache = (*fakeCache)(nil)

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*domain.Metrics)}
}

func (c *fakeCache) Get(_ context.Context, key string) (*domain.Metrics, error) {
	c.gets.Add(1)
	if c.getErr != nil {
		return nil, c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return m.Clone(), nil
}

func (c *fakeCache) Put(_ context.Context, key string, m *domain.Metrics) error {
	c.puts.Add(1)
	if c.putErr != nil {
		return c.putErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = m.Clone()
	return nil
}

func (c *fakeCache) Purge(context.Context) (int, error)         { return 0, nil }
func (c *fakeCache) Stats(context.Context) (cache.Stats, error) { return cache.Stats{}, nil }
func (c *fakeCache) Ping(context.Context) error                 { return nil }
func (c *fakeCache) Close() error                               { return nil }

func (c *fakeCache) stored(key string) (*domain.Metrics, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[key]
	return m, ok
}

// stubSource is a CitationSource driven by a func field.
type stubSource struct {
	name        string
	enabled     bool
	resolveFunc func(ctx context.Context, paper domain.PaperRef, call int) (*domain.Metrics, error)
	calls       atomic.Int32
}

func (s *stubSource) Resolve(ctx context.Context, paper domain.PaperRef) (*domain.Metrics, error) {
	n := int(s.calls.Add(1))
	return s.resolveFunc(ctx, paper, n)
}

func (s *stubSource) Name() string    { return s.name }
func (s *stubSource) IsEnabled() bool { return s.enabled }
func (s *stubSource) CallCount() int  { return int(s.calls.Load()) }

func returning(count, influential int) func(context.Context, domain.PaperRef, int) (*domain.Metrics, error) {
	return func(_ context.Context, paper domain.PaperRef, _ int) (*domain.Metrics, error) {
		return &domain.Metrics{
			PaperID:                  paper.ID,
			CitationCount:            count,
			InfluentialCitationCount: influential,
			ReferenceIDs:             []string{"doi:10.1/ref"},
			Year:                     2017,
		}, nil
	}
}

func failing(err error) func(context.Context, domain.PaperRef, int) (*domain.Metrics, error) {
	return func(context.Context, domain.PaperRef, int) (*domain.Metrics, error) {
		return nil, err
	}
}

func noSleep(context.Context, time.Duration) error { return nil }

func retrying(s papersources.CitationSource, maxAttempts int) *papersources.RetryingSource {
	return papersources.NewRetryingSource(s, papersources.RetryPolicy{
		MaxAttempts:       maxAttempts,
		PerAttemptTimeout: time.Second,
		InitialBackoff:    time.Second,
		BackoffMultiplier: 2,
		MaxBackoff:        4 * time.Second,
	}, papersources.WithSleep(noSleep))
}

func testPaper() domain.PaperRef {
	return domain.PaperRef{ID: "doi:10.1/attention", Title: "Attention Is All You Need"}
}

type fixture struct {
	cache    *fakeCache
	primary  *stubSource
	fallback *stubSource
	resolver *Resolver
}

func newFixture(t *testing.T, fallbackEnabled bool) *fixture {
	t.Helper()
	f := &fixture{
		cache:    newFakeCache(),
		primary:  &stubSource{name: "semantic_scholar", enabled: true, resolveFunc: returning(10, 2)},
		fallback: &stubSource{name: "openalex", enabled: true, resolveFunc: returning(7, 0)},
	}
	f.resolver = New(f.cache, retrying(f.primary, 3), papersources.NewChain(0, f.fallback), Options{
		FallbackEnabled: fallbackEnabled,
		Now:             func() time.Time { return fixedNow },
	}, zerolog.Nop())
	return f
}

func TestResolver_CacheHit(t *testing.T) {
	f := newFixture(t, true)
	paper := testPaper()
	f.cache.entries[paper.ID] = &domain.Metrics{
		PaperID:       paper.ID,
		CitationCount: 42,
		Source:        domain.MetricSourcePrimary,
		Provider:      "semantic_scholar",
	}

	out := f.resolver.Resolve(context.Background(), paper)

	assert.Equal(t, StateCacheHit, out.State)
	assert.Equal(t, []State{StateInit, StateCacheHit}, out.Path)
	assert.Equal(t, domain.MetricSourceCache, out.Metrics.Source)
	assert.Equal(t, 42, out.Metrics.CitationCount)
	assert.Zero(t, f.primary.CallCount())
	assert.Zero(t, f.fallback.CallCount())
	assert.Zero(t, f.cache.puts.Load())
	assert.Equal(t, int64(1), f.resolver.Stats().Snapshot().CacheHits)
}

func TestResolver_PrimarySuccess(t *testing.T) {
	f := newFixture(t, true)
	paper := testPaper()

	out := f.resolver.Resolve(context.Background(), paper)

	require.NoError(t, out.Err)
	assert.Equal(t, StateResolved, out.State)
	assert.Equal(t, []State{StateInit, StateCacheMiss, StatePrimaryAttempt, StateResolved}, out.Path)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, domain.MetricSourcePrimary, out.Metrics.Source)
	assert.Equal(t, "semantic_scholar", out.Metrics.Provider)
	assert.Equal(t, 10, out.Metrics.CitationCount)
	assert.Equal(t, 2, out.Metrics.InfluentialCitationCount)

	stored, ok := f.cache.stored(paper.ID)
	require.True(t, ok)
	assert.Equal(t, domain.MetricSourcePrimary, stored.Source)
	assert.Zero(t, f.fallback.CallCount())

	t.Run("second call is served from cache", func(t *testing.T) {
		out := f.resolver.Resolve(context.Background(), paper)
		assert.Equal(t, StateCacheHit, out.State)
		assert.Equal(t, domain.MetricSourceCache, out.Metrics.Source)
		assert.Equal(t, 1, f.primary.CallCount())
	})
}

func TestResolver_TimeoutsThenSuccess(t *testing.T) {
	f := newFixture(t, true)
	f.primary.resolveFunc = func(ctx context.Context, paper domain.PaperRef, call int) (*domain.Metrics, error) {
		if call < 3 {
			return nil, domain.NewTimeoutError("semantic_scholar", 8*time.Second)
		}
		return returning(5, 1)(ctx, paper, call)
	}

	out := f.resolver.Resolve(context.Background(), testPaper())

	require.NoError(t, out.Err)
	assert.Equal(t, StateResolved, out.State)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, f.primary.CallCount())
	assert.Equal(t, domain.MetricSourcePrimary, out.Metrics.Source)
	assert.Equal(t, 5, out.Metrics.CitationCount)
	assert.Zero(t, f.fallback.CallCount())
}

func TestResolver_NotFoundFallsBackOnce(t *testing.T) {
	f := newFixture(t, true)
	paper := testPaper()
	f.primary.resolveFunc = failing(domain.NewNotFoundError("paper", paper.ID))
	f.fallback.resolveFunc = failing(domain.NewNotFoundError("work", paper.ID))

	out := f.resolver.Resolve(context.Background(), paper)

	assert.Equal(t, StateUnavailable, out.State)
	assert.Equal(t, []State{
		StateInit, StateCacheMiss, StatePrimaryAttempt, StatePrimaryExhausted, StateFallbackAttempt, StateUnavailable,
	}, out.Path)
	assert.Equal(t, 1, f.primary.CallCount(), "not found is not retried")
	assert.Equal(t, 1, f.fallback.CallCount())
	assert.True(t, errors.Is(out.Err, domain.ErrNotFound))

	assert.Equal(t, domain.MetricSourceUnavailable, out.Metrics.Source)
	assert.Equal(t, paper.ID, out.Metrics.PaperID)
	assert.Zero(t, out.Metrics.CitationCount)
	assert.Equal(t, fixedNow, out.Metrics.ResolvedAt)

	_, cached := f.cache.stored(paper.ID)
	assert.False(t, cached, "unavailable results are not cached")
	assert.Zero(t, f.cache.puts.Load())
}

func TestResolver_UnavailableIsRetriedOnNextCall(t *testing.T) {
	f := newFixture(t, true)
	paper := testPaper()
	f.primary.resolveFunc = failing(domain.NewNotFoundError("paper", paper.ID))
	f.fallback.resolveFunc = failing(domain.NewNotFoundError("work", paper.ID))

	first := f.resolver.Resolve(context.Background(), paper)
	require.Equal(t, StateUnavailable, first.State)
	require.Equal(t, 1, f.primary.CallCount())

	second := f.resolver.Resolve(context.Background(), paper)
	assert.Equal(t, StateUnavailable, second.State)
	assert.Equal(t, []State{
		StateInit, StateCacheMiss, StatePrimaryAttempt, StatePrimaryExhausted, StateFallbackAttempt, StateUnavailable,
	}, second.Path, "a past unavailable result is not served from the cache")
	assert.Equal(t, 2, f.primary.CallCount())
	assert.Equal(t, 2, f.fallback.CallCount())

	f.primary.resolveFunc = returning(9, 2)
	third := f.resolver.Resolve(context.Background(), paper)
	assert.Equal(t, StateResolved, third.State)
	assert.Equal(t, 3, f.primary.CallCount())
	assert.Equal(t, 9, third.Metrics.CitationCount)

	stored, ok := f.cache.stored(paper.ID)
	require.True(t, ok)
	assert.Equal(t, 9, stored.CitationCount)
	assert.Equal(t, int32(1), f.cache.puts.Load())
}

func TestResolver_FallbackSuccess(t *testing.T) {
	f := newFixture(t, true)
	paper := testPaper()
	f.primary.resolveFunc = failing(domain.NewNetworkError("semantic_scholar", errors.New("connection reset")))

	out := f.resolver.Resolve(context.Background(), paper)

	require.NoError(t, out.Err)
	assert.Equal(t, StateResolved, out.State)
	assert.Equal(t, 3, f.primary.CallCount())
	assert.Equal(t, 1, f.fallback.CallCount())
	assert.Equal(t, 4, out.Attempts)
	assert.Equal(t, domain.MetricSourceFallback, out.Metrics.Source)
	assert.Equal(t, "openalex", out.Metrics.Provider)

	stored, ok := f.cache.stored(paper.ID)
	require.True(t, ok)
	assert.Equal(t, domain.MetricSourceFallback, stored.Source)
	assert.Equal(t, int64(1), f.resolver.Stats().Snapshot().FallbackUsed)
}

func TestResolver_FallbackDisabled(t *testing.T) {
	f := newFixture(t, false)
	f.primary.resolveFunc = failing(domain.NewRateLimitError("semantic_scholar", 0))

	out := f.resolver.Resolve(context.Background(), testPaper())

	assert.Equal(t, StateUnavailable, out.State)
	assert.Equal(t, 3, f.primary.CallCount())
	assert.Zero(t, f.fallback.CallCount())
	assert.True(t, errors.Is(out.Err, domain.ErrRateLimited))
}

func TestResolver_CacheErrorsAbsorbed(t *testing.T) {
	t.Run("read error reads as miss", func(t *testing.T) {
		f := newFixture(t, true)
		f.cache.getErr = errors.New("disk on fire")

		out := f.resolver.Resolve(context.Background(), testPaper())

		require.NoError(t, out.Err)
		assert.Equal(t, StateResolved, out.State)
		assert.Equal(t, 1, f.primary.CallCount())
	})

	t.Run("write error is ignored", func(t *testing.T) {
		f := newFixture(t, true)
		f.cache.putErr = errors.New("read-only file system")

		out := f.resolver.Resolve(context.Background(), testPaper())

		require.NoError(t, out.Err)
		assert.Equal(t, StateResolved, out.State)
		assert.Equal(t, domain.MetricSourcePrimary, out.Metrics.Source)
		assert.Equal(t, int32(1), f.cache.puts.Load())
	})
}

func TestResolver_CancelledContext(t *testing.T) {
	f := newFixture(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := f.resolver.Resolve(ctx, testPaper())

	assert.Equal(t, StateUnavailable, out.State)
	assert.True(t, errors.Is(out.Err, context.Canceled))
	assert.Zero(t, f.primary.CallCount())
	assert.Zero(t, f.fallback.CallCount())
}

func TestResolver_InvalidProviderResult(t *testing.T) {
	f := newFixture(t, false)
	f.primary.resolveFunc = returning(1, 5)

	out := f.resolver.Resolve(context.Background(), testPaper())

	assert.Equal(t, StateUnavailable, out.State)
	assert.True(t, errors.Is(out.Err, domain.ErrParse))
	assert.Zero(t, f.cache.puts.Load())
}

func TestResolver_InvalidPaper(t *testing.T) {
	f := newFixture(t, true)

	out := f.resolver.Resolve(context.Background(), domain.PaperRef{ID: "  "})

	assert.Equal(t, StateUnavailable, out.State)
	assert.True(t, errors.Is(out.Err, domain.ErrInvalidInput))
	assert.Zero(t, f.cache.gets.Load())
	assert.Zero(t, f.primary.CallCount())
}

func TestResolver_WithoutCache(t *testing.T) {
	primary := &stubSource{name: "semantic_scholar", enabled: true, resolveFunc: returning(3, 0)}
	r := New(nil, retrying(primary, 1), nil, Options{FallbackEnabled: true}, zerolog.Nop())

	out := r.Resolve(context.Background(), testPaper())

	assert.Equal(t, StateResolved, out.State)
	assert.Equal(t, 3, out.Metrics.CitationCount)
}

func TestResolver_RecordsMetrics(t *testing.T) {
	metrics := observability.NewMetricsWithRegistry("test", prometheus.NewRegistry())
	f := newFixture(t, true)
	f.resolver.opts.Metrics = metrics
	paper := testPaper()

	f.resolver.Resolve(context.Background(), paper)
	f.resolver.Resolve(context.Background(), paper)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ResolutionsTotal.WithLabelValues("primary")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ResolutionsTotal.WithLabelValues("cache")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheMisses))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheWrites.WithLabelValues("ok")))
}

func TestResolver_ConcurrentStats(t *testing.T) {
	f := newFixture(t, true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.resolver.Resolve(context.Background(), testPaper())
		}()
	}
	wg.Wait()

	snap := f.resolver.Stats().Snapshot()
	assert.Equal(t, int64(20), snap.Total())
	assert.Equal(t, 1.0, snap.SuccessRate())
}
