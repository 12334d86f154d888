package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/citation-graph-service/internal/domain"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	now atomic.Int64
}

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.now.Store(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time {
	return time.Unix(0, c.now.Load()).UTC()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now.Add(int64(d))
}

func testMetrics(id string, citations int) *domain.Metrics {
	return &domain.Metrics{
		PaperID:                  id,
		CitationCount:            citations,
		InfluentialCitationCount: citations / 10,
		ReferenceIDs:             []string{"doi:10.1/ref"},
		Source:                   domain.MetricSourcePrimary,
		Provider:                 "semantic_scholar",
		Year:                     2019,
	}
}

type backendFactory func(t *testing.T, opts Options) MetricCache

func backends() map[string]backendFactory {
	return map[string]backendFactory{
		"badger": func(t *testing.T, opts Options) MetricCache {
			c, err := OpenBadger(BadgerConfig{InMemory: true}, opts, zerolog.Nop())
			require.NoError(t, err)
			return c
		},
		"sqlite": func(t *testing.T, opts Options) MetricCache {
			c, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"), opts)
			require.NoError(t, err)
			return c
		},
	}
}

func TestMetricCache_Contract(t *testing.T) {
	ctx := context.Background()

	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Run("miss on empty cache", func(t *testing.T) {
				c := open(t, Options{})
				defer c.Close()

				_, err := c.Get(ctx, "doi:10.1/absent")
				assert.ErrorIs(t, err, domain.ErrCacheMiss)
			})

			t.Run("put then get", func(t *testing.T) {
				clock := newFakeClock()
				c := open(t, Options{Now: clock.Now})
				defer c.Close()

				require.NoError(t, c.Put(ctx, "arxiv:1706.03762", testMetrics("arxiv:1706.03762", 90)))

				got, err := c.Get(ctx, "arxiv:1706.03762")
				require.NoError(t, err)
				assert.Equal(t, 90, got.CitationCount)
				assert.Equal(t, 9, got.InfluentialCitationCount)
				assert.Equal(t, []string{"doi:10.1/ref"}, got.ReferenceIDs)
				assert.Equal(t, "semantic_scholar", got.Provider)
				assert.Equal(t, clock.Now(), got.ResolvedAt.UTC())
			})

			t.Run("keys are normalized", func(t *testing.T) {
				c := open(t, Options{})
				defer c.Close()

				require.NoError(t, c.Put(ctx, "DOI:10.1038/Nature", testMetrics("doi:10.1038/nature", 5)))

				got, err := c.Get(ctx, "https://doi.org/10.1038/NATURE")
				require.NoError(t, err)
				assert.Equal(t, 5, got.CitationCount)
			})

			t.Run("last write wins", func(t *testing.T) {
				c := open(t, Options{})
				defer c.Close()

				require.NoError(t, c.Put(ctx, "s2:abc", testMetrics("s2:abc", 1)))
				require.NoError(t, c.Put(ctx, "s2:abc", testMetrics("s2:abc", 2)))

				got, err := c.Get(ctx, "s2:abc")
				require.NoError(t, err)
				assert.Equal(t, 2, got.CitationCount)
			})

			t.Run("expired entry reads as miss", func(t *testing.T) {
				clock := newFakeClock()
				c := open(t, Options{Now: clock.Now})
				defer c.Close()

				require.NoError(t, c.Put(ctx, "s2:old", testMetrics("s2:old", 3)))

				clock.Advance(DefaultTTL - time.Second)
				_, err := c.Get(ctx, "s2:old")
				require.NoError(t, err)

				clock.Advance(time.Second)
				_, err = c.Get(ctx, "s2:old")
				assert.ErrorIs(t, err, domain.ErrCacheMiss)

				stats, err := c.Stats(ctx)
				require.NoError(t, err)
				assert.Equal(t, 0, stats.Total, "expired entry is deleted on read")
			})

			t.Run("refuses unavailable metrics", func(t *testing.T) {
				c := open(t, Options{})
				defer c.Close()

				err := c.Put(ctx, "s2:x", domain.UnavailableMetrics("s2:x", time.Now()))
				assert.ErrorIs(t, err, domain.ErrInvalidInput)

				_, err = c.Get(ctx, "s2:x")
				assert.ErrorIs(t, err, domain.ErrCacheMiss)
			})

			t.Run("rejects invalid input", func(t *testing.T) {
				c := open(t, Options{})
				defer c.Close()

				assert.ErrorIs(t, c.Put(ctx, " ", testMetrics("x", 1)), domain.ErrInvalidInput)
				assert.ErrorIs(t, c.Put(ctx, "s2:x", nil), domain.ErrInvalidInput)

				bad := testMetrics("s2:x", 1)
				bad.InfluentialCitationCount = 5
				assert.ErrorIs(t, c.Put(ctx, "s2:x", bad), domain.ErrInvalidInput)

				_, err := c.Get(ctx, "")
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			})

			t.Run("stats and purge", func(t *testing.T) {
				clock := newFakeClock()
				c := open(t, Options{Now: clock.Now, TTL: time.Hour})
				defer c.Close()

				require.NoError(t, c.Put(ctx, "s2:a", testMetrics("s2:a", 1)))
				require.NoError(t, c.Put(ctx, "s2:b", testMetrics("s2:b", 1)))
				clock.Advance(2 * time.Hour)
				require.NoError(t, c.Put(ctx, "s2:c", testMetrics("s2:c", 1)))

				stats, err := c.Stats(ctx)
				require.NoError(t, err)
				assert.Equal(t, name, stats.Backend)
				assert.Equal(t, 3, stats.Total)
				assert.Equal(t, 1, stats.Valid)
				assert.Equal(t, 2, stats.Expired)
				assert.Equal(t, time.Hour, stats.TTL)

				removed, err := c.Purge(ctx)
				require.NoError(t, err)
				assert.Equal(t, 2, removed)

				stats, err = c.Stats(ctx)
				require.NoError(t, err)
				assert.Equal(t, 1, stats.Total)
				assert.Equal(t, 1, stats.Valid)
			})

			t.Run("ping", func(t *testing.T) {
				c := open(t, Options{})
				require.NoError(t, c.Ping(ctx))
				require.NoError(t, c.Close())
				assert.Error(t, c.Ping(ctx), "closed store")
			})

			t.Run("concurrent access", func(t *testing.T) {
				c := open(t, Options{})
				defer c.Close()

				var wg sync.WaitGroup
				for i := 0; i < 20; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						key := fmt.Sprintf("s2:%d", i%5)
						assert.NoError(t, c.Put(ctx, key, testMetrics(key, i)))
						_, err := c.Get(ctx, key)
						assert.NoError(t, err)
					}(i)
				}
				wg.Wait()

				stats, err := c.Stats(ctx)
				require.NoError(t, err)
				assert.Equal(t, 5, stats.Total)
			})
		})
	}
}

func TestBadgerCache_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := OpenBadger(BadgerConfig{Path: dir, SyncWrites: true}, Options{}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "doi:10.1/durable", testMetrics("doi:10.1/durable", 11)))
	require.NoError(t, c.Close())

	reopened, err := OpenBadger(BadgerConfig{Path: dir}, Options{}, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "doi:10.1/durable")
	require.NoError(t, err)
	assert.Equal(t, 11, got.CitationCount)
}

func TestBadgerCache_KeepsEntriesPastLogicalExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := OpenBadger(BadgerConfig{InMemory: true}, Options{TTL: time.Hour}, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Put(ctx, "s2:a", testMetrics("s2:a", 1)))

	var expiresAt uint64
	require.NoError(t, c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey("s2:a"))
		if err != nil {
			return err
		}
		expiresAt = item.ExpiresAt()
		return nil
	}))
	minimum := time.Now().Add(time.Hour + BadgerExpiryGrace - time.Minute).Unix()
	assert.GreaterOrEqual(t, expiresAt, uint64(minimum))
}

func TestBadgerCache_StatsStopsOnCancel(t *testing.T) {
	c, err := OpenBadger(BadgerConfig{InMemory: true}, Options{}, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Put(context.Background(), "s2:a", testMetrics("s2:a", 1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Stats(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBadgerCache_GCRunnerStops(t *testing.T) {
	c, err := OpenBadger(BadgerConfig{
		Path:           t.TempDir(),
		GCInterval:     10 * time.Millisecond,
		GCDiscardRatio: 0.5,
	}, Options{}, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, c.gc)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, c.Close())
}

func TestOpenBadger_RequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{}, Options{}, zerolog.Nop())
	require.Error(t, err)
}

func TestSQLiteCache_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	c, err := OpenSQLite(path, Options{})
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "pubmed:123", testMetrics("pubmed:123", 4)))
	require.NoError(t, c.Close())

	reopened, err := OpenSQLite(path, Options{})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "pmid:123")
	require.NoError(t, err)
	assert.Equal(t, 4, got.CitationCount)
}

func TestEntry_Codec(t *testing.T) {
	t.Run("rejects entry without metrics", func(t *testing.T) {
		_, err := decodeEntry([]byte(`{"expires_at":"2025-01-01T00:00:00Z"}`))
		require.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := decodeEntry([]byte(`not json`))
		require.Error(t, err)
	})

	t.Run("expiry boundary", func(t *testing.T) {
		at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		e := Entry{ExpiresAt: at}
		assert.False(t, e.Expired(at.Add(-time.Nanosecond)))
		assert.True(t, e.Expired(at))
	})
}
