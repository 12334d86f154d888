package scopus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/citation-graph-service/internal/domain"
	"github.com/helixir/citation-graph-service/internal/papersources"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(serverURL string) *Client {
	return New(Config{
		BaseURL:   serverURL,
		APIKey:    "els-key",
		RateLimit: 100,
		BurstSize: 10,
		Enabled:   true,
		Now:       func() time.Time { return fixedNow },
	})
}

func TestClient_IsEnabled(t *testing.T) {
	assert.True(t, New(Config{Enabled: true, APIKey: "k"}).IsEnabled())
	assert.False(t, New(Config{Enabled: true}).IsEnabled())
	assert.False(t, New(Config{APIKey: "k"}).IsEnabled())
	assert.Equal(t, "scopus", New(Config{}).Name())
}

func TestClient_Resolve(t *testing.T) {
	t.Run("resolves DOI", func(t *testing.T) {
		var gotQuery, gotKey string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search/scopus", r.URL.Path)
			gotQuery = r.URL.Query().Get("query")
			gotKey = r.Header.Get("X-ELS-APIKey")
			_, _ = w.Write([]byte(`{"search-results":{"opensearch:totalResults":"1","entry":[
				{"dc:identifier":"SCOPUS_ID:85012345678","prism:doi":"10.1016/j.cell.2014.05.010",
				 "prism:coverDate":"2014-06-05","citedby-count":"4321"}]}}`))
		}))
		defer server.Close()

		ref, err := domain.NewPaperRef("doi:10.1016/j.cell.2014.05.010", "")
		require.NoError(t, err)

		m, err := newTestClient(server.URL).Resolve(context.Background(), ref)
		require.NoError(t, err)

		assert.Equal(t, "DOI(10.1016/j.cell.2014.05.010)", gotQuery)
		assert.Equal(t, "els-key", gotKey)
		assert.Equal(t, 4321, m.CitationCount)
		assert.Equal(t, []string{"scopus:85012345678"}, m.Aliases)
		assert.Equal(t, 2014, m.Year)
		assert.Equal(t, "scopus", m.Provider)
		assert.Equal(t, domain.MetricSourceFallback, m.Source)
		assert.Equal(t, fixedNow, m.ResolvedAt)
	})

	t.Run("searches by title without DOI", func(t *testing.T) {
		var gotQuery string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("query")
			_, _ = w.Write([]byte(`{"search-results":{"entry":[{"dc:identifier":"SCOPUS_ID:1","citedby-count":"7"}]}}`))
		}))
		defer server.Close()

		ref, err := domain.NewPaperRef("arxiv:1706.03762", "Attention Is All You Need")
		require.NoError(t, err)

		m, err := newTestClient(server.URL).Resolve(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, `TITLE("Attention Is All You Need")`, gotQuery)
		assert.Equal(t, 7, m.CitationCount)
	})

	t.Run("empty result set is not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"search-results":{"opensearch:totalResults":"0","entry":[{"error":"Result set was empty"}]}}`))
		}))
		defer server.Close()

		ref, err := domain.NewPaperRef("doi:10.1/missing", "")
		require.NoError(t, err)

		_, err = newTestClient(server.URL).Resolve(context.Background(), ref)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unparseable count is a parse error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"search-results":{"entry":[{"dc:identifier":"SCOPUS_ID:1","citedby-count":"many"}]}}`))
		}))
		defer server.Close()

		ref, err := domain.NewPaperRef("doi:10.1/x", "")
		require.NoError(t, err)

		_, err = newTestClient(server.URL).Resolve(context.Background(), ref)
		assert.Equal(t, papersources.FailureParse, papersources.Classify(err))
	})

	t.Run("no DOI and no title is not found", func(t *testing.T) {
		ref, err := domain.NewPaperRef("arxiv:1706.03762", "")
		require.NoError(t, err)

		_, err = newTestClient("http://127.0.0.1:1").Resolve(context.Background(), ref)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unauthorized is non-retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"service-error":{"status":{"statusCode":"AUTHENTICATION_ERROR"}}}`))
		}))
		defer server.Close()

		ref, err := domain.NewPaperRef("doi:10.1/x", "")
		require.NoError(t, err)

		_, err = newTestClient(server.URL).Resolve(context.Background(), ref)
		require.Error(t, err)
		assert.False(t, papersources.Classify(err).Retryable())
	})
}

func TestCoverYear(t *testing.T) {
	assert.Equal(t, 2024, coverYear("2024-01-15"))
	assert.Equal(t, 0, coverYear(""))
	assert.Equal(t, 0, coverYear("n/a"))
}
