package papersources

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/citation-graph-service/internal/domain"
)

func newFastClient(source string) *HTTPClient {
	return NewHTTPClient(HTTPClientConfig{
		Source:    source,
		RateLimit: 1000,
		BurstSize: 10,
	})
}

func TestNewHTTPClient(t *testing.T) {
	t.Run("creates client with custom config", func(t *testing.T) {
		cfg := HTTPClientConfig{
			Source:       "openalex",
			Timeout:      15 * time.Second,
			RateLimit:    5,
			BurstSize:    3,
			UserAgent:    "TestAgent/1.0",
			APIKey:       "test-key",
			APIKeyHeader: "X-API-Key",
		}

		client := NewHTTPClient(cfg)

		require.NotNil(t, client)
		assert.Equal(t, 15*time.Second, client.client.Timeout)
		assert.Equal(t, cfg, client.config)
	})

	t.Run("applies default values", func(t *testing.T) {
		client := NewHTTPClient(HTTPClientConfig{})

		assert.Equal(t, 30*time.Second, client.client.Timeout)
		assert.Equal(t, "Helixir-CitationGraph/1.0", client.config.UserAgent)
		assert.Equal(t, float64(10), client.config.RateLimit)
		assert.Equal(t, 1, client.config.BurstSize)
		assert.Equal(t, "http", client.config.Source)
	})
}

func TestHTTPClient_Do(t *testing.T) {
	t.Run("sets User-Agent and API key", func(t *testing.T) {
		var gotUA, gotKey string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotKey = r.Header.Get("X-API-Key")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}))
		defer server.Close()

		client := NewHTTPClient(HTTPClientConfig{
			UserAgent:    "TestAgent/2.0",
			RateLimit:    100,
			APIKey:       "secret-key-123",
			APIKeyHeader: "X-API-Key",
		})

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, `{"status":"ok"}`, string(body))
		assert.Equal(t, "TestAgent/2.0", gotUA)
		assert.Equal(t, "secret-key-123", gotKey)
	})

	t.Run("preserves existing User-Agent header", func(t *testing.T) {
		var gotUA string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
		}))
		defer server.Close()

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "CustomAgent/3.0")

		resp, err := newFastClient("s").Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "CustomAgent/3.0", gotUA)
	})
}

func TestHTTPClient_SingleAttempt(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		header  map[string]string
		wantIs  error
		want    FailureKind
		checkFn func(t *testing.T, err error)
	}{
		{
			name:   "429 is rate limited with Retry-After seconds",
			status: http.StatusTooManyRequests,
			header: map[string]string{"Retry-After": "3"},
			wantIs: domain.ErrRateLimited,
			want:   FailureRateLimited,
			checkFn: func(t *testing.T, err error) {
				var rlErr *domain.RateLimitError
				require.ErrorAs(t, err, &rlErr)
				assert.Equal(t, 3*time.Second, rlErr.RetryAfter)
				assert.Equal(t, "s2", rlErr.Source)
			},
		},
		{
			name:   "404 is not found",
			status: http.StatusNotFound,
			wantIs: domain.ErrNotFound,
			want:   FailureNotFound,
		},
		{
			name:   "503 is a network error wrapping the API error",
			status: http.StatusServiceUnavailable,
			wantIs: domain.ErrNetwork,
			want:   FailureNetwork,
			checkFn: func(t *testing.T, err error) {
				var apiErr *domain.ExternalAPIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
				assert.Equal(t, "upstream said no", apiErr.Message)
			},
		},
		{
			name:   "403 is a non-retryable API error",
			status: http.StatusForbidden,
			want:   FailureNotFound,
			checkFn: func(t *testing.T, err error) {
				var apiErr *domain.ExternalAPIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("upstream said no"))
			}))
			defer server.Close()

			resp, err := newFastClient("s2").Get(context.Background(), server.URL, nil)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, int32(1), calls.Load(), "exactly one request")
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			assert.Equal(t, tt.want, Classify(err))
			if tt.checkFn != nil {
				tt.checkFn(t, err)
			}
		})
	}
}

func TestHTTPClient_TransportErrors(t *testing.T) {
	t.Run("context deadline is a timeout", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		_, err := newFastClient("openalex").Get(ctx, server.URL, nil)
		require.Error(t, err)
		var toErr *domain.TimeoutError
		require.ErrorAs(t, err, &toErr)
		assert.Equal(t, "openalex", toErr.Source)
	})

	t.Run("caller cancellation is returned as is", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newFastClient("s2").Get(ctx, server.URL, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	})

	t.Run("connection refused is a network error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := newFastClient("scopus").Get(context.Background(), url, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNetwork)
		assert.Equal(t, FailureNetwork, Classify(err))
	})
}

func TestHTTPClient_GetJSON(t *testing.T) {
	t.Run("decodes body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			_, _ = w.Write([]byte(`{"count":7}`))
		}))
		defer server.Close()

		var out struct {
			Count int `json:"count"`
		}
		require.NoError(t, newFastClient("s2").GetJSON(context.Background(), server.URL, &out))
		assert.Equal(t, 7, out.Count)
	})

	t.Run("malformed body is a parse error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"count":`))
		}))
		defer server.Close()

		var out map[string]any
		err := newFastClient("s2").GetJSON(context.Background(), server.URL, &out)
		assert.ErrorIs(t, err, domain.ErrParse)
		assert.Equal(t, FailureParse, Classify(err))
	})
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "5", 5 * time.Second},
		{"zero seconds", "0", 0},
		{"negative seconds", "-3", 0},
		{"http date", now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{"past http date", now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"garbage", "soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRetryAfter(tt.value, now))
		})
	}
}

func TestHTTPClient_RateLimitPausesProvider(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newFastClient("s2")
	_, err := client.Get(context.Background(), server.URL, nil)
	require.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Greater(t, client.rateLimiter.pauseRemaining(), 25*time.Second)

	// The next request waits for the pause instead of reaching the provider.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Get(ctx, server.URL, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
