package papersources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/citation-graph-service/internal/domain"
)

// maxErrorBody bounds how much of an error response is kept for messages.
const maxErrorBody = 512

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Source names the provider in returned errors.
	Source string

	// Timeout bounds a single request when the context has no earlier deadline.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API key for authentication.
	APIKey string

	// APIKeyHeader is the header name for the API key (e.g., "x-api-key", "X-ELS-APIKey").
	APIKeyHeader string
}

// HTTPClient wraps http.Client with rate limiting and maps every failure
// onto the domain error taxonomy. It makes exactly one attempt per call;
// retries belong to RetryingSource.
// It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP client with rate limiting.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Source == "" {
		cfg.Source = "http"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Helixir-CitationGraph/1.0"
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
	}
}

// Do executes one HTTP request after waiting for the rate limiter.
// A nil error means the response status is 2xx or 3xx and the caller owns
// the body. Otherwise the body has been drained and closed and the error is
// one of:
//   - *domain.TimeoutError on a deadline or transport timeout
//   - the context error when the caller cancelled
//   - *domain.RateLimitError on 429, carrying Retry-After
//   - *domain.NotFoundError on 404
//   - *domain.NetworkError on transport failures and 5xx
//   - *domain.ExternalAPIError on any other 4xx
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, c.contextError(ctx, fmt.Errorf("rate limiter wait: %w", err))
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err, time.Since(started))
	}

	if resp.StatusCode < 400 {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil, c.statusError(req, resp, strings.TrimSpace(string(body)))
}

// Get issues a GET for url with the given headers.
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.Do(req)
}

// GetJSON issues a GET for url and decodes the JSON body into out.
// Decoding failures are reported as *domain.ParseError.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, out any) error {
	resp, err := c.Get(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return DecodeJSON(c.config.Source, resp.Body, out)
}

// DecodeJSON decodes r into out, reporting failures as *domain.ParseError.
func DecodeJSON(source string, r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return domain.NewParseError(source, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *HTTPClient) contextError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewTimeoutError(c.config.Source, 0)
	}
	return domain.NewNetworkError(c.config.Source, err)
}

func (c *HTTPClient) transportError(ctx context.Context, err error, elapsed time.Duration) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewTimeoutError(c.config.Source, elapsed)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewTimeoutError(c.config.Source, elapsed)
	}
	return domain.NewNetworkError(c.config.Source, err)
}

func (c *HTTPClient) statusError(req *http.Request, resp *http.Response, body string) error {
	source := c.config.Source
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		c.rateLimiter.Pause(retryAfter)
		return domain.NewRateLimitError(source, retryAfter)
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewNotFoundError("paper", req.URL.Path)
	case resp.StatusCode >= 500:
		return domain.NewNetworkError(source,
			domain.NewExternalAPIError(source, resp.StatusCode, body, nil))
	default:
		return domain.NewExternalAPIError(source, resp.StatusCode, body, nil)
	}
}

// parseRetryAfter reads a Retry-After header given either as seconds or as
// an HTTP date. It returns zero when the header is absent or unusable.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return 0
	}
	if t, err := http.ParseTime(value); err == nil {
		if delay := t.Sub(now); delay > 0 {
			return delay
		}
	}
	return 0
}
