package scopus

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/citation-graph-service/internal/domain"
	"github.com/helixir/citation-graph-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default Scopus API base URL.
	DefaultBaseURL = "https://api.elsevier.com/content"

	// DefaultRateLimit is the default rate limit (5 requests per second).
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// apiKeyHeader is the HTTP header name for the Scopus API key.
	apiKeyHeader = "X-ELS-APIKey"

	sourceName = string(domain.SourceTypeScopus)
)

// Config holds configuration for the Scopus client.
type Config struct {
	// BaseURL is the Scopus API base URL.
	BaseURL string

	// APIKey is the Elsevier API key for authentication.
	// Required for all Scopus API requests.
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// Enabled indicates whether this source is enabled.
	Enabled bool

	// Now stamps ResolvedAt. Defaults to time.Now.
	Now func() time.Time
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Client implements papersources.CitationSource for Scopus.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Compile-time check that Client implements papersources.CitationSource.
var _ papersources.CitationSource = (*Client)(nil)

// New creates a new Scopus client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:       sourceName,
		Timeout:      cfg.Timeout,
		RateLimit:    cfg.RateLimit,
		BurstSize:    cfg.BurstSize,
		APIKey:       cfg.APIKey,
		APIKeyHeader: apiKeyHeader,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new Scopus client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Resolve searches Scopus by DOI, or by exact title when the paper has no DOI.
func (c *Client) Resolve(ctx context.Context, paper domain.PaperRef) (*domain.Metrics, error) {
	query, ok := searchQuery(paper)
	if !ok {
		return nil, domain.NewNotFoundError("paper", paper.ID)
	}

	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, c.searchURL(query), &resp); err != nil {
		return nil, err
	}

	entries := resp.SearchResults.Entries
	if len(entries) == 0 || entries[0].Error != "" {
		return nil, domain.NewNotFoundError("paper", paper.ID)
	}
	entry := entries[0]

	citations := 0
	if entry.CitedByCount != "" {
		n, err := strconv.Atoi(entry.CitedByCount)
		if err != nil {
			return nil, domain.NewParseError(sourceName, fmt.Errorf("citedby-count %q: %w", entry.CitedByCount, err))
		}
		citations = max(n, 0)
	}

	ids := domain.PaperIdentifiers{
		DOI:      entry.DOI,
		PubMedID: entry.PubMedID,
		ScopusID: strings.TrimPrefix(entry.Identifier, "SCOPUS_ID:"),
	}

	return &domain.Metrics{
		PaperID:       paper.ID,
		CitationCount: citations,
		Aliases:       domain.OtherIDs(ids.Aliases(), paper.ID),
		Source:        domain.MetricSourceFallback,
		Provider:      sourceName,
		Year:          coverYear(entry.CoverDate),
		ResolvedAt:    c.config.Now().UTC(),
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled reports whether the source is enabled and has an API key.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled && c.config.APIKey != ""
}

func (c *Client) searchURL(query string) string {
	q := url.Values{}
	q.Set("query", query)
	q.Set("count", "1")
	q.Set("field", "dc:identifier,prism:doi,dc:title,prism:coverDate,citedby-count")
	return c.config.BaseURL + "/search/scopus?" + q.Encode()
}

// searchQuery builds the Scopus query for paper.
func searchQuery(paper domain.PaperRef) (string, bool) {
	switch paper.Scheme() {
	case "doi":
		return fmt.Sprintf("DOI(%s)", paper.Value()), true
	case "pubmed":
		return fmt.Sprintf("PMID(%s)", paper.Value()), true
	case "scopus":
		return fmt.Sprintf("SCOPUS-ID(%s)", paper.Value()), true
	}
	if paper.Title != "" {
		return fmt.Sprintf("TITLE(%q)", paper.Title), true
	}
	return "", false
}

// coverYear extracts the year from a "YYYY-MM-DD" cover date.
func coverYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
