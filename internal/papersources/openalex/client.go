package openalex

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/citation-graph-service/internal/domain"
	"github.com/helixir/citation-graph-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// doiPrefix is the URL prefix that OpenAlex uses for DOIs.
	doiPrefix = "https://doi.org/"

	// openAlexIDPrefix is the URL prefix for OpenAlex IDs.
	openAlexIDPrefix = "https://openalex.org/"

	// arxivDOIPrefix is the DataCite DOI prefix arXiv registers preprints under.
	arxivDOIPrefix = domain.ArXivDOIPrefix

	// pubmedURLPrefix and pmcURLPrefix prefix the ids of Work.IDs.
	pubmedURLPrefix = "https://pubmed.ncbi.nlm.nih.gov/"
	pmcURLPrefix    = "https://www.ncbi.nlm.nih.gov/pmc/articles/"

	sourceName = string(domain.SourceTypeOpenAlex)
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	// Defaults to https://api.openalex.org
	BaseURL string

	// Email is the contact email for the polite pool.
	// See: https://docs.openalex.org/how-to-use-the-api/rate-limits-and-authentication
	Email string

	// APIKey is the optional premium API key.
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

// Client implements papersources.CitationSource for OpenAlex.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Ensure Client implements CitationSource interface.
var _ papersources.CitationSource = (*Client)(nil)

// New creates a new OpenAlex client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	userAgent := "Helixir-CitationGraph/1.0"
	if cfg.Email != "" {
		userAgent += " (mailto:" + cfg.Email + ")"
	}

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:    sourceName,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: userAgent,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Resolve fetches the work by identifier, or searches by title when the id
// cannot be expressed as an OpenAlex work key.
func (c *Client) Resolve(ctx context.Context, paper domain.PaperRef) (*domain.Metrics, error) {
	if workID, ok := workKey(paper); ok {
		var work Work
		if err := c.httpClient.GetJSON(ctx, c.workURL(workID), &work); err != nil {
			return nil, err
		}
		if work.ID == "" {
			return nil, domain.NewParseError(sourceName, fmt.Errorf("work %s: missing id", workID))
		}
		return c.toMetrics(paper, &work), nil
	}

	if paper.Title == "" {
		return nil, domain.NewNotFoundError("paper", paper.ID)
	}

	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, c.searchURL(paper.Title), &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, domain.NewNotFoundError("paper", paper.Title)
	}
	return c.toMetrics(paper, &resp.Results[0]), nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is currently enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) workURL(workID string) string {
	// OpenAlex expects DOIs as-is in the path.
	return c.config.BaseURL + "/works/" + workID + c.politeQuery(nil)
}

func (c *Client) searchURL(title string) string {
	q := url.Values{}
	q.Set("search", title)
	q.Set("per-page", "1")
	return c.config.BaseURL + "/works" + c.politeQuery(q)
}

func (c *Client) politeQuery(q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	if c.config.Email != "" {
		q.Set("mailto", c.config.Email)
	}
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) toMetrics(paper domain.PaperRef, work *Work) *domain.Metrics {
	refs := make([]string, 0, len(work.ReferencedWorks))
	for _, ref := range work.ReferencedWorks {
		if id := normalizeOpenAlexID(ref); id != "" {
			refs = append(refs, "openalex:"+id)
		}
	}

	return &domain.Metrics{
		PaperID:       paper.ID,
		CitationCount: max(work.CitedByCount, 0),
		Aliases:       domain.OtherIDs(work.identifiers().Aliases(), paper.ID),
		ReferenceIDs:  refs,
		Source:        domain.MetricSourceFallback,
		Provider:      sourceName,
		Year:          work.PublicationYear,
		ResolvedAt:    c.config.Now().UTC(),
	}
}

// workKey maps a normalized paper id onto an OpenAlex work key.
// OpenAlex accepts: OpenAlex ID, DOI URL, pmid:, pmcid:.
func workKey(paper domain.PaperRef) (string, bool) {
	value := paper.Value()
	if value == "" {
		return "", false
	}
	switch paper.Scheme() {
	case "doi":
		return doiPrefix + value, true
	case "arxiv":
		return doiPrefix + arxivDOIPrefix + value, true
	case "pubmed":
		return "pmid:" + value, true
	case "pmcid":
		return "pmcid:" + value, true
	case "openalex":
		return normalizeOpenAlexID(value), true
	default:
		return "", false
	}
}

// identifiers collects the ids OpenAlex reports for the work. Its
// referenced works carry only OpenAlex ids, so references stay in that
// scheme and match papers whose own aliases include it.
func (w *Work) identifiers() domain.PaperIdentifiers {
	doi := w.IDs.DOI
	if doi == "" {
		doi = w.DOI
	}
	openAlexID := w.IDs.OpenAlex
	if openAlexID == "" {
		openAlexID = w.ID
	}
	return domain.PaperIdentifiers{
		DOI:        doi,
		PubMedID:   strings.Trim(strings.TrimPrefix(w.IDs.PMID, pubmedURLPrefix), "/"),
		PMCID:      strings.Trim(strings.TrimPrefix(w.IDs.PMCID, pmcURLPrefix), "/"),
		OpenAlexID: normalizeOpenAlexID(openAlexID),
	}
}

// normalizeOpenAlexID extracts the short ID from full OpenAlex URLs.
func normalizeOpenAlexID(id string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(id), openAlexIDPrefix))
}
