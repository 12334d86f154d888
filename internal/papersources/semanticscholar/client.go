package semanticscholar

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
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit for unauthenticated requests.
	// With an API key, this can be increased.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 10 * time.Second

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of fields to request from the API.
	paperFields = "paperId,externalIds,title,year,citationCount,influentialCitationCount,references.paperId,references.externalIds"

	// sourceName is recorded as Metrics.Provider.
	sourceName = string(domain.SourceTypeSemanticScholar)
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	APIKey string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit if zero.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to DefaultBurstSize if zero.
	BurstSize int

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// Enabled indicates whether this source is enabled.
	Enabled bool

	// Now stamps ResolvedAt. Defaults to time.Now.
	Now func() time.Time
}

// Client implements papersources.CitationSource for Semantic Scholar.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
}

// Compile-time check that Client implements papersources.CitationSource.
var _ papersources.CitationSource = (*Client)(nil)

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if httpClient == nil {
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Source:       sourceName,
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			UserAgent:    cfg.UserAgent,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Resolve looks the paper up by identifier, or by title when the id scheme
// has no Semantic Scholar form.
func (c *Client) Resolve(ctx context.Context, paper domain.PaperRef) (*domain.Metrics, error) {
	if lookupID, ok := apiPaperID(paper); ok {
		result, err := c.getPaper(ctx, lookupID)
		if err != nil {
			return nil, err
		}
		return c.toMetrics(paper, result), nil
	}

	if paper.Title == "" {
		return nil, domain.NewNotFoundError("paper", paper.ID)
	}

	match, err := c.matchTitle(ctx, paper.Title)
	if err != nil {
		return nil, err
	}
	// The match endpoint does not expand references.
	result, err := c.getPaper(ctx, match.PaperID)
	if err != nil {
		return nil, err
	}
	return c.toMetrics(paper, result), nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is currently enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) getPaper(ctx context.Context, lookupID string) (*PaperResult, error) {
	paperURL := fmt.Sprintf("%s/paper/%s?fields=%s", c.config.BaseURL, url.PathEscape(lookupID), paperFields)

	var result PaperResult
	if err := c.httpClient.GetJSON(ctx, paperURL, &result); err != nil {
		return nil, err
	}
	if result.PaperID == "" {
		return nil, domain.NewParseError(sourceName, fmt.Errorf("paper %s: missing paperId", lookupID))
	}
	return &result, nil
}

func (c *Client) matchTitle(ctx context.Context, title string) (*PaperResult, error) {
	q := url.Values{}
	q.Set("query", title)
	q.Set("fields", "paperId,title")
	matchURL := fmt.Sprintf("%s/paper/search/match?%s", c.config.BaseURL, q.Encode())

	var resp MatchResponse
	if err := c.httpClient.GetJSON(ctx, matchURL, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].PaperID == "" {
		return nil, domain.NewNotFoundError("paper", title)
	}
	return &resp.Data[0], nil
}

func (c *Client) toMetrics(paper domain.PaperRef, result *PaperResult) *domain.Metrics {
	citations := max(result.CitationCount, 0)
	influential := min(max(result.InfluentialCitationCount, 0), citations)

	refs := make([]string, 0, len(result.References))
	refAliases := make([][]string, 0, len(result.References))
	for _, ref := range result.References {
		ids := identifiers(ref.PaperID, ref.ExternalIDs).Aliases()
		if len(ids) == 0 {
			continue
		}
		refs = append(refs, ids[0])
		refAliases = append(refAliases, ids[1:])
	}

	return &domain.Metrics{
		PaperID:                  paper.ID,
		CitationCount:            citations,
		InfluentialCitationCount: influential,
		Aliases:                  domain.OtherIDs(identifiers(result.PaperID, result.ExternalIDs).Aliases(), paper.ID),
		ReferenceIDs:             refs,
		ReferenceAliases:         refAliases,
		Source:                   domain.MetricSourcePrimary,
		Provider:                 sourceName,
		Year:                     result.Year,
		ResolvedAt:               c.config.Now().UTC(),
	}
}

// apiPaperID maps a normalized paper id onto the Graph API's id syntax.
func apiPaperID(paper domain.PaperRef) (string, bool) {
	value := paper.Value()
	if value == "" {
		return "", false
	}
	switch paper.Scheme() {
	case "doi":
		return "DOI:" + value, true
	case "arxiv":
		return "ARXIV:" + value, true
	case "pubmed":
		return "PMID:" + value, true
	case "pmcid":
		return "PMCID:" + value, true
	case "corpusid":
		return "CorpusId:" + value, true
	case "s2":
		return value, true
	default:
		return "", false
	}
}

// identifiers collects the ids Semantic Scholar reports for a paper.
func identifiers(paperID string, ext *ExternalIDs) domain.PaperIdentifiers {
	ids := domain.PaperIdentifiers{
		SemanticScholarID: paperID,
	}
	if ext != nil {
		ids.DOI = ext.DOI
		ids.ArXivID = ext.ArXiv
		ids.PubMedID = ext.PubMed
		ids.PMCID = ext.PubMedCentral
	}
	return ids
}
