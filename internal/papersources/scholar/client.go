// Package scholar provides a scrape-based citation source for Google Scholar.
//
// Google Scholar has no API. The client fetches the public results page for
// a title query and reads the "Cited by N" link of the first result. Scholar
// aggressively blocks automated traffic, so the default rate is one request
// every five seconds and block pages are reported as rate limiting.
package scholar

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/helixir/citation-graph-service/internal/domain"
	"github.com/helixir/citation-graph-service/internal/papersources"
)

const (
	// DefaultBaseURL is the Google Scholar origin.
	DefaultBaseURL = "https://scholar.google.com"

	// DefaultRateLimit is one request every five seconds.
	DefaultRateLimit = 0.2

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent mimics a desktop browser; Scholar rejects obvious bots.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	// blockedRetryAfter is reported when Scholar serves a CAPTCHA page.
	blockedRetryAfter = time.Minute

	sourceName = string(domain.SourceTypeGoogleScholar)
)

var (
	citedByPattern = regexp.MustCompile(`^Cited by\s+(\d+)`)
	yearPattern    = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
)

// Config holds configuration for the Scholar client.
type Config struct {
	// BaseURL is the Scholar origin.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// Enabled indicates whether this source is enabled.
	Enabled bool

	// Now stamps ResolvedAt. Defaults to time.Now.
	Now func() time.Time
}

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
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Client implements papersources.CitationSource by scraping Google Scholar.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Compile-time check that Client implements papersources.CitationSource.
var _ papersources.CitationSource = (*Client)(nil)

// New creates a new Scholar client.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	return &Client{
		config: cfg,
		httpClient: papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Source:    sourceName,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: 1,
			UserAgent: cfg.UserAgent,
		}),
	}
}

// Resolve searches Scholar for the paper's title. A title is required.
func (c *Client) Resolve(ctx context.Context, paper domain.PaperRef) (*domain.Metrics, error) {
	if strings.TrimSpace(paper.Title) == "" {
		return nil, domain.NewNotFoundError("paper", paper.ID)
	}

	q := url.Values{}
	q.Set("q", paper.Title)
	q.Set("hl", "en")

	resp, err := c.httpClient.Get(ctx, c.config.BaseURL+"/scholar?"+q.Encode(), map[string]string{
		"Accept":          "text/html",
		"Accept-Language": "en-US,en;q=0.9",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, domain.NewParseError(sourceName, fmt.Errorf("parse results page: %w", err))
	}

	result, err := parseFirstResult(doc)
	if err != nil {
		return nil, err
	}

	return &domain.Metrics{
		PaperID:       paper.ID,
		CitationCount: result.citedBy,
		Source:        domain.MetricSourceFallback,
		Provider:      sourceName,
		Year:          result.year,
		ResolvedAt:    c.config.Now().UTC(),
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is currently enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

type searchResult struct {
	title   string
	citedBy int
	year    int
}

// parseFirstResult reads the first organic result of a results page.
func parseFirstResult(doc *goquery.Document) (searchResult, error) {
	if isBlocked(doc) {
		return searchResult{}, domain.NewRateLimitError(sourceName, blockedRetryAfter)
	}

	first := doc.Find(".gs_ri").First()
	if first.Length() == 0 {
		// An empty results container is a genuine miss; anything else is a
		// page layout we do not understand.
		if doc.Find("#gs_res_ccl, #gs_res_ccl_mid").Length() > 0 {
			return searchResult{}, domain.NewNotFoundError("paper", "scholar results")
		}
		return searchResult{}, domain.NewParseError(sourceName, fmt.Errorf("results container not found"))
	}

	title := strings.TrimSpace(first.Find(".gs_rt").First().Text())
	if title == "" {
		return searchResult{}, domain.NewParseError(sourceName, fmt.Errorf("result without title"))
	}

	result := searchResult{title: title}
	first.Find(".gs_fl a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		m := citedByPattern.FindStringSubmatch(strings.TrimSpace(link.Text()))
		if m == nil {
			return true
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			result.citedBy = n
		}
		return false
	})

	if m := yearPattern.FindAllString(first.Find(".gs_a").First().Text(), -1); len(m) > 0 {
		result.year, _ = strconv.Atoi(m[len(m)-1])
	}

	return result, nil
}

// isBlocked detects Scholar's CAPTCHA and unusual-traffic pages.
func isBlocked(doc *goquery.Document) bool {
	if doc.Find("#gs_captcha_ccl, #captcha-form, form[action*='sorry']").Length() > 0 {
		return true
	}
	text := strings.ToLower(doc.Find("body").Text())
	return strings.Contains(text, "unusual traffic") || strings.Contains(text, "not a robot")
}
