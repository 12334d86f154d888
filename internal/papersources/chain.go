package papersources

import (
	"context"
	"errors"
	"time"

	"github.com/helixir/citation-graph-service/internal/domain"
)

// ErrNoSources is returned by Chain.Resolve when no source is enabled.
var ErrNoSources = errors.New("no enabled citation sources")

// Chain tries an ordered list of sources once each and returns the first
// success. It is used for the fallback stage of resolution.
type Chain struct {
	sources []CitationSource
	timeout time.Duration
}

// Compile-time interface verification.
var _ CitationSource = (*Chain)(nil)

// NewChain creates a chain over sources, tried in the given order. A
// positive timeout bounds each source's single attempt.
func NewChain(timeout time.Duration, sources ...CitationSource) *Chain {
	return &Chain{sources: sources, timeout: timeout}
}

// Name returns "chain".
func (c *Chain) Name() string { return "chain" }

// IsEnabled reports whether any source in the chain is enabled.
func (c *Chain) IsEnabled() bool {
	for _, s := range c.sources {
		if s.IsEnabled() {
			return true
		}
	}
	return false
}

// Sources returns the enabled sources in order.
func (c *Chain) Sources() []CitationSource {
	enabled := make([]CitationSource, 0, len(c.sources))
	for _, s := range c.sources {
		if s.IsEnabled() {
			enabled = append(enabled, s)
		}
	}
	return enabled
}

// Resolve implements CitationSource. On success Metrics.Provider names the
// source that answered. On failure the errors of every tried source are
// joined in order.
func (c *Chain) Resolve(ctx context.Context, paper domain.PaperRef) (*domain.Metrics, error) {
	var errs []error
	tried := 0

	for _, s := range c.sources {
		if !s.IsEnabled() {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		tried++
		m, err := c.resolveOne(ctx, s, paper)
		if err == nil {
			if m.Provider == "" {
				m.Provider = s.Name()
			}
			return m, nil
		}
		errs = append(errs, err)
	}

	if tried == 0 && len(errs) == 0 {
		return nil, ErrNoSources
	}
	return nil, errors.Join(errs...)
}

func (c *Chain) resolveOne(ctx context.Context, s CitationSource, paper domain.PaperRef) (*domain.Metrics, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	m, err := s.Resolve(ctx, paper)
	if err == nil && m == nil {
		return nil, domain.NewParseError(s.Name(), errors.New("empty result"))
	}
	return m, err
}
