// Package papersources provides the citation providers consulted by the
// resolver and the machinery shared between them.
//
// Each provider (Semantic Scholar, OpenAlex, Scopus, Google Scholar)
// implements CitationSource and makes exactly one request per Resolve call.
// Retrying is layered on top by RetryingSource, and fallbacks are tried in
// order by Chain.
//
// Example usage:
//
//	primary := papersources.NewRetryingSource(semanticscholar.NewClient(cfg, nil), papersources.DefaultRetryPolicy())
//	metrics, attempts, err := primary.ResolveWithRetry(ctx, paper)
package papersources

import (
	"context"

	"github.com/helixir/citation-graph-service/internal/domain"
)

// CitationSource resolves citation metrics for a single paper.
type CitationSource interface {
	// Resolve performs one lookup. Failures are reported with the domain
	// error taxonomy (see Classify).
	Resolve(ctx context.Context, paper domain.PaperRef) (*domain.Metrics, error)

	// Name returns the provider name recorded in Metrics.Provider.
	Name() string

	// IsEnabled returns whether this source is currently enabled.
	IsEnabled() bool
}
