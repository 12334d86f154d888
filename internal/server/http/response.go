package httpserver

import (
	"time"

	"github.com/helixir/citation-graph-service/internal/domain"
	"github.com/helixir/citation-graph-service/internal/graph"
	"github.com/helixir/citation-graph-service/internal/resolver"
)

// Request and response types for JSON serialization.

type paperRequest struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title,omitempty"`
}

type resolveBatchRequest struct {
	Papers         []paperRequest `json:"papers" validate:"required,min=1,dive"`
	MaxConcurrency int            `json:"max_concurrency" validate:"gte=0,lte=64"`
}

// Graph requests name papers by bare id in paper_ids, or with a title in
// papers so that title lookups can resolve them.
type rankRequest struct {
	PaperIDs       []string       `json:"paper_ids" validate:"required_without=Papers,dive,required"`
	Papers         []paperRequest `json:"papers" validate:"omitempty,dive"`
	MaxConcurrency int            `json:"max_concurrency" validate:"gte=0,lte=64"`
	Damping        *float64       `json:"damping,omitempty" validate:"omitempty,gt=0,lt=1"`
	// Limit caps the ranking and seminal lists; 0 returns every paper.
	Limit int `json:"limit" validate:"gte=0"`
}

type pathRequest struct {
	PaperIDs       []string       `json:"paper_ids" validate:"omitempty,dive,required"`
	Papers         []paperRequest `json:"papers" validate:"omitempty,dive"`
	MaxConcurrency int            `json:"max_concurrency" validate:"gte=0,lte=64"`
	From           string         `json:"from" validate:"required"`
	To             string         `json:"to" validate:"required"`
}

type resolveResponse struct {
	Metrics          *domain.Metrics  `json:"metrics"`
	CitationVelocity float64          `json:"citation_velocity"`
	State            resolver.State   `json:"state"`
	Path             []resolver.State `json:"path"`
	Attempts         int              `json:"attempts"`
}

type rankResponse struct {
	BatchID     string               `json:"batch_id"`
	Ranking     []graph.RankedPaper  `json:"ranking"`
	Iterations  int                  `json:"iterations"`
	Converged   bool                 `json:"converged"`
	Stats       graph.GraphStats     `json:"stats"`
	Seminal     []graph.SeminalPaper `json:"seminal"`
	Graph       graph.Export         `json:"graph"`
	Unavailable []string             `json:"unavailable,omitempty"`
	Advisory    string               `json:"advisory,omitempty"`
}

type pathResponse struct {
	BatchID string   `json:"batch_id"`
	From    string   `json:"from"`
	To      string   `json:"to"`
	Path    []string `json:"path"`
	Hops    int      `json:"hops"`
}

type purgeResponse struct {
	Purged int `json:"purged"`
}

func outcomeToResponse(o resolver.Outcome, now time.Time) resolveResponse {
	return resolveResponse{
		Metrics:          o.Metrics,
		CitationVelocity: o.Metrics.CitationVelocity(now),
		State:            o.State,
		Path:             o.Path,
		Attempts:         o.Attempts,
	}
}
