package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/helixir/citation-graph-service/internal/batch"
	"github.com/helixir/citation-graph-service/internal/domain"
	"github.com/helixir/citation-graph-service/internal/graph"
	"github.com/helixir/citation-graph-service/internal/observability"
)

// rankGraph handles POST /api/v1/graphs/rank. It resolves the papers,
// builds their citation graph and ranks it.
func (s *Server) rankGraph(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, g, err := s.buildGraph(r.Context(), graphPapers(req.PaperIDs, req.Papers), req.MaxConcurrency)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	opts := s.pageRank
	if req.Damping != nil {
		opts.Damping = *req.Damping
	}

	start := time.Now()
	ranks, err := graph.PageRank(r.Context(), g, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordPageRank(ranks.Iterations, time.Since(start).Seconds())
	}

	ranking := ranks.Ranking
	if req.Limit > 0 && len(ranking) > req.Limit {
		ranking = ranking[:req.Limit]
	}

	resp := rankResponse{
		BatchID:    result.BatchID.String(),
		Ranking:    ranking,
		Iterations: ranks.Iterations,
		Converged:  ranks.Converged,
		Stats:      graph.Summarize(g),
		Seminal:    graph.Seminal(g, 0, req.Limit),
		Graph:      graph.ExportGraph(g, ranks),
		Advisory:   result.Advisory,
	}
	for _, m := range result.Metrics {
		if !m.IsResolved() {
			resp.Unavailable = append(resp.Unavailable, m.PaperID)
		}
	}

	reqLogger := observability.LoggerWithContext(r.Context(), s.logger)
	reqLogger.Info().
		Int("nodes", resp.Stats.Nodes).
		Int("edges", resp.Stats.Edges).
		Int("iterations", ranks.Iterations).
		Bool("converged", ranks.Converged).
		Msg("citation graph ranked")

	writeJSON(w, http.StatusOK, resp)
}

// findPath handles POST /api/v1/graphs/path. The endpoints are added to the
// paper set when missing.
func (s *Server) findPath(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	from := domain.NormalizePaperID(req.From)
	to := domain.NormalizePaperID(req.To)
	papers := append([]graphPaper{
		{field: "from", paperRequest: paperRequest{ID: req.From}},
		{field: "to", paperRequest: paperRequest{ID: req.To}},
	}, graphPapers(req.PaperIDs, req.Papers)...)

	result, g, err := s.buildGraph(r.Context(), papers, req.MaxConcurrency)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	path, err := graph.FindPath(g, from, to)
	if s.metrics != nil {
		s.metrics.RecordPathQuery(err == nil)
	}
	if err != nil {
		if errors.Is(err, graph.ErrPathNotFound) {
			writeError(w, http.StatusNotFound, "no citation path between papers")
			return
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pathResponse{
		BatchID: result.BatchID.String(),
		From:    from,
		To:      to,
		Path:    path,
		Hops:    len(path) - 1,
	})
}

// graphPaper is one paper named by a graph request. field locates it in the
// request body for error messages.
type graphPaper struct {
	field string
	paperRequest
}

func graphPapers(ids []string, papers []paperRequest) []graphPaper {
	out := make([]graphPaper, 0, len(ids)+len(papers))
	for i, id := range ids {
		out = append(out, graphPaper{
			field:        fmt.Sprintf("paper_ids[%d]", i),
			paperRequest: paperRequest{ID: id},
		})
	}
	for i, p := range papers {
		out = append(out, graphPaper{field: fmt.Sprintf("papers[%d].id", i), paperRequest: p})
	}
	return out
}

// buildGraph resolves the distinct papers and builds their graph. A paper
// named twice keeps the first title given for it. Unavailable papers become
// isolated nodes.
func (s *Server) buildGraph(ctx context.Context, requested []graphPaper, maxConcurrency int) (*batch.Result, *graph.CitationGraph, error) {
	index := make(map[string]int, len(requested))
	papers := make([]domain.PaperRef, 0, len(requested))
	for _, p := range requested {
		ref, err := domain.NewPaperRef(p.ID, p.Title)
		if err != nil {
			return nil, nil, domain.NewValidationError(p.field, "paper id is required")
		}
		if k, ok := index[ref.ID]; ok {
			if papers[k].Title == "" {
				papers[k].Title = ref.Title
			}
			continue
		}
		index[ref.ID] = len(papers)
		papers = append(papers, ref)
	}
	if len(papers) == 0 {
		return nil, nil, domain.NewValidationError("paper_ids", "at least one paper id is required")
	}

	result, err := s.batch.ResolveMany(ctx, papers, maxConcurrency)
	if err != nil {
		s.logger.Error().Err(err).Int("papers", len(papers)).Msg("graph resolution failed")
		return nil, nil, err
	}
	return result, graph.BuildFromList(result.Metrics), nil
}
