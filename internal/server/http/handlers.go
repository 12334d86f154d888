package httpserver

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/citation-graph-service/internal/domain"
	"github.com/helixir/citation-graph-service/internal/observability"
)

// resolveBatch handles POST /api/v1/citations/resolve.
func (s *Server) resolveBatch(w http.ResponseWriter, r *http.Request) {
	var req resolveBatchRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	papers := make([]domain.PaperRef, len(req.Papers))
	for i, p := range req.Papers {
		papers[i] = domain.PaperRef{ID: p.ID, Title: p.Title}
	}

	result, err := s.batch.ResolveMany(r.Context(), papers, req.MaxConcurrency)
	if err != nil {
		s.logger.Error().Err(err).Int("papers", len(papers)).Msg("batch resolution failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// resolvePaper handles GET /api/v1/citations/{paperID}?title=.
// An unavailable paper is still a 200 with source "unavailable".
func (s *Server) resolvePaper(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "*")
	id, err := url.PathUnescape(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid paper id encoding")
		return
	}

	paper, err := domain.NewPaperRef(id, r.URL.Query().Get("title"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	outcome := s.resolver.Resolve(r.Context(), paper)
	writeJSON(w, http.StatusOK, outcomeToResponse(outcome, s.now()))
}

// cacheStats handles GET /api/v1/cache/stats.
func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "cache is disabled")
		return
	}
	stats, err := s.cache.Stats(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read cache stats")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// purgeCache handles POST /api/v1/cache/purge.
func (s *Server) purgeCache(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "cache is disabled")
		return
	}
	purged, err := s.cache.Purge(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to purge cache")
		writeDomainError(w, err)
		return
	}
	reqLogger := observability.LoggerWithContext(r.Context(), s.logger)
	reqLogger.Info().Int("purged", purged).Msg("cache purged")
	writeJSON(w, http.StatusOK, purgeResponse{Purged: purged})
}

// writeDomainError maps domain errors to HTTP status codes and writes a JSON
// error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "timed out")
	case errors.Is(err, domain.ErrCancelled):
		writeError(w, http.StatusConflict, "operation cancelled")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
