// Package httpserver provides the HTTP REST API for citation resolution and
// citation graph analysis.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/helixir/citation-graph-service/internal/batch"
	"github.com/helixir/citation-graph-service/internal/cache"
	"github.com/helixir/citation-graph-service/internal/domain"
	"github.com/helixir/citation-graph-service/internal/graph"
	"github.com/helixir/citation-graph-service/internal/observability"
	"github.com/helixir/citation-graph-service/internal/resolver"
)

// readinessTimeout bounds the cache ping of /readyz.
const readinessTimeout = 2 * time.Second

// PaperResolver resolves a single paper. *resolver.Resolver satisfies it.
type PaperResolver interface {
	Resolve(ctx context.Context, paper domain.PaperRef) resolver.Outcome
}

// BatchResolver resolves many papers at once. *batch.Coordinator satisfies it.
type BatchResolver interface {
	ResolveMany(ctx context.Context, papers []domain.PaperRef, maxConcurrency int) (*batch.Result, error)
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	resolver   PaperResolver
	batch      BatchResolver
	cache      cache.MetricCache
	pageRank   graph.PageRankOptions
	metrics    *observability.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

// Config holds HTTP server configuration.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// PageRank holds the ranking defaults; requests may override the damping.
	PageRank graph.PageRankOptions
}

// NewServer creates a new HTTP server with all dependencies.
// The cache and metrics may be nil.
func NewServer(
	cfg Config,
	paperResolver PaperResolver,
	batchResolver BatchResolver,
	metricCache cache.MetricCache,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		resolver: paperResolver,
		batch:    batchResolver,
		cache:    metricCache,
		pageRank: cfg.PageRank,
		metrics:  metrics,
		logger:   logger.With().Str("component", "http-server").Logger(),
		now:      time.Now,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      otelhttp.NewHandler(s.router, "citegraph.http"),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(requestLogMiddleware(s.logger))
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/citations/resolve", s.resolveBatch)
		// Paper ids such as DOIs contain slashes.
		r.Get("/citations/*", s.resolvePaper)

		r.Post("/graphs/rank", s.rankGraph)
		r.Post("/graphs/path", s.findPath)

		r.Get("/cache/stats", s.cacheStats)
		r.Post("/cache/purge", s.purgeCache)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports whether the cache backend answers.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "cache": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := s.cache.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("cache readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"cache":  "unhealthy",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"cache":  "ok",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort log; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
