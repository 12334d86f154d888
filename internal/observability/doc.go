// Package observability carries the zerolog, Prometheus and OpenTelemetry
// plumbing shared by the server, the worker and the CLI.
//
// Loggers come from NewLogger and are narrowed per component:
//
//	logger := observability.NewLogger(observability.DefaultLoggingConfig())
//	logger = logger.With().Str("component", "resolver").Logger()
//
// Request-scoped fields travel in the context. LoggerWithContext copies the
// request id, the batch id and the active span's trace and span ids onto a
// logger:
//
//	ctx = observability.WithBatchID(ctx, batchID)
//	log := observability.LoggerWithContext(ctx, logger)
//	log.Info().Msg("batch started")
//
// Metrics are optional everywhere; callers hold a *Metrics that may be nil.
// Tests use NewMetricsWithRegistry with a fresh prometheus.Registry.
//
// InitTracing installs the OTLP exporter when tracing is enabled and leaves
// the no-op provider in place otherwise.
package observability
