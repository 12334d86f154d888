package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format is json, or console/pretty for human-readable output.
	Format string

	// Output is stdout or stderr.
	Output string

	// AddSource adds the caller's file and line to every entry.
	AddSource bool

	// TimeFormat is the layout of the time field.
	TimeFormat string
}

// DefaultLoggingConfig returns the production logging defaults.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger creates a logger writing to the configured output.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return newLoggerTo(out, cfg)
}

func newLoggerTo(out io.Writer, cfg LoggingConfig) zerolog.Logger {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = timeFormat

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}

	lc := zerolog.New(out).With().Timestamp()
	if cfg.AddSource {
		lc = lc.Caller()
	}
	level := parseLevel(cfg.Level)
	if level < zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(level)
	}
	return lc.Logger().Level(level)
}

// parseLevel maps a level name onto zerolog, defaulting to info.
func parseLevel(level string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "warning" {
		name = "warn"
	}
	parsed, err := zerolog.ParseLevel(name)
	if err != nil || name == "" || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// WithRequestContext adds the request identifier to a logger.
func WithRequestContext(logger zerolog.Logger, requestID string) zerolog.Logger {
	return logger.With().Str("request_id", requestID).Logger()
}

// WithBatchContext adds batch fields to a logger.
func WithBatchContext(logger zerolog.Logger, batchID string, size int) zerolog.Logger {
	return logger.With().
		Str("batch_id", batchID).
		Int("batch_size", size).
		Logger()
}

// WithPaperContext adds the paper id and, when known, its title.
func WithPaperContext(logger zerolog.Logger, paperID, title string) zerolog.Logger {
	lc := logger.With().Str("paper_id", paperID)
	if title != "" {
		lc = lc.Str("title", title)
	}
	return lc.Logger()
}

// WithSourceContext adds provider attempt fields to a logger.
func WithSourceContext(logger zerolog.Logger, provider string, attempt int) zerolog.Logger {
	return logger.With().
		Str("provider", provider).
		Int("attempt", attempt).
		Logger()
}
