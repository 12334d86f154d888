// Package config provides configuration management for the citation graph service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Cache backend names.
const (
	CacheBackendBadger   = "badger"
	CacheBackendSQLite   = "sqlite"
	CacheBackendPostgres = "postgres"
)

// Fallback provider names accepted in resolver.fallback_order.
const (
	ProviderOpenAlex = "openalex"
	ProviderScholar  = "scholar"
	ProviderScopus   = "scopus"
)

// Config holds all configuration for the citation graph service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings for the postgres cache backend.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Tracing contains OpenTelemetry distributed tracing settings.
	Tracing TracingConfig `mapstructure:"tracing"`
	// Kafka contains event publishing and request consumption settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Cache contains metric cache settings.
	Cache CacheConfig `mapstructure:"cache"`
	// Resolver contains primary retry and fallback settings.
	Resolver ResolverConfig `mapstructure:"resolver"`
	// Batch contains batch coordinator settings.
	Batch BatchConfig `mapstructure:"batch"`
	// Graph contains graph analysis settings.
	Graph GraphConfig `mapstructure:"graph"`
	// PaperSources contains citation provider configurations.
	PaperSources PaperSourcesConfig `mapstructure:"paper_sources"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	// Batch resolution can take a while, so keep this above batch.timeout.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 20).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 2).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
	// StatementCacheCapacity is the size of the prepared statement cache.
	StatementCacheCapacity int `mapstructure:"statement_cache_capacity"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	// Enabled enables distributed tracing.
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the OTLP collector endpoint.
	Endpoint string `mapstructure:"endpoint"`
	// ServiceName is the service name for traces.
	ServiceName string `mapstructure:"service_name"`
	// SampleRate is the sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate"`
}

// KafkaConfig holds Kafka settings for batch events and resolve requests.
type KafkaConfig struct {
	// Enabled controls whether Kafka publishing is active.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the topic citation.batch_resolved events are published to.
	Topic string `mapstructure:"topic"`
	// RequestTopic is the topic the worker consumes citation.resolve_requested events from.
	RequestTopic string `mapstructure:"request_topic"`
	// GroupID is the consumer group of the worker.
	GroupID string `mapstructure:"group_id"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// CacheConfig holds metric cache settings.
type CacheConfig struct {
	// Backend selects the store (badger, sqlite, postgres).
	Backend string `mapstructure:"backend"`
	// TTLDays is how long a resolved entry stays valid.
	TTLDays int `mapstructure:"ttl_days"`
	// Path is the badger data directory.
	Path string `mapstructure:"path"`
	// SQLitePath is the sqlite database file.
	SQLitePath string `mapstructure:"sqlite_path"`
	// GCInterval is how often badger value-log GC runs. Zero disables it.
	GCInterval time.Duration `mapstructure:"gc_interval"`
	// GCDiscardRatio is the badger value-log GC threshold.
	GCDiscardRatio float64 `mapstructure:"gc_discard_ratio"`
	// SyncWrites makes every badger commit durable before returning.
	SyncWrites bool `mapstructure:"sync_writes"`
}

// TTL returns the entry lifetime.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// ResolverConfig holds citation resolution settings.
type ResolverConfig struct {
	// PrimaryRetryCount is the number of attempts made against the primary source.
	PrimaryRetryCount int `mapstructure:"primary_retry_count"`
	// PrimaryTimeoutSeconds bounds each primary attempt.
	PrimaryTimeoutSeconds int `mapstructure:"primary_timeout_seconds"`
	// InitialBackoff is the wait before the second attempt.
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	// BackoffMultiplier grows the wait between attempts.
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
	// FallbackEnabled controls whether fallback sources are consulted.
	FallbackEnabled bool `mapstructure:"fallback_enabled"`
	// FallbackOrder lists fallback providers in the order they are tried.
	FallbackOrder []string `mapstructure:"fallback_order"`
	// FallbackTimeout bounds each single fallback attempt.
	FallbackTimeout time.Duration `mapstructure:"fallback_timeout"`
}

// PrimaryTimeout returns the per-attempt timeout of the primary source.
func (c *ResolverConfig) PrimaryTimeout() time.Duration {
	return time.Duration(c.PrimaryTimeoutSeconds) * time.Second
}

// BatchConfig holds batch coordinator settings.
type BatchConfig struct {
	// Concurrency is the default number of papers resolved in parallel.
	Concurrency int `mapstructure:"concurrency"`
	// Timeout bounds a whole batch when the caller sets no deadline.
	Timeout time.Duration `mapstructure:"timeout"`
	// LowSuccessThreshold triggers the advisory when the success rate falls below it.
	LowSuccessThreshold float64 `mapstructure:"low_success_threshold"`
	// MaxPapers caps the size of a single request.
	MaxPapers int `mapstructure:"max_papers"`
}

// GraphConfig holds ranking parameters.
type GraphConfig struct {
	// PageRankDamping is the damping factor (0, 1).
	PageRankDamping float64 `mapstructure:"pagerank_damping"`
	// PageRankMaxIterations caps power iterations.
	PageRankMaxIterations int `mapstructure:"pagerank_max_iterations"`
	// PageRankTolerance is the L1 convergence threshold.
	PageRankTolerance float64 `mapstructure:"pagerank_tolerance"`
}

// PaperSourcesConfig holds configuration for all citation providers.
type PaperSourcesConfig struct {
	// SemanticScholar contains Semantic Scholar API settings (primary).
	SemanticScholar PaperSourceConfig `mapstructure:"semantic_scholar"`
	// OpenAlex contains OpenAlex API settings.
	OpenAlex PaperSourceConfig `mapstructure:"openalex"`
	// Scopus contains Scopus API settings.
	Scopus PaperSourceConfig `mapstructure:"scopus"`
	// Scholar contains Google Scholar scraping settings.
	Scholar PaperSourceConfig `mapstructure:"scholar"`
}

// PaperSourceConfig holds configuration for a single provider.
type PaperSourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variable, e.g. CITEGRAPH_PAPER_SOURCES_SEMANTIC_SCHOLAR_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the HTTP client timeout. Attempt timeouts from the resolver apply on top.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// UserAgent overrides the default User-Agent header.
	UserAgent string `mapstructure:"user_agent"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	if c.StatementCacheCapacity > 0 {
		params.Set("statement_cache_capacity", fmt.Sprintf("%d", c.StatementCacheCapacity))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration like Load, reading the given file instead of
// searching the default locations when path is not empty.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("CITEGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/citation-graph-service")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Config file not found is OK, we'll use env vars and defaults
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.PaperSources.SemanticScholar.APIKey = os.Getenv("CITEGRAPH_PAPER_SOURCES_SEMANTIC_SCHOLAR_API_KEY")
	cfg.PaperSources.OpenAlex.APIKey = os.Getenv("CITEGRAPH_PAPER_SOURCES_OPENALEX_API_KEY")
	cfg.PaperSources.Scopus.APIKey = os.Getenv("CITEGRAPH_PAPER_SOURCES_SCOPUS_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "citegraph")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "citation_graph_service")
	// Default to "require" for production security. Use CITEGRAPH_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)
	v.SetDefault("database.statement_cache_capacity", 512)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "citegraph")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "citation-graph-service")
	v.SetDefault("tracing.sample_rate", 0.1)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.citation_graph_service.batch_resolved")
	v.SetDefault("kafka.request_topic", "events.citation_graph_service.resolve_requested")
	v.SetDefault("kafka.group_id", "citation-graph-worker")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")

	// Cache defaults
	v.SetDefault("cache.backend", CacheBackendBadger)
	v.SetDefault("cache.ttl_days", 7)
	v.SetDefault("cache.path", "data/cache")
	v.SetDefault("cache.sqlite_path", "data/citation_cache.db")
	v.SetDefault("cache.gc_interval", "5m")
	v.SetDefault("cache.gc_discard_ratio", 0.5)
	v.SetDefault("cache.sync_writes", true)

	// Resolver defaults
	v.SetDefault("resolver.primary_retry_count", 3)
	v.SetDefault("resolver.primary_timeout_seconds", 8)
	v.SetDefault("resolver.initial_backoff", "1s")
	v.SetDefault("resolver.backoff_multiplier", 2.0)
	v.SetDefault("resolver.max_backoff", "4s")
	v.SetDefault("resolver.fallback_enabled", true)
	v.SetDefault("resolver.fallback_order", []string{ProviderOpenAlex, ProviderScopus, ProviderScholar})
	v.SetDefault("resolver.fallback_timeout", "8s")

	// Batch defaults
	v.SetDefault("batch.concurrency", 5)
	v.SetDefault("batch.timeout", "120s")
	v.SetDefault("batch.low_success_threshold", 0.5)
	v.SetDefault("batch.max_papers", 500)

	// Graph defaults
	v.SetDefault("graph.pagerank_damping", 0.85)
	v.SetDefault("graph.pagerank_max_iterations", 100)
	v.SetDefault("graph.pagerank_tolerance", 1e-6)

	// Paper sources defaults - Semantic Scholar (primary)
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("paper_sources.semantic_scholar.enabled", true)
	v.SetDefault("paper_sources.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("paper_sources.semantic_scholar.timeout", "30s")
	v.SetDefault("paper_sources.semantic_scholar.rate_limit", 1.0)

	// Paper sources defaults - OpenAlex
	v.SetDefault("paper_sources.openalex.enabled", true)
	v.SetDefault("paper_sources.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("paper_sources.openalex.timeout", "30s")
	v.SetDefault("paper_sources.openalex.rate_limit", 10.0)

	// Paper sources defaults - Scopus (disabled by default, requires API key)
	v.SetDefault("paper_sources.scopus.enabled", false)
	v.SetDefault("paper_sources.scopus.base_url", "https://api.elsevier.com/content")
	v.SetDefault("paper_sources.scopus.timeout", "30s")
	v.SetDefault("paper_sources.scopus.rate_limit", 5.0)

	// Paper sources defaults - Google Scholar (scraped, keep the rate low)
	v.SetDefault("paper_sources.scholar.enabled", true)
	v.SetDefault("paper_sources.scholar.base_url", "https://scholar.google.com")
	v.SetDefault("paper_sources.scholar.timeout", "30s")
	v.SetDefault("paper_sources.scholar.rate_limit", 0.2)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate cache config
	switch c.Cache.Backend {
	case CacheBackendBadger:
		if c.Cache.Path == "" {
			return fmt.Errorf("cache path is required for the badger backend")
		}
	case CacheBackendSQLite:
		if c.Cache.SQLitePath == "" {
			return fmt.Errorf("cache sqlite_path is required for the sqlite backend")
		}
	case CacheBackendPostgres:
		if err := c.Database.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid cache backend: %q", c.Cache.Backend)
	}
	if c.Cache.TTLDays <= 0 {
		return fmt.Errorf("cache ttl_days must be positive")
	}
	if c.Cache.GCDiscardRatio < 0 || c.Cache.GCDiscardRatio > 1 {
		return fmt.Errorf("cache gc_discard_ratio must be between 0 and 1")
	}

	// Validate resolver config
	if c.Resolver.PrimaryRetryCount <= 0 {
		return fmt.Errorf("resolver primary_retry_count must be positive")
	}
	if c.Resolver.PrimaryTimeoutSeconds <= 0 {
		return fmt.Errorf("resolver primary_timeout_seconds must be positive")
	}
	if c.Resolver.BackoffMultiplier < 1 {
		return fmt.Errorf("resolver backoff_multiplier must be >= 1")
	}
	if c.Resolver.MaxBackoff < c.Resolver.InitialBackoff {
		return fmt.Errorf("resolver max_backoff (%s) must be >= initial_backoff (%s)",
			c.Resolver.MaxBackoff, c.Resolver.InitialBackoff)
	}
	for _, name := range c.Resolver.FallbackOrder {
		switch strings.ToLower(name) {
		case ProviderOpenAlex, ProviderScholar, ProviderScopus:
		default:
			return fmt.Errorf("unknown fallback provider: %q", name)
		}
	}

	// Validate batch config
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch concurrency must be positive")
	}
	if c.Batch.LowSuccessThreshold < 0 || c.Batch.LowSuccessThreshold > 1 {
		return fmt.Errorf("batch low_success_threshold must be between 0 and 1")
	}

	// Validate graph config
	if c.Graph.PageRankDamping <= 0 || c.Graph.PageRankDamping >= 1 {
		return fmt.Errorf("graph pagerank_damping must be in (0, 1)")
	}
	if c.Graph.PageRankMaxIterations <= 0 {
		return fmt.Errorf("graph pagerank_max_iterations must be positive")
	}
	if c.Graph.PageRankTolerance <= 0 {
		return fmt.Errorf("graph pagerank_tolerance must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate tracing config
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing sample rate must be between 0 and 1")
	}

	// Validate kafka config
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}

	return nil
}

func (c *DatabaseConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}
	if c.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.MaxConns < c.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.MaxConns, c.MinConns)
	}
	return nil
}
