// Package database provides the PostgreSQL pool and migrations backing the
// shared citation metric cache.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/helixir/citation-graph-service/internal/config"
)

const (
	// DefaultConnectAttempts is how often New pings before giving up.
	DefaultConnectAttempts = 5

	// connectRetryDelay is the pause between startup pings.
	connectRetryDelay = 2 * time.Second
)

// Querier is the subset of *pgxpool.Pool the cache needs.
// pgxmock.PgxPoolIface satisfies it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// DB is a connection pool to the cache database.
type DB struct {
	*pgxpool.Pool
	logger zerolog.Logger
}

var _ Querier = (*DB)(nil)

// PoolConfig maps cfg onto a pgxpool configuration.
func PoolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	return poolConfig, nil
}

// New opens a pool and pings it up to DefaultConnectAttempts times, so a
// replica started alongside its database waits for it to come up.
func New(ctx context.Context, cfg *config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	logger = logger.With().Str("component", "database").Logger()

	poolConfig, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pingWithRetry(ctx, pool.Ping, DefaultConnectAttempts, connectRetryDelay, logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int32("max_conns", cfg.MaxConns).
		Msg("cache database connected")

	return &DB{Pool: pool, logger: logger}, nil
}

// pingWithRetry calls ping until it succeeds, attempts run out or ctx ends.
func pingWithRetry(ctx context.Context, ping func(context.Context) error, attempts int, delay time.Duration, logger zerolog.Logger) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("database not reachable")
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("ping database after %d attempts: %w", attempts, err)
}

// Close closes the pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info().Msg("cache database closed")
	}
}
