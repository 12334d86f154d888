package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/citation-graph-service/internal/database"
	"github.com/helixir/citation-graph-service/internal/domain"
)

// Compile-time interface verification.
var _ MetricCache = (*PostgresCache)(nil)

// PostgresCache is a MetricCache shared by every replica through PostgreSQL.
// The schema lives in migrations/.
type PostgresCache struct {
	db     database.Querier
	opts   Options
	closer func()
}

// NewPostgresCache creates a cache on db. closer, if not nil, is called by Close.
func NewPostgresCache(db database.Querier, opts Options, closer func()) *PostgresCache {
	return &PostgresCache{db: db, opts: opts.withDefaults(), closer: closer}
}

// Get implements MetricCache.
func (c *PostgresCache) Get(ctx context.Context, key string) (*domain.Metrics, error) {
	key, err := Key(key)
	if err != nil {
		return nil, err
	}

	var (
		data      []byte
		expiresAt time.Time
	)
	err = c.db.QueryRow(ctx,
		`SELECT entry, expires_at FROM citation_metrics WHERE cache_key = $1`, key).
		Scan(&data, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}

	now := c.opts.Now()
	if !now.Before(expiresAt) {
		_, _ = c.db.Exec(ctx,
			`DELETE FROM citation_metrics WHERE cache_key = $1 AND expires_at <= $2`, key, now)
		return nil, domain.ErrCacheMiss
	}

	entry, err := decodeEntry(data)
	if err != nil {
		return nil, err
	}
	return entry.Metrics, nil
}

// Put implements MetricCache.
func (c *PostgresCache) Put(ctx context.Context, key string, metrics *domain.Metrics) error {
	key, err := Key(key)
	if err != nil {
		return err
	}

	now := c.opts.Now()
	entry, err := newEntry(metrics, now, c.opts.TTL)
	if err != nil {
		return err
	}
	data, err := encodeEntry(entry)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO citation_metrics (cache_key, entry, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cache_key) DO UPDATE SET
			entry = EXCLUDED.entry,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at`

	if _, err := c.db.Exec(ctx, query, key, data, entry.ExpiresAt, now); err != nil {
		return fmt.Errorf("failed to upsert cache entry %s: %w", key, err)
	}
	return nil
}

// Purge implements MetricCache.
func (c *PostgresCache) Purge(ctx context.Context) (int, error) {
	tag, err := c.db.Exec(ctx,
		`DELETE FROM citation_metrics WHERE expires_at <= $1`, c.opts.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Stats implements MetricCache.
func (c *PostgresCache) Stats(ctx context.Context) (Stats, error) {
	var total, valid int64
	err := c.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE expires_at > $1)
		FROM citation_metrics`, c.opts.Now()).Scan(&total, &valid)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return Stats{
		Backend: "postgres",
		Total:   int(total),
		Valid:   int(valid),
		Expired: int(total - valid),
		TTL:     c.opts.TTL,
	}, nil
}

// Ping implements MetricCache.
func (c *PostgresCache) Ping(ctx context.Context) error {
	if _, err := c.db.Exec(ctx, `SELECT 1`); err != nil {
		return fmt.Errorf("failed to ping cache database: %w", err)
	}
	return nil
}

// Close releases the pool when the cache owns it.
func (c *PostgresCache) Close() error {
	if c.closer != nil {
		c.closer()
	}
	return nil
}
