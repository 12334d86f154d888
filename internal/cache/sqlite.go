package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/helixir/citation-graph-service/internal/domain"
)

// Compile-time interface verification.
var _ MetricCache = (*SQLiteCache)(nil)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS citation_metrics (
		cache_key  TEXT PRIMARY KEY,
		entry      TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_citation_metrics_expires_at ON citation_metrics(expires_at);
`

// SQLiteCache is a MetricCache stored in a single SQLite file.
type SQLiteCache struct {
	db   *sql.DB
	opts Options
}

// OpenSQLite opens or creates a SQLite cache at path.
func OpenSQLite(path string, opts Options) (*SQLiteCache, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite cache: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring sqlite cache: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite cache schema: %w", err)
	}

	return &SQLiteCache{db: db, opts: opts.withDefaults()}, nil
}

// Get implements MetricCache.
func (c *SQLiteCache) Get(ctx context.Context, key string) (*domain.Metrics, error) {
	key, err := Key(key)
	if err != nil {
		return nil, err
	}

	var data string
	err = c.db.QueryRowContext(ctx,
		`SELECT entry FROM citation_metrics WHERE cache_key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get %s: %w", key, err)
	}

	entry, err := decodeEntry([]byte(data))
	if err != nil {
		return nil, err
	}

	now := c.opts.Now()
	if entry.Expired(now) {
		// The expires_at guard keeps a concurrent refresh alive.
		_, _ = c.db.ExecContext(ctx,
			`DELETE FROM citation_metrics WHERE cache_key = ? AND expires_at <= ?`, key, now.UnixNano())
		return nil, domain.ErrCacheMiss
	}
	return entry.Metrics, nil
}

// Put implements MetricCache.
func (c *SQLiteCache) Put(ctx context.Context, key string, metrics *domain.Metrics) error {
	key, err := Key(key)
	if err != nil {
		return err
	}

	entry, err := newEntry(metrics, c.opts.Now(), c.opts.TTL)
	if err != nil {
		return err
	}
	data, err := encodeEntry(entry)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO citation_metrics (cache_key, entry, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			entry = excluded.entry,
			expires_at = excluded.expires_at`,
		key, string(data), entry.ExpiresAt.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite put %s: %w", key, err)
	}
	return nil
}

// Purge implements MetricCache.
func (c *SQLiteCache) Purge(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM citation_metrics WHERE expires_at <= ?`, c.opts.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite purge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite purge: %w", err)
	}
	return int(n), nil
}

// Stats implements MetricCache.
func (c *SQLiteCache) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Backend: "sqlite", TTL: c.opts.TTL}
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN expires_at > ? THEN 1 ELSE 0 END), 0)
		FROM citation_metrics`, c.opts.Now().UnixNano()).Scan(&stats.Total, &stats.Valid)
	if err != nil {
		return Stats{}, fmt.Errorf("sqlite stats: %w", err)
	}
	stats.Expired = stats.Total - stats.Valid
	return stats, nil
}

// Ping implements MetricCache.
func (c *SQLiteCache) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
