package cache

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/citation-graph-service/internal/config"
	"github.com/helixir/citation-graph-service/internal/database"
)

// Open returns the backend selected by cfg.Cache.Backend. For the postgres
// backend it connects the pool and, when configured, applies migrations.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (MetricCache, error) {
	opts := Options{TTL: cfg.Cache.TTL()}

	switch cfg.Cache.Backend {
	case config.CacheBackendBadger:
		return OpenBadger(BadgerConfig{
			Path:           cfg.Cache.Path,
			SyncWrites:     cfg.Cache.SyncWrites,
			GCInterval:     cfg.Cache.GCInterval,
			GCDiscardRatio: cfg.Cache.GCDiscardRatio,
		}, opts, logger)

	case config.CacheBackendSQLite:
		return OpenSQLite(cfg.Cache.SQLitePath, opts)

	case config.CacheBackendPostgres:
		db, err := database.New(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("connect cache database: %w", err)
		}
		if cfg.Database.MigrationAutoRun {
			if err := migrate(db, cfg.Database.MigrationPath, logger); err != nil {
				db.Close()
				return nil, err
			}
		}
		return NewPostgresCache(db, opts, db.Close), nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func migrate(db *database.DB, path string, logger zerolog.Logger) error {
	migrator, err := database.NewMigrator(db, path, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("migrate cache schema: %w", err)
	}
	return nil
}
