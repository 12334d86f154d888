package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// MigrationsTable is the bookkeeping table used by golang-migrate.
const MigrationsTable = "cache_schema_migrations"

// Migrator applies the cache schema in migrations/.
type Migrator struct {
	migrate *migrate.Migrate
	sqlDB   *sql.DB
	ownsDB  bool
	logger  zerolog.Logger
}

// SchemaVersion is the applied migration state.
type SchemaVersion struct {
	Version uint
	Dirty   bool
	// None is set when no migration has been applied yet.
	None bool
}

// NewMigrator creates a migrator over the cache pool.
func NewMigrator(db *DB, migrationsPath string, logger zerolog.Logger) (*Migrator, error) {
	if db == nil || db.Pool == nil {
		return nil, errors.New("database pool is required")
	}
	if err := checkMigrationsPath(migrationsPath); err != nil {
		return nil, err
	}
	return newMigrator(stdlib.OpenDBFromPool(db.Pool), true, migrationsPath, logger)
}

// NewMigratorFromSQL creates a migrator over a database/sql handle, such as
// one opened with the lib/pq driver. The handle stays open after Close.
func NewMigratorFromSQL(sqlDB *sql.DB, migrationsPath string, logger zerolog.Logger) (*Migrator, error) {
	if sqlDB == nil {
		return nil, errors.New("database handle is required")
	}
	if err := checkMigrationsPath(migrationsPath); err != nil {
		return nil, err
	}
	return newMigrator(sqlDB, false, migrationsPath, logger)
}

func checkMigrationsPath(path string) error {
	if path == "" {
		return errors.New("migrations path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("migrations path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("migrations path %s is not a directory", path)
	}
	return nil
}

func newMigrator(sqlDB *sql.DB, owns bool, migrationsPath string, logger zerolog.Logger) (*Migrator, error) {
	fail := func(err error) (*Migrator, error) {
		if owns {
			_ = sqlDB.Close()
		}
		return nil, err
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		return fail(fmt.Errorf("create postgres migration driver: %w", err))
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fail(fmt.Errorf("create migrator: %w", err))
	}

	return &Migrator{
		migrate: m,
		sqlDB:   sqlDB,
		ownsDB:  owns,
		logger:  logger.With().Str("component", "migrator").Logger(),
	}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up() error {
	return m.run("up", m.migrate.Up)
}

// Down reverts every migration.
func (m *Migrator) Down() error {
	return m.run("down", m.migrate.Down)
}

// Steps applies n migrations, reverting when n is negative.
func (m *Migrator) Steps(n int) error {
	return m.run(fmt.Sprintf("steps %d", n), func() error { return m.migrate.Steps(n) })
}

// Force records version as applied without running anything. It clears the
// dirty flag left by a failed migration.
func (m *Migrator) Force(version int) error {
	m.logger.Warn().Int("version", version).Msg("forcing schema version")
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force schema version %d: %w", version, err)
	}
	return nil
}

// run treats "nothing to do" as success.
func (m *Migrator) run(name string, fn func() error) error {
	err := fn()
	switch {
	case err == nil:
		m.logger.Info().Str("action", name).Msg("cache schema migrated")
		return nil
	case errors.Is(err, migrate.ErrNoChange), errors.Is(err, os.ErrNotExist):
		m.logger.Info().Str("action", name).Msg("cache schema already current")
		return nil
	default:
		return fmt.Errorf("migrate %s: %w", name, err)
	}
}

// Version reports the applied schema version.
func (m *Migrator) Version() (SchemaVersion, error) {
	v, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return SchemaVersion{None: true}, nil
	}
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("read schema version: %w", err)
	}
	return SchemaVersion{Version: v, Dirty: dirty}, nil
}

// Close releases the migration source and, when the migrator opened it, the
// database handle.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if m.ownsDB {
		if err := m.sqlDB.Close(); err != nil && dbErr == nil {
			dbErr = err
		}
	}
	return errors.Join(sourceErr, dbErr)
}
