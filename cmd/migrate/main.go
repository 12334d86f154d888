// Package main applies the postgres cache schema migrations.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/helixir/citation-graph-service/internal/config"
	"github.com/helixir/citation-graph-service/internal/database"
	"github.com/helixir/citation-graph-service/internal/observability"
)

// connectTimeout bounds the initial database ping.
const connectTimeout = 30 * time.Second

type actionKind int

const (
	actionUp actionKind = iota + 1
	actionDown
	actionSteps
	actionVersion
	actionForce
)

// action is the single operation requested on the command line.
type action struct {
	kind    actionKind
	steps   int
	version int
}

type options struct {
	action         action
	configPath     string
	migrationsPath string
}

var errNoAction = errors.New("specify one of -up, -down, -steps N, -version, -force V")

// parseArgs parses the command line. Exactly one action flag is required.
func parseArgs(args []string, output io.Writer) (options, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(output)
	up := fs.Bool("up", false, "apply all pending migrations")
	down := fs.Bool("down", false, "revert all migrations")
	steps := fs.Int("steps", 0, "apply N migrations (negative reverts)")
	version := fs.Bool("version", false, "print the applied schema version")
	force := fs.Int("force", -1, "record version V as applied, clearing a dirty state")

	var opts options
	fs.StringVar(&opts.migrationsPath, "path", "", "migrations directory (default: database.migration_path)")
	fs.StringVar(&opts.configPath, "config", "", "config file (default: ./config.yaml)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	var chosen []action
	if *up {
		chosen = append(chosen, action{kind: actionUp})
	}
	if *down {
		chosen = append(chosen, action{kind: actionDown})
	}
	if *steps != 0 {
		chosen = append(chosen, action{kind: actionSteps, steps: *steps})
	}
	if *version {
		chosen = append(chosen, action{kind: actionVersion})
	}
	if *force >= 0 {
		chosen = append(chosen, action{kind: actionForce, version: *force})
	}

	switch len(chosen) {
	case 0:
		return options{}, errNoAction
	case 1:
		opts.action = chosen[0]
		return opts, nil
	default:
		return options{}, fmt.Errorf("specify only one action at a time, got %d", len(chosen))
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseArgs(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	})
	logger = logger.With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if opts.migrationsPath != "" {
		migrationDir = opts.migrationsPath
	}

	// statement_cache_capacity is a pgx setting that postgres itself rejects.
	dbCfg := cfg.Database
	dbCfg.StatementCacheCapacity = 0
	sqlDB, err := sql.Open("postgres", dbCfg.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	migrator, err := database.NewMigratorFromSQL(sqlDB, migrationDir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	switch opts.action.kind {
	case actionUp:
		err = migrator.Up()
	case actionDown:
		err = migrator.Down()
	case actionSteps:
		err = migrator.Steps(opts.action.steps)
	case actionForce:
		err = migrator.Force(opts.action.version)
	}
	if err != nil {
		return err
	}

	v, err := migrator.Version()
	if err != nil {
		return err
	}
	event := logger.Info().Str("path", migrationDir)
	if v.None {
		event.Msg("no cache schema migrations applied")
		return nil
	}
	event.Uint("version", v.Version).Bool("dirty", v.Dirty).Msg("cache schema version")
	return nil
}
