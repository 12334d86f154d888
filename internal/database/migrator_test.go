package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMigrator_Validation(t *testing.T) {
	logger := zerolog.Nop()
	file := filepath.Join(t.TempDir(), "001.up.sql")
	require.NoError(t, os.WriteFile(file, []byte("SELECT 1;"), 0o600))

	tests := []struct {
		name    string
		build   func() (*Migrator, error)
		wantErr string
	}{
		{"nil database", func() (*Migrator, error) { return NewMigrator(nil, "/some/path", logger) }, "database pool is required"},
		{"nil pool", func() (*Migrator, error) { return NewMigrator(&DB{}, "/some/path", logger) }, "database pool is required"},
		{"nil sql handle", func() (*Migrator, error) { return NewMigratorFromSQL(nil, "/some/path", logger) }, "database handle is required"},
		{"empty path", func() (*Migrator, error) { return NewMigratorFromSQL(&sql.DB{}, "", logger) }, "migrations path is required"},
		{"missing path", func() (*Migrator, error) {
			return NewMigratorFromSQL(&sql.DB{}, filepath.Join(t.TempDir(), "absent"), logger)
		}, "migrations path"},
		{"path is a file", func() (*Migrator, error) { return NewMigratorFromSQL(&sql.DB{}, file, logger) }, "is not a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			migrator, err := tt.build()
			require.Error(t, err)
			assert.Nil(t, migrator)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMigrationsDirectory(t *testing.T) {
	path := getMigrationsPath(t)

	up, err := filepath.Glob(filepath.Join(path, "*.up.sql"))
	require.NoError(t, err)
	down, err := filepath.Glob(filepath.Join(path, "*.down.sql"))
	require.NoError(t, err)

	require.NotEmpty(t, up)
	assert.Len(t, down, len(up), "every up migration needs a down migration")

	schema, err := os.ReadFile(up[0])
	require.NoError(t, err)
	assert.Contains(t, string(schema), "citation_metrics")
}

func getMigrationsPath(t *testing.T) string {
	t.Helper()

	cwd, err := os.Getwd()
	require.NoError(t, err)

	// internal/database -> internal -> project root
	migrationsPath := filepath.Join(cwd, "..", "..", "migrations")
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		t.Skipf("Skipping test: migrations directory not found at %s", migrationsPath)
	}

	return migrationsPath
}
