package schema_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dot-do/neo4j-sub002/internal/schema"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema-test.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestManager_RunMigrationsFromEmpty(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	m, err := schema.NewManager(db, nil, schema.DefaultMigrations())
	require.NoError(t, err)

	current, err := m.GetCurrentVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, current)

	applied, err := m.RunMigrations(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, applied)

	current, err = m.GetCurrentVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, current)
}

func TestManager_RunMigrationsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	m, err := schema.NewManager(db, nil, schema.DefaultMigrations())
	require.NoError(t, err)

	_, err = m.RunMigrations(ctx)
	require.NoError(t, err)

	applied, err := m.RunMigrations(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, applied)
}

func TestManager_ValidateSchema(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	m, err := schema.NewManager(db, nil, schema.DefaultMigrations())
	require.NoError(t, err)

	result, err := m.ValidateSchema(ctx)
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Contains(t, result.MissingTables, "nodes")

	_, err = m.RunMigrations(ctx)
	require.NoError(t, err)

	result, err = m.ValidateSchema(ctx)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Empty(t, result.MissingTables)
	require.Empty(t, result.MissingIndexes)
}

func TestManager_RollbackRequiresDown(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	noDown := []schema.Migration{
		{Version: 1, Description: "irreversible", Up: func(ctx context.Context, db *sql.DB) error {
			_, err := db.ExecContext(ctx, `CREATE TABLE schema_version (version INTEGER PRIMARY KEY, description TEXT NOT NULL, applied_at TEXT NOT NULL)`)
			return err
		}},
	}
	m, err := schema.NewManager(db, nil, noDown)
	require.NoError(t, err)

	_, err = m.RunMigrations(ctx)
	require.NoError(t, err)

	err = m.Rollback(ctx, 0)
	require.Error(t, err)
}

func TestManager_RollbackAndHistory(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	m, err := schema.NewManager(db, nil, schema.DefaultMigrations())
	require.NoError(t, err)

	_, err = m.RunMigrations(ctx)
	require.NoError(t, err)

	history, err := m.GetMigrationHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, 1, history[0].Version)

	require.NoError(t, m.Rollback(ctx, 0))

	current, err := m.GetCurrentVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, current)
}

func TestManager_RejectsNonSequentialVersions(t *testing.T) {
	db := openTestDB(t)
	bad := []schema.Migration{
		{Version: 1, Description: "first"},
		{Version: 3, Description: "skips two"},
	}
	_, err := schema.NewManager(db, nil, bad)
	require.Error(t, err)
}
