// Package schema implements the ordered, versioned migration manager (L1):
// version tracking, forward/rollback, and schema validation against the
// row store's metadata.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Migration is one forward/backward schema step. Down may be nil; a
// migration without a Down cannot be rolled back (§4.4).
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, db *sql.DB) error
	Down        func(ctx context.Context, db *sql.DB) error
}

// HistoryEntry is one row of the applied-migration history.
type HistoryEntry struct {
	Version     int
	Description string
	AppliedAt   time.Time
}

// ValidationResult is the outcome of ValidateSchema.
type ValidationResult struct {
	Valid          bool
	MissingTables  []string
	MissingIndexes []string
	Errors         []string
}

var requiredTables = []string{"nodes", "relationships", "schema_version"}

var requiredIndexes = []string{
	"idx_nodes_labels",
	"idx_relationships_start",
	"idx_relationships_end",
	"idx_relationships_type",
}

// Manager owns a static, ordered migration list and applies it against a
// *sql.DB.
type Manager struct {
	db         *sql.DB
	log        *zap.SugaredLogger
	migrations []Migration
}

// NewManager validates the migration list (versions start at 1, strictly
// sequential, no duplicates) and returns a Manager, or an error.
func NewManager(db *sql.DB, log *zap.SugaredLogger, migrations []Migration) (*Manager, error) {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for i, m := range sorted {
		want := i + 1
		if m.Version != want {
			return nil, fmt.Errorf("schema: migration versions must be sequential starting at 1, got %d at position %d", m.Version, i)
		}
	}
	return &Manager{db: db, log: log, migrations: sorted}, nil
}

// GetCurrentVersion reads the highest applied version from schema_version,
// or 0 if the table does not exist yet or holds no rows.
func (m *Manager) GetCurrentVersion(ctx context.Context) (int, error) {
	exists, err := m.tableExists(ctx, "schema_version")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	var version sql.NullInt64
	err = m.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("schema: read current version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

// GetLatestVersion returns the highest declared migration version.
func (m *Manager) GetLatestVersion() int {
	if len(m.migrations) == 0 {
		return 0
	}
	return m.migrations[len(m.migrations)-1].Version
}

// NeedsMigration reports whether the current version trails the latest
// declared version.
func (m *Manager) NeedsMigration(ctx context.Context) (bool, error) {
	current, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return false, err
	}
	return current < m.GetLatestVersion(), nil
}

// RunMigrations applies every migration with version > current, in
// ascending order, each inside its own atomic unit. It returns the count
// applied and aborts on the first failure, leaving already-applied
// migrations committed.
func (m *Manager) RunMigrations(ctx context.Context) (int, error) {
	current, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, mig := range m.migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.RunMigration(ctx, mig); err != nil {
			return applied, fmt.Errorf("schema: migration %d (%s): %w", mig.Version, mig.Description, err)
		}
		applied++
	}
	if m.log != nil {
		m.log.Infow("migrations applied", "count", applied)
	}
	return applied, nil
}

// RunMigration applies a single migration and then records its history row
// in a transaction of its own: the stored version only advances if Up
// succeeds.
func (m *Manager) RunMigration(ctx context.Context, mig Migration) error {
	if err := runMigrationDDL(ctx, m.db, mig.Up); err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("schema: begin migration tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	if err := m.recordHistory(ctx, tx, mig.Version, mig.Description); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("schema: commit migration: %w", err)
	}
	return nil
}

// runMigrationDDL runs fn against the raw *sql.DB. SQLite DDL statements
// each auto-commit in their own implicit transaction, so migrations are run
// directly against db, before the bookkeeping tx is opened; the
// bookkeeping tx only protects the history insert.
func runMigrationDDL(ctx context.Context, db *sql.DB, fn func(ctx context.Context, db *sql.DB) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, db)
}

func (m *Manager) recordHistory(ctx context.Context, tx *sql.Tx, version int, description string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, description, applied_at) VALUES (?, ?, ?)`,
		version, description, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("schema: record history: %w", err)
	}
	return nil
}

// Rollback applies Down for every migration with version in (target,
// current], in descending order. If any migration in that range has no
// Down, the operation fails before any side effect.
func (m *Manager) Rollback(ctx context.Context, target int) error {
	current, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return err
	}
	if target > current {
		return fmt.Errorf("schema: rollback target %d must be <= current version %d", target, current)
	}

	var toRollback []Migration
	for _, mig := range m.migrations {
		if mig.Version > target && mig.Version <= current {
			toRollback = append(toRollback, mig)
		}
	}
	for _, mig := range toRollback {
		if mig.Down == nil {
			return fmt.Errorf("schema: migration %d (%s) has no Down step; rollback aborted before any change", mig.Version, mig.Description)
		}
	}

	sort.Slice(toRollback, func(i, j int) bool { return toRollback[i].Version > toRollback[j].Version })
	for _, mig := range toRollback {
		if err := mig.Down(ctx, m.db); err != nil {
			return fmt.Errorf("schema: rollback migration %d: %w", mig.Version, err)
		}
		if _, err := m.db.ExecContext(ctx, `DELETE FROM schema_version WHERE version = ?`, mig.Version); err != nil {
			return fmt.Errorf("schema: remove history for migration %d: %w", mig.Version, err)
		}
	}
	return nil
}

// ValidateSchema checks that the required tables and indexes exist.
func (m *Manager) ValidateSchema(ctx context.Context) (ValidationResult, error) {
	result := ValidationResult{Valid: true}

	for _, table := range requiredTables {
		ok, err := m.tableExists(ctx, table)
		if err != nil {
			return result, err
		}
		if !ok {
			result.Valid = false
			result.MissingTables = append(result.MissingTables, table)
		}
	}

	for _, index := range requiredIndexes {
		ok, err := m.indexExists(ctx, index)
		if err != nil {
			return result, err
		}
		if !ok {
			result.Valid = false
			result.MissingIndexes = append(result.MissingIndexes, index)
		}
	}

	return result, nil
}

// GetMigrationHistory returns applied migrations in ascending version
// order. An absent schema_version table yields an empty list, not an error.
func (m *Manager) GetMigrationHistory(ctx context.Context) ([]HistoryEntry, error) {
	exists, err := m.tableExists(ctx, "schema_version")
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	rows, err := m.db.QueryContext(ctx, `SELECT version, description, applied_at FROM schema_version ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("schema: read history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			version     int
			description string
			appliedAt   string
		)
		if err := rows.Scan(&version, &description, &appliedAt); err != nil {
			return nil, fmt.Errorf("schema: scan history row: %w", err)
		}
		t, _ := time.Parse(time.RFC3339Nano, appliedAt)
		out = append(out, HistoryEntry{Version: version, Description: description, AppliedAt: t})
	}
	return out, rows.Err()
}

func (m *Manager) tableExists(ctx context.Context, name string) (bool, error) {
	var found string
	err := m.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("schema: check table %s: %w", name, err)
	}
	return true, nil
}

func (m *Manager) indexExists(ctx context.Context, name string) (bool, error) {
	var found string
	err := m.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("schema: check index %s: %w", name, err)
	}
	return true, nil
}
