package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// DefaultMigrations returns the built-in migration set: today just v1, the
// baseline schema from spec §4.4. Callers that need to extend the schema
// append further versions before passing the slice to NewManager.
func DefaultMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "create nodes, relationships and schema_version tables with required indexes",
			Up:          migrateV1Up,
			Down:        migrateV1Down,
		},
	}
}

func migrateV1Up(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS nodes (
			id         INTEGER PRIMARY KEY,
			labels     TEXT NOT NULL,
			properties TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			id            INTEGER PRIMARY KEY,
			type          TEXT NOT NULL,
			start_node_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			end_node_id   INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			properties    TEXT NOT NULL,
			created_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_labels ON nodes(labels)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_start ON relationships(start_node_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_end ON relationships(end_node_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_type ON relationships(type)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration 1: %w", err)
		}
	}
	return nil
}

func migrateV1Down(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`DROP INDEX IF EXISTS idx_relationships_type`,
		`DROP INDEX IF EXISTS idx_relationships_end`,
		`DROP INDEX IF EXISTS idx_relationships_start`,
		`DROP INDEX IF EXISTS idx_nodes_labels`,
		`DROP TABLE IF EXISTS relationships`,
		`DROP TABLE IF EXISTS nodes`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration 1 rollback: %w", err)
		}
	}
	return nil
}
