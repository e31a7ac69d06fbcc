// Package store implements the embedded row store (L0): the `nodes`,
// `relationships` and `schema_version` tables, backed by a pure-Go SQLite
// engine, plus the monotonic id generators the rest of the system draws
// from.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
	"go.uber.org/zap"
)

// NodeRow is a persisted node as described in spec §3.
type NodeRow struct {
	ID         int64
	Labels     []string
	Properties map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RelationshipRow is a persisted relationship as described in spec §3.
type RelationshipRow struct {
	ID          int64
	Type        string
	StartNodeID int64
	EndNodeID   int64
	Properties  map[string]any
	CreatedAt   time.Time
}

// Store owns the SQLite connection and the node/relationship id
// generators. All caller-supplied data (labels, property JSON, ids,
// relationship types) is passed through positional parameters — the store
// never interpolates caller data into SQL text.
type Store struct {
	db     *sql.DB
	log    *zap.SugaredLogger
	nextNode atomic.Int64
	nextRel  atomic.Int64
}

// Open opens (creating if necessary) the SQLite database at path. It does
// not seed the id generators; SeedIDGenerators does that once the schema
// is in place.
func Open(ctx context.Context, path string, log *zap.SugaredLogger) (*Store, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid SQLITE_BUSY churn

	s := &Store{db: db, log: log}
	return s, nil
}

// DB exposes the underlying *sql.DB for the schema manager, which needs
// direct DDL access that the row-level helpers below do not provide.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SeedIDGenerators primes the node/relationship id counters from the
// current MAX(id) in each table. Must run once after the schema is
// up to date and before any transaction begins allocating ids.
func (s *Store) SeedIDGenerators(ctx context.Context) error {
	nodeMax, err := s.maxID(ctx, "nodes")
	if err != nil {
		return err
	}
	relMax, err := s.maxID(ctx, "relationships")
	if err != nil {
		return err
	}
	s.nextNode.Store(nodeMax + 1)
	s.nextRel.Store(relMax + 1)
	return nil
}

func (s *Store) maxID(ctx context.Context, table string) (int64, error) {
	var max sql.NullInt64
	query := fmt.Sprintf("SELECT MAX(id) FROM %s", sqlIdent(table)) //nolint:gosec // table is one of a fixed internal set, never caller input
	if err := s.db.QueryRowContext(ctx, query).Scan(&max); err != nil {
		return 0, fmt.Errorf("store: max id from %s: %w", table, err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

// sqlIdent is a defensive allow-list for the handful of table names the
// store ever formats into DDL/metadata queries; it never touches caller
// data (see the SQL injection remediation note in spec §9).
func sqlIdent(name string) string {
	switch name {
	case "nodes", "relationships", "schema_version":
		return name
	default:
		panic("store: unknown table identifier " + name)
	}
}

// NextNodeID atomically allocates the next node id. Safe for concurrent
// callers across open transactions (spec §9).
func (s *Store) NextNodeID() int64 {
	return s.nextNode.Add(1) - 1
}

// NextRelationshipID atomically allocates the next relationship id.
func (s *Store) NextRelationshipID() int64 {
	return s.nextRel.Add(1) - 1
}

// InsertNode persists a node row using positional parameters.
func (s *Store) InsertNode(ctx context.Context, row NodeRow) error {
	labelsJSON, err := json.Marshal(row.Labels)
	if err != nil {
		return fmt.Errorf("store: marshal labels: %w", err)
	}
	propsJSON, err := json.Marshal(row.Properties)
	if err != nil {
		return fmt.Errorf("store: marshal properties: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO nodes (id, labels, properties, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		row.ID, string(labelsJSON), string(propsJSON), row.CreatedAt.UTC().Format(time.RFC3339Nano), row.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: insert node: %w", err)
	}
	return nil
}

// InsertRelationship persists a relationship row using positional
// parameters. Both endpoints must already exist; only the v1 FK constraint
// enforces this, the engine does not check it beforehand.
func (s *Store) InsertRelationship(ctx context.Context, row RelationshipRow) error {
	propsJSON, err := json.Marshal(row.Properties)
	if err != nil {
		return fmt.Errorf("store: marshal properties: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO relationships (id, type, start_node_id, end_node_id, properties, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		row.ID, row.Type, row.StartNodeID, row.EndNodeID, string(propsJSON), row.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: insert relationship: %w", err)
	}
	return nil
}

// DeleteNode removes a node row by id.
func (s *Store) DeleteNode(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete node: %w", err)
	}
	return nil
}

// DeleteRelationship removes a relationship row by id.
func (s *Store) DeleteRelationship(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM relationships WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete relationship: %w", err)
	}
	return nil
}

// GetNode fetches one committed node row, or (nil, nil) if absent.
func (s *Store) GetNode(ctx context.Context, id int64) (*NodeRow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, labels, properties, created_at, updated_at FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get node: %w", err)
	}
	return n, nil
}

// AllNodes returns every committed node row, in ascending id order (the
// store's natural order, per spec §4.3 "Determinism and ordering").
func (s *Store) AllNodes(ctx context.Context) ([]NodeRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, labels, properties, created_at, updated_at FROM nodes ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: query nodes: %w", err)
	}
	defer rows.Close()
	var out []NodeRow
	for rows.Next() {
		n, err := scanNodeRows(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan node: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// RelationshipsByNode returns every committed relationship incident on
// nodeID in the given direction ("start", "end" or "" for either).
func (s *Store) RelationshipsByNode(ctx context.Context, nodeID int64, side string) ([]RelationshipRow, error) {
	var query string
	switch side {
	case "start":
		query = `SELECT id, type, start_node_id, end_node_id, properties, created_at FROM relationships WHERE start_node_id = ? ORDER BY id ASC`
	case "end":
		query = `SELECT id, type, start_node_id, end_node_id, properties, created_at FROM relationships WHERE end_node_id = ? ORDER BY id ASC`
	default:
		query = `SELECT id, type, start_node_id, end_node_id, properties, created_at FROM relationships WHERE start_node_id = ? OR end_node_id = ? ORDER BY id ASC`
	}
	var rows *sql.Rows
	var err error
	if side == "start" || side == "end" {
		rows, err = s.db.QueryContext(ctx, query, nodeID)
	} else {
		rows, err = s.db.QueryContext(ctx, query, nodeID, nodeID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: query relationships: %w", err)
	}
	defer rows.Close()
	var out []RelationshipRow
	for rows.Next() {
		r, err := scanRelRows(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan relationship: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// CountNodes returns the committed node count.
func (s *Store) CountNodes(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&n)
	return n, err
}

// CountRelationships returns the committed relationship count.
func (s *Store) CountRelationships(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM relationships`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*NodeRow, error) {
	var (
		id                    int64
		labelsJSON, propsJSON string
		createdAt, updatedAt  string
	)
	if err := row.Scan(&id, &labelsJSON, &propsJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return decodeNode(id, labelsJSON, propsJSON, createdAt, updatedAt)
}

func scanNodeRows(rows *sql.Rows) (*NodeRow, error) {
	return scanNode(rows)
}

func decodeNode(id int64, labelsJSON, propsJSON, createdAt, updatedAt string) (*NodeRow, error) {
	var labels []string
	if err := json.Unmarshal([]byte(labelsJSON), &labels); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}
	props, err := decodePropertiesJSON(propsJSON)
	if err != nil {
		return nil, err
	}
	createdT, _ := time.Parse(time.RFC3339Nano, createdAt)
	updatedT, _ := time.Parse(time.RFC3339Nano, updatedAt)
	return &NodeRow{ID: id, Labels: labels, Properties: props, CreatedAt: createdT, UpdatedAt: updatedT}, nil
}

func scanRelRows(rows *sql.Rows) (*RelationshipRow, error) {
	var (
		id, start, end int64
		typ, propsJSON string
		createdAt      string
	)
	if err := rows.Scan(&id, &typ, &start, &end, &propsJSON, &createdAt); err != nil {
		return nil, err
	}
	props, err := decodePropertiesJSON(propsJSON)
	if err != nil {
		return nil, err
	}
	createdT, _ := time.Parse(time.RFC3339Nano, createdAt)
	return &RelationshipRow{ID: id, Type: typ, StartNodeID: start, EndNodeID: end, Properties: props, CreatedAt: createdT}, nil
}

// decodePropertiesJSON unmarshals a property blob with json.Number decoding
// so integer-valued properties survive the round trip as int64 rather than
// collapsing to float64 the way encoding/json's default interface{} decode
// would (Cypher distinguishes INTEGER and FLOAT).
func decodePropertiesJSON(raw string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var props map[string]any
	if err := dec.Decode(&props); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	for k, v := range props {
		props[k] = normalizeJSONNumber(v)
	}
	return props, nil
}

func normalizeJSONNumber(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeJSONNumber(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalizeJSONNumber(val)
		}
		return t
	default:
		return v
	}
}
