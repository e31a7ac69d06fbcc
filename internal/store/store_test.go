package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dot-do/neo4j-sub002/internal/store"
)

const testDDL = `
CREATE TABLE nodes (
	id INTEGER PRIMARY KEY,
	labels TEXT NOT NULL,
	properties TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE relationships (
	id INTEGER PRIMARY KEY,
	type TEXT NOT NULL,
	start_node_id INTEGER NOT NULL,
	end_node_id INTEGER NOT NULL,
	properties TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(ctx, path, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	_, err = s.DB().ExecContext(ctx, testDDL)
	require.NoError(t, err)
	require.NoError(t, s.SeedIDGenerators(ctx))
	return s
}

func TestStore_InsertAndGetNode(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id := s.NextNodeID()
	now := time.Now()
	err := s.InsertNode(ctx, store.NodeRow{
		ID:         id,
		Labels:     []string{"Person"},
		Properties: map[string]any{"name": "Alice", "age": float64(30)},
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	require.NoError(t, err)

	got, err := s.GetNode(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, []string{"Person"}, got.Labels)
	require.Equal(t, "Alice", got.Properties["name"])
}

func TestStore_NodeIDsAreMonotonic(t *testing.T) {
	s := openTestStore(t)
	a := s.NextNodeID()
	b := s.NextNodeID()
	require.Less(t, a, b)
}

func TestStore_InsertRelationshipAndLookup(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	now := time.Now()

	aID := s.NextNodeID()
	require.NoError(t, s.InsertNode(ctx, store.NodeRow{ID: aID, Labels: []string{"Person"}, Properties: map[string]any{}, CreatedAt: now, UpdatedAt: now}))
	bID := s.NextNodeID()
	require.NoError(t, s.InsertNode(ctx, store.NodeRow{ID: bID, Labels: []string{"Person"}, Properties: map[string]any{}, CreatedAt: now, UpdatedAt: now}))

	relID := s.NextRelationshipID()
	require.NoError(t, s.InsertRelationship(ctx, store.RelationshipRow{
		ID: relID, Type: "KNOWS", StartNodeID: aID, EndNodeID: bID, Properties: map[string]any{}, CreatedAt: now,
	}))

	rels, err := s.RelationshipsByNode(ctx, aID, "start")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	require.Equal(t, "KNOWS", rels[0].Type)

	rels, err = s.RelationshipsByNode(ctx, bID, "end")
	require.NoError(t, err)
	require.Len(t, rels, 1)
}

func TestStore_DeleteNode(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	now := time.Now()
	id := s.NextNodeID()
	require.NoError(t, s.InsertNode(ctx, store.NodeRow{ID: id, Labels: []string{}, Properties: map[string]any{}, CreatedAt: now, UpdatedAt: now}))

	require.NoError(t, s.DeleteNode(ctx, id))
	got, err := s.GetNode(ctx, id)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStore_CountsReflectMutations(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	now := time.Now()

	count, err := s.CountNodes(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)

	id := s.NextNodeID()
	require.NoError(t, s.InsertNode(ctx, store.NodeRow{ID: id, Labels: []string{}, Properties: map[string]any{}, CreatedAt: now, UpdatedAt: now}))

	count, err = s.CountNodes(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
