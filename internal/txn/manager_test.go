package txn_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dot-do/neo4j-sub002/cypher"
	"github.com/dot-do/neo4j-sub002/internal/engine"
	"github.com/dot-do/neo4j-sub002/internal/schema"
	"github.com/dot-do/neo4j-sub002/internal/store"
	"github.com/dot-do/neo4j-sub002/internal/txn"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "txn-test.db")
	s, err := store.Open(ctx, path, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	mgr, err := schema.NewManager(s.DB(), zap.NewNop().Sugar(), schema.DefaultMigrations())
	require.NoError(t, err)
	_, err = mgr.RunMigrations(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SeedIDGenerators(ctx))
	return s
}

func TestTxn_CommitFlushesWorkBuffer(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := txn.NewManager(s, zap.NewNop().Sugar(), time.Minute)

	txID, err := m.Begin(ctx)
	require.NoError(t, err)

	view, err := m.View(txID)
	require.NoError(t, err)

	q, err := cypher.Parse(`CREATE (n:Person {name: "Alice"})`)
	require.NoError(t, err)
	_, err = engine.Execute(ctx, view, q, nil)
	require.NoError(t, err)

	count, err := s.CountNodes(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), count, "writes must not reach the store before commit")

	require.NoError(t, m.Commit(ctx, txID))

	count, err = s.CountNodes(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestTxn_RollbackDiscardsWorkBuffer(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := txn.NewManager(s, zap.NewNop().Sugar(), time.Minute)

	txID, err := m.Begin(ctx)
	require.NoError(t, err)
	view, err := m.View(txID)
	require.NoError(t, err)

	q, err := cypher.Parse(`CREATE (n:Person {name: "Alice"})`)
	require.NoError(t, err)
	_, err = engine.Execute(ctx, view, q, nil)
	require.NoError(t, err)

	require.NoError(t, m.Rollback(txID))

	count, err := s.CountNodes(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
}

func TestTxn_ViewSeesOwnUncommittedWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := txn.NewManager(s, zap.NewNop().Sugar(), time.Minute)

	txID, err := m.Begin(ctx)
	require.NoError(t, err)
	view, err := m.View(txID)
	require.NoError(t, err)

	create, err := cypher.Parse(`CREATE (n:Person {name: "Alice"})`)
	require.NoError(t, err)
	_, err = engine.Execute(ctx, view, create, nil)
	require.NoError(t, err)

	match, err := cypher.Parse(`MATCH (n:Person) RETURN n.name AS name`)
	require.NoError(t, err)
	result, err := engine.Execute(ctx, view, match, nil)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Equal(t, "Alice", result.Rows[0][0].Str)
}

func TestTxn_CommitUnknownTransactionFails(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := txn.NewManager(s, zap.NewNop().Sugar(), time.Minute)
	err := m.Commit(ctx, "does-not-exist")
	require.Error(t, err)
}

func TestTxn_DoubleCommitFails(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := txn.NewManager(s, zap.NewNop().Sugar(), time.Minute)

	txID, err := m.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Commit(ctx, txID))
	require.Error(t, m.Commit(ctx, txID))
}

func TestTxn_IsActiveReflectsLazyExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := txn.NewManager(s, zap.NewNop().Sugar(), time.Millisecond)

	txID, err := m.Begin(ctx)
	require.NoError(t, err)
	require.True(t, m.IsActive(txID))

	time.Sleep(5 * time.Millisecond)
	require.False(t, m.IsActive(txID))
}

func TestTxn_CleanupExpiredRemovesIdleTransactions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := txn.NewManager(s, zap.NewNop().Sugar(), time.Millisecond)

	_, err := m.Begin(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, m.OpenCount())

	removed := m.CleanupExpired(time.Now().Add(time.Hour))
	require.Equal(t, 1, removed)
	require.Equal(t, 0, m.OpenCount())
}
