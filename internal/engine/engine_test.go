package engine_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dot-do/neo4j-sub002/cypher"
	"github.com/dot-do/neo4j-sub002/internal/engine"
	"github.com/dot-do/neo4j-sub002/internal/schema"
	"github.com/dot-do/neo4j-sub002/internal/store"
)

func newTestView(t *testing.T) *engine.StoreView {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "engine-test.db")
	s, err := store.Open(ctx, path, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	mgr, err := schema.NewManager(s.DB(), zap.NewNop().Sugar(), schema.DefaultMigrations())
	require.NoError(t, err)
	_, err = mgr.RunMigrations(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SeedIDGenerators(ctx))

	return engine.NewStoreView(s)
}

func run(t *testing.T, view *engine.StoreView, query string, params map[string]any) *engine.Result {
	t.Helper()
	q, err := cypher.Parse(query)
	require.NoError(t, err)
	result, err := engine.Execute(context.Background(), view, q, params)
	require.NoError(t, err)
	return result
}

func TestEngine_CreateAndReturnNode(t *testing.T) {
	view := newTestView(t)
	result := run(t, view, `CREATE (n:Person {name: "Alice", age: 30}) RETURN n`, nil)
	require.Len(t, result.Rows, 1)
	require.Equal(t, engine.KindNode, result.Rows[0][0].Kind)
	require.Equal(t, []string{"Person"}, result.Rows[0][0].Node.Labels)
}

func TestEngine_CreateRelationshipBetweenMatchedNodes(t *testing.T) {
	view := newTestView(t)
	run(t, view, `CREATE (a:Person {name: "Alice"})`, nil)
	run(t, view, `CREATE (b:Person {name: "Bob"})`, nil)

	result := run(t, view, `MATCH (a:Person {name: "Alice"}) MATCH (b:Person {name: "Bob"}) CREATE (a)-[:KNOWS]->(b) RETURN a, b`, nil)
	require.Len(t, result.Rows, 1)

	rels, err := view.AllRelationships(context.Background())
	require.NoError(t, err)
	require.Len(t, rels, 1)
	require.Equal(t, "KNOWS", rels[0].Type)
}

func TestEngine_MatchWithWhereFilter(t *testing.T) {
	view := newTestView(t)
	run(t, view, `CREATE (n:User {age: 17})`, nil)
	run(t, view, `CREATE (n:User {age: 25})`, nil)

	result := run(t, view, `MATCH (u:User) WHERE u.age > 18 RETURN u.age AS age`, nil)
	require.Len(t, result.Rows, 1)
	require.Equal(t, int64(25), result.Rows[0][0].Int)
}

func TestEngine_MatchRelationshipPattern(t *testing.T) {
	view := newTestView(t)
	run(t, view, `CREATE (a:Person {name: "Alice"})-[:KNOWS]->(b:Person {name: "Bob"})`, nil)

	result := run(t, view, `MATCH (a:Person)-[:KNOWS]->(b:Person) RETURN a.name AS from, b.name AS to`, nil)
	require.Len(t, result.Rows, 1)
	require.Equal(t, "Alice", result.Rows[0][0].Str)
	require.Equal(t, "Bob", result.Rows[0][1].Str)
}

func TestEngine_CountAggregate(t *testing.T) {
	view := newTestView(t)
	run(t, view, `CREATE (n:User {age: 1})`, nil)
	run(t, view, `CREATE (n:User {age: 2})`, nil)
	run(t, view, `CREATE (n:User {age: 3})`, nil)

	result := run(t, view, `MATCH (u:User) RETURN count(u)`, nil)
	require.Len(t, result.Rows, 1)
	require.Equal(t, int64(3), result.Rows[0][0].Int)
}

func TestEngine_OptionalMatchProducesNulls(t *testing.T) {
	view := newTestView(t)
	run(t, view, `CREATE (n:Person {name: "Alice"})`, nil)

	result := run(t, view, `MATCH (a:Person) OPTIONAL MATCH (a)-[:KNOWS]->(b) RETURN a.name AS name, b AS friend`, nil)
	require.Len(t, result.Rows, 1)
	require.Equal(t, "Alice", result.Rows[0][0].Str)
	require.Equal(t, engine.KindNull, result.Rows[0][1].Kind)
}

func TestEngine_ParameterSubstitution(t *testing.T) {
	view := newTestView(t)
	run(t, view, `CREATE (n:Item {price: $p})`, map[string]any{"p": int64(42)})

	result := run(t, view, `MATCH (i:Item) RETURN i.price AS price`, nil)
	require.Len(t, result.Rows, 1)
	require.Equal(t, int64(42), result.Rows[0][0].Int)
}

func TestEngine_MissingParameterIsAnError(t *testing.T) {
	view := newTestView(t)
	q, err := cypher.Parse(`CREATE (n:Item {price: $p})`)
	require.NoError(t, err)
	_, err = engine.Execute(context.Background(), view, q, nil)
	require.Error(t, err)
}

func TestEngine_CreateReportsWriteCounters(t *testing.T) {
	view := newTestView(t)
	result := run(t, view, `CREATE (n:Person {name: "Ada", age: 30}) RETURN n`, nil)
	require.Equal(t, 1, result.Counters.NodesCreated)
	require.Equal(t, 1, result.Counters.LabelsAdded)
	require.Equal(t, 2, result.Counters.PropertiesSet)
	require.Equal(t, 0, result.Counters.RelationshipsCreated)
}

func TestEngine_CreateRelationshipReportsWriteCounters(t *testing.T) {
	view := newTestView(t)
	result := run(t, view, `CREATE (a:Person {name: "Alice"})-[:KNOWS {since: 2020}]->(b:Person {name: "Bob"})`, nil)
	require.Equal(t, 2, result.Counters.NodesCreated)
	require.Equal(t, 2, result.Counters.LabelsAdded)
	require.Equal(t, 1, result.Counters.RelationshipsCreated)
	// 1 property on each node plus 1 on the relationship.
	require.Equal(t, 3, result.Counters.PropertiesSet)
}

func TestEngine_CreateReusingMatchedNodeDoesNotDoubleCount(t *testing.T) {
	view := newTestView(t)
	run(t, view, `CREATE (a:Person {name: "Alice"})`, nil)

	result := run(t, view, `MATCH (a:Person {name: "Alice"}) CREATE (a)-[:KNOWS]->(b:Person {name: "Bob"})`, nil)
	require.Equal(t, 1, result.Counters.NodesCreated)
	require.Equal(t, 1, result.Counters.LabelsAdded)
	require.Equal(t, 1, result.Counters.RelationshipsCreated)
}

func TestEngine_ReturnOfUndeclaredVariableIsSemanticError(t *testing.T) {
	view := newTestView(t)
	q, err := cypher.Parse(`MATCH (n:Nonexistent) RETURN bogus`)
	require.NoError(t, err)
	_, err = engine.Execute(context.Background(), view, q, nil)
	require.Error(t, err)
}

func TestEngine_FunctionCallBadArityIsSyntaxErrorNotPanic(t *testing.T) {
	view := newTestView(t)
	run(t, view, `CREATE (n:Person {name: "Alice"})`, nil)

	q, err := cypher.Parse(`MATCH (n:Person) RETURN id()`)
	require.NoError(t, err)
	require.NotPanics(t, func() {
		_, err = engine.Execute(context.Background(), view, q, nil)
	})
	require.Error(t, err)
}

func TestEngine_IdLabelsTypePropertiesFunctions(t *testing.T) {
	view := newTestView(t)
	run(t, view, `CREATE (a:Person:Admin {name: "Alice"})-[:KNOWS {since: 2020}]->(b:Person {name: "Bob"})`, nil)

	result := run(t, view, `MATCH (a:Person)-[r:KNOWS]->(b:Person) RETURN id(a), labels(a), type(r), properties(r)`, nil)
	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	require.Equal(t, engine.KindInt, row[0].Kind)
	require.Equal(t, engine.KindList, row[1].Kind)
	require.Equal(t, "KNOWS", row[2].Str)
	require.Equal(t, engine.KindMap, row[3].Kind)
	require.Equal(t, int64(2020), row[3].Map["since"].Int)
}
