package graphdb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	graphdb "github.com/dot-do/neo4j-sub002"
	"github.com/dot-do/neo4j-sub002/internal/engine"
)

func TestResult_SingleErrorsOnZeroOrManyRecords(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()
	sess, err := driver.NewSession(ctx, graphdb.SessionConfig{})
	require.NoError(t, err)
	defer func() { _ = sess.Close(ctx) }()

	empty, err := sess.Run(ctx, `MATCH (n:Nobody) RETURN n`, nil)
	require.NoError(t, err)
	_, err = empty.Single()
	require.Error(t, err)

	_, err = sess.Run(ctx, `CREATE (n:Person {name: "Hank"})`, nil)
	require.NoError(t, err)
	_, err = sess.Run(ctx, `CREATE (n:Person {name: "Ivy"})`, nil)
	require.NoError(t, err)

	many, err := sess.Run(ctx, `MATCH (n:Person) RETURN n`, nil)
	require.NoError(t, err)
	_, err = many.Single()
	require.Error(t, err)
}

func TestResult_SingleReturnsSoleRecord(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()
	sess, err := driver.NewSession(ctx, graphdb.SessionConfig{})
	require.NoError(t, err)
	defer func() { _ = sess.Close(ctx) }()

	_, err = sess.Run(ctx, `CREATE (n:Person {name: "Jack"})`, nil)
	require.NoError(t, err)

	result, err := sess.Run(ctx, `MATCH (n:Person {name: "Jack"}) RETURN n.name AS name`, nil)
	require.NoError(t, err)

	rec, err := result.Single()
	require.NoError(t, err)
	name, ok := rec.Get("name")
	require.True(t, ok)
	require.Equal(t, "Jack", engine.ToAny(name))

	_, ok = rec.Get("nonexistent")
	require.False(t, ok)
}

func TestResult_ConsumeReturnsSummary(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()
	sess, err := driver.NewSession(ctx, graphdb.SessionConfig{})
	require.NoError(t, err)
	defer func() { _ = sess.Close(ctx) }()

	_, err = sess.Run(ctx, `CREATE (n:Person {name: "Kim"})`, nil)
	require.NoError(t, err)

	result, err := sess.Run(ctx, `MATCH (n:Person) RETURN n`, nil)
	require.NoError(t, err)

	summary, err := result.Consume()
	require.NoError(t, err)
	require.Equal(t, 1, summary.RecordCount)
	require.False(t, result.Next(), "Consume must drain remaining records")
}

func TestResult_PeekDoesNotAdvance(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()
	sess, err := driver.NewSession(ctx, graphdb.SessionConfig{})
	require.NoError(t, err)
	defer func() { _ = sess.Close(ctx) }()

	_, err = sess.Run(ctx, `CREATE (n:Person {name: "Leo"})`, nil)
	require.NoError(t, err)

	result, err := sess.Run(ctx, `MATCH (n:Person) RETURN n`, nil)
	require.NoError(t, err)

	require.True(t, result.Peek())
	require.True(t, result.Peek(), "Peek must not consume")
	require.True(t, result.Next())
	require.False(t, result.Peek())
}
