package cypher_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/dot-do/neo4j-sub002/cypher"
)

// TestParse_WholeTreeMatchesExpected diffs an entire parsed query against a
// hand-built expected tree, the way a formatter round-trip test would: one
// mismatch anywhere in the structure should produce a readable diff rather
// than a single failed field assertion.
func TestParse_WholeTreeMatchesExpected(t *testing.T) {
	q, err := cypher.Parse(`MATCH (a:Person {name: "Alice"}) RETURN a.name AS name`)
	require.NoError(t, err)

	expected := &cypher.Query{
		Clauses: []cypher.Clause{
			{
				Kind: cypher.ClauseMatch,
				Match: &cypher.MatchClause{
					Pattern: cypher.Pattern{
						Elements: []cypher.PatternElement{
							{
								Kind: cypher.ElementNode,
								Node: &cypher.NodePattern{
									Variable: "a",
									Labels:   []string{"Person"},
									Properties: &cypher.MapLiteral{
										Keys:   []string{"name"},
										Values: []cypher.Expression{{Kind: cypher.ExprString, StringValue: "Alice"}},
									},
								},
							},
						},
					},
				},
			},
			{
				Kind: cypher.ClauseReturn,
				Return: &cypher.ReturnClause{
					Items: []cypher.ReturnItem{
						{
							Expression: cypher.Expression{
								Kind:     cypher.ExprPropertyAccess,
								Object:   &cypher.Expression{Kind: cypher.ExprVariable, Name: "a"},
								Property: "name",
							},
							Alias: "name",
						},
					},
				},
			},
		},
	}

	if diff := cmp.Diff(expected, q); diff != "" {
		t.Fatalf("parsed query mismatch (-expected +got):\n%s", diff)
	}
}

// TestParse_IsDeterministic parses the same statement twice and diffs the
// two trees against each other, catching any non-determinism (e.g. map
// iteration order leaking into Keys/Values).
func TestParse_IsDeterministic(t *testing.T) {
	stmt := `MATCH (a:Person)-[r:KNOWS {since: 2020}]->(b:Person) RETURN a, r, b`
	first, err := cypher.Parse(stmt)
	require.NoError(t, err)
	second, err := cypher.Parse(stmt)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("parsing the same statement twice produced different trees:\n%s", diff)
	}
}
