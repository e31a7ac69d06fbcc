package engine

import (
	"context"
	"strings"

	"github.com/dot-do/neo4j-sub002/cypher"
	"github.com/dot-do/neo4j-sub002/internal/apperrors"
)

// Counters reports the writes a CREATE clause performed, mirroring the
// Neo4j driver's ResultSummary.Counters.
type Counters struct {
	NodesCreated         int
	RelationshipsCreated int
	LabelsAdded          int
	PropertiesSet        int
}

func (c *Counters) add(o Counters) {
	c.NodesCreated += o.NodesCreated
	c.RelationshipsCreated += o.RelationshipsCreated
	c.LabelsAdded += o.LabelsAdded
	c.PropertiesSet += o.PropertiesSet
}

// Result is the output of executing a query: a column list and the matching
// rows, each row holding one Value per column in order, plus the write
// counters accumulated by any CREATE clauses the query contained.
type Result struct {
	Columns  []string
	Rows     [][]Value
	Counters Counters
}

// Execute runs a parsed query against view using params for $-parameter
// substitution. It threads a single stream of row bindings through each
// clause in order: CREATE extends bindings with newly created entities,
// MATCH narrows/extends bindings against the graph, and RETURN projects the
// final bindings (or an aggregate) into the result set.
func Execute(ctx context.Context, view GraphView, query *cypher.Query, params map[string]any) (*Result, error) {
	if params == nil {
		params = map[string]any{}
	}
	rows := []map[string]Value{{}}
	declared := map[string]bool{}
	var counters Counters

	for _, clause := range query.Clauses {
		var err error
		switch clause.Kind {
		case cypher.ClauseCreate:
			var created Counters
			rows, created, err = executeCreate(ctx, view, clause.Create, rows, params)
			counters.add(created)
			for _, name := range patternVariables(clause.Create.Pattern) {
				declared[name] = true
			}
		case cypher.ClauseMatch:
			rows, err = executeMatch(ctx, view, clause.Match, rows, params)
			for _, name := range patternVariables(clause.Match.Pattern) {
				declared[name] = true
			}
		case cypher.ClauseReturn:
			result, rerr := executeReturn(clause.Return, rows, params, declared)
			if rerr != nil {
				return nil, rerr
			}
			result.Counters = counters
			return result, nil
		default:
			return nil, apperrors.NewNotImplementedError("clause kind %v is not supported", clause.Kind)
		}
		if err != nil {
			return nil, err
		}
	}

	// A query with no RETURN clause (a bare CREATE/MATCH) produces no rows.
	return &Result{Counters: counters}, nil
}

func executeMatch(ctx context.Context, view GraphView, match *cypher.MatchClause, rows []map[string]Value, params map[string]any) ([]map[string]Value, error) {
	var out []map[string]Value
	for _, row := range rows {
		partials, err := matchPattern(ctx, view, match.Pattern, params, row)
		if err != nil {
			return nil, err
		}

		if len(partials) == 0 && match.Optional {
			nb := cloneBindings(row)
			for _, name := range patternVariables(match.Pattern) {
				if _, ok := nb[name]; !ok {
					nb[name] = NullValue()
				}
			}
			out = append(out, nb)
			continue
		}

		for _, p := range partials {
			if match.HasWhere {
				v, err := evalExpr(&match.Where, p.bindings, params)
				if err != nil {
					return nil, err
				}
				if !v.IsTruthy() {
					continue
				}
			}
			out = append(out, p.bindings)
		}
	}
	return out, nil
}

func executeCreate(ctx context.Context, view GraphView, create *cypher.CreateClause, rows []map[string]Value, params map[string]any) ([]map[string]Value, Counters, error) {
	var out []map[string]Value
	var counters Counters
	for _, row := range rows {
		nb := cloneBindings(row)
		elems := create.Pattern.Elements
		var anchorID int64
		haveAnchor := false

		for i, elem := range elems {
			if elem.Kind != cypher.ElementNode {
				continue
			}
			np := elem.Node
			nodeID, created, err := resolveOrCreateNode(ctx, view, np, nb, params)
			if err != nil {
				return nil, counters, err
			}
			if created {
				counters.NodesCreated++
				counters.LabelsAdded += len(np.Labels)
				if np.Properties != nil {
					counters.PropertiesSet += len(np.Properties.Keys)
				}
			}

			if haveAnchor {
				rp := elems[i-1].Relationship
				startID, endID := orientRelationship(anchorID, nodeID, rp.Direction)
				relProps, err := evalMapProps(rp.Properties, nb, params)
				if err != nil {
					return nil, counters, err
				}
				relType := "RELATED_TO"
				if len(rp.Types) > 0 {
					relType = rp.Types[0]
				}
				rr, err := view.CreateRelationship(ctx, relType, startID, endID, relProps)
				if err != nil {
					return nil, counters, err
				}
				counters.RelationshipsCreated++
				counters.PropertiesSet += len(relProps)
				if rp.Variable != "" {
					nb[rp.Variable] = RelValue(rr)
				}
			}

			if np.Variable != "" {
				node, err := view.GetNode(ctx, nodeID)
				if err != nil {
					return nil, counters, err
				}
				nb[np.Variable] = NodeValue(node)
			}
			anchorID = nodeID
			haveAnchor = true
		}
		out = append(out, nb)
	}
	return out, counters, nil
}

// resolveOrCreateNode reuses an already-bound node variable (e.g. a node
// matched in a prior clause and referenced again in CREATE) or creates a
// fresh node from the pattern's labels/properties. The second return value
// reports whether a new node was actually created, for write-counter
// bookkeeping.
func resolveOrCreateNode(ctx context.Context, view GraphView, np *cypher.NodePattern, row map[string]Value, params map[string]any) (int64, bool, error) {
	if np.Variable != "" {
		if existing, ok := row[np.Variable]; ok && existing.Kind == KindNode {
			return existing.Node.ID, false, nil
		}
	}
	props, err := evalMapProps(np.Properties, row, params)
	if err != nil {
		return 0, false, err
	}
	node, err := view.CreateNode(ctx, np.Labels, props)
	if err != nil {
		return 0, false, err
	}
	return node.ID, true, nil
}

// orientRelationship maps a pattern direction onto concrete (start, end)
// node ids. An undirected pattern (DirNone) creates a left-to-right edge,
// matching how the pattern reads.
func orientRelationship(anchorID, nodeID int64, dir cypher.Direction) (start, end int64) {
	if dir == cypher.DirLeft {
		return nodeID, anchorID
	}
	return anchorID, nodeID
}

func evalMapProps(m *cypher.MapLiteral, row map[string]Value, params map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(m.Keys))
	for i, key := range m.Keys {
		v, err := evalExpr(&m.Values[i], row, params)
		if err != nil {
			return nil, err
		}
		out[key] = ToAny(v)
	}
	return out, nil
}

func executeReturn(ret *cypher.ReturnClause, rows []map[string]Value, params map[string]any, declared map[string]bool) (*Result, error) {
	if err := validateReturnVariables(ret, declared); err != nil {
		return nil, err
	}

	columns := make([]string, len(ret.Items))
	for i, item := range ret.Items {
		columns[i] = returnColumnName(item)
	}

	allAggregate := len(ret.Items) > 0
	for i := range ret.Items {
		if !isAggregateExpr(&ret.Items[i].Expression) {
			allAggregate = false
			break
		}
	}
	if allAggregate {
		row := make([]Value, len(ret.Items))
		for i := range ret.Items {
			row[i] = IntValue(int64(len(rows)))
		}
		return &Result{Columns: columns, Rows: [][]Value{row}}, nil
	}

	out := make([][]Value, 0, len(rows))
	for _, row := range rows {
		values := make([]Value, len(ret.Items))
		for i := range ret.Items {
			v, err := evalExpr(&ret.Items[i].Expression, row, params)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		out = append(out, values)
	}
	return &Result{Columns: columns, Rows: out}, nil
}

// validateReturnVariables checks every variable referenced by ret against
// declared up front, independent of how many rows matched, so
// "MATCH (n:Nonexistent) RETURN bogus" raises a SemanticError instead of
// silently returning zero rows.
func validateReturnVariables(ret *cypher.ReturnClause, declared map[string]bool) error {
	for i := range ret.Items {
		if err := checkVariablesDeclared(&ret.Items[i].Expression, declared); err != nil {
			return err
		}
	}
	return nil
}

func checkVariablesDeclared(expr *cypher.Expression, declared map[string]bool) error {
	if expr == nil {
		return nil
	}
	switch expr.Kind {
	case cypher.ExprVariable:
		if !declared[expr.Name] {
			return apperrors.NewSemanticError("variable %q is not defined", expr.Name)
		}
	case cypher.ExprPropertyAccess:
		return checkVariablesDeclared(expr.Object, declared)
	case cypher.ExprFunctionCall:
		switch strings.ToLower(expr.Function) {
		case "id", "labels", "type", "properties":
			if err := requireArity(expr, 1); err != nil {
				return err
			}
		}
		for i := range expr.Arguments {
			if err := checkVariablesDeclared(&expr.Arguments[i], declared); err != nil {
				return err
			}
		}
	case cypher.ExprBinary:
		if err := checkVariablesDeclared(expr.Left, declared); err != nil {
			return err
		}
		return checkVariablesDeclared(expr.Right, declared)
	case cypher.ExprMap:
		for i := range expr.Map.Values {
			if err := checkVariablesDeclared(&expr.Map.Values[i], declared); err != nil {
				return err
			}
		}
	}
	return nil
}

func returnColumnName(item cypher.ReturnItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	return exprDisplayName(&item.Expression)
}

func exprDisplayName(expr *cypher.Expression) string {
	switch expr.Kind {
	case cypher.ExprVariable:
		return expr.Name
	case cypher.ExprPropertyAccess:
		return exprDisplayName(expr.Object) + "." + expr.Property
	case cypher.ExprFunctionCall:
		return expr.Function + "(...)"
	default:
		return "expr"
	}
}
