package engine

import (
	"context"

	"github.com/dot-do/neo4j-sub002/cypher"
	"github.com/dot-do/neo4j-sub002/internal/apperrors"
)

// partialMatch is one in-progress row of a pattern match: the bindings
// accumulated so far, plus the id of the most recently bound node (the
// anchor the next relationship hop extends from).
type partialMatch struct {
	bindings map[string]Value
	anchor   int64
}

func cloneBindings(b map[string]Value) map[string]Value {
	out := make(map[string]Value, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// matchPattern evaluates a pattern against view, returning one partialMatch
// per satisfying combination of nodes/relationships (§4.3: committed store
// ∪ work-buffer additions − deletions, via whatever view implements). seed
// carries bindings from prior clauses in the same query; when the pattern's
// first node reuses an already-bound variable, that node is the sole anchor
// rather than a fresh full-store scan.
func matchPattern(ctx context.Context, view GraphView, pattern cypher.Pattern, params map[string]any, seed map[string]Value) ([]partialMatch, error) {
	if len(pattern.Elements) == 0 {
		return []partialMatch{{bindings: cloneBindings(seed)}}, nil
	}
	if pattern.Elements[0].Kind != cypher.ElementNode {
		return nil, apperrors.NewSyntaxError("pattern must start with a node")
	}

	first := pattern.Elements[0].Node
	var matches []partialMatch

	if first.Variable != "" {
		if existing, ok := seed[first.Variable]; ok && existing.Kind == KindNode {
			ok2, err := nodeMatchesPattern(*existing.Node, first, seed, params)
			if err != nil {
				return nil, err
			}
			if ok2 {
				matches = append(matches, partialMatch{bindings: cloneBindings(seed), anchor: existing.Node.ID})
			}
			return continueMatch(ctx, view, pattern, params, matches)
		}
	}

	nodes, err := view.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	for i := range nodes {
		n := nodes[i]
		ok, err := nodeMatchesPattern(n, first, seed, params)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		b := cloneBindings(seed)
		if first.Variable != "" {
			b[first.Variable] = NodeValue(&n)
		}
		matches = append(matches, partialMatch{bindings: b, anchor: n.ID})
	}
	return continueMatch(ctx, view, pattern, params, matches)
}

func continueMatch(ctx context.Context, view GraphView, pattern cypher.Pattern, params map[string]any, matches []partialMatch) ([]partialMatch, error) {

	i := 1
	for i < len(pattern.Elements) {
		if i+1 >= len(pattern.Elements) {
			return nil, apperrors.NewSyntaxError("pattern has a dangling relationship with no following node")
		}
		relElem := pattern.Elements[i].Relationship
		nodeElem := pattern.Elements[i+1].Node

		var next []partialMatch
		for _, p := range matches {
			pairs, err := incidentPairs(ctx, view, p.anchor, relElem.Direction)
			if err != nil {
				return nil, err
			}
			for _, pair := range pairs {
				if !relMatchesPattern(pair.rel, relElem) {
					continue
				}
				other, err := view.GetNode(ctx, pair.otherID)
				if err != nil {
					return nil, err
				}
				if other == nil {
					continue
				}
				ok, err := nodeMatchesPattern(*other, nodeElem, p.bindings, params)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				nb := cloneBindings(p.bindings)
				if relElem.Variable != "" {
					rel := pair.rel
					nb[relElem.Variable] = RelValue(&rel)
				}
				if nodeElem.Variable != "" {
					nb[nodeElem.Variable] = NodeValue(other)
				}
				next = append(next, partialMatch{bindings: nb, anchor: pair.otherID})
			}
		}
		matches = next
		i += 2
	}

	return matches, nil
}

type relPair struct {
	rel     RelRecord
	otherID int64
}

// incidentPairs lists the relationships incident on anchorID in the pattern
// direction, paired with the endpoint id on the other side of each.
func incidentPairs(ctx context.Context, view GraphView, anchorID int64, dir cypher.Direction) ([]relPair, error) {
	var pairs []relPair
	switch dir {
	case cypher.DirRight:
		rels, err := view.RelationshipsFrom(ctx, anchorID)
		if err != nil {
			return nil, err
		}
		for _, r := range rels {
			pairs = append(pairs, relPair{rel: r, otherID: r.EndNodeID})
		}
	case cypher.DirLeft:
		rels, err := view.RelationshipsTo(ctx, anchorID)
		if err != nil {
			return nil, err
		}
		for _, r := range rels {
			pairs = append(pairs, relPair{rel: r, otherID: r.StartNodeID})
		}
	default: // DirNone: either direction satisfies an undirected pattern
		out, err := view.RelationshipsFrom(ctx, anchorID)
		if err != nil {
			return nil, err
		}
		for _, r := range out {
			pairs = append(pairs, relPair{rel: r, otherID: r.EndNodeID})
		}
		in, err := view.RelationshipsTo(ctx, anchorID)
		if err != nil {
			return nil, err
		}
		for _, r := range in {
			pairs = append(pairs, relPair{rel: r, otherID: r.StartNodeID})
		}
	}
	return pairs, nil
}

func relMatchesPattern(r RelRecord, pattern *cypher.RelationshipPattern) bool {
	if len(pattern.Types) == 0 {
		return true
	}
	for _, t := range pattern.Types {
		if t == r.Type {
			return true
		}
	}
	return false
}

func nodeMatchesPattern(n NodeRecord, pattern *cypher.NodePattern, row map[string]Value, params map[string]any) (bool, error) {
	for _, label := range pattern.Labels {
		if !hasLabel(n.Labels, label) {
			return false, nil
		}
	}
	if pattern.Properties == nil {
		return true, nil
	}
	for idx, key := range pattern.Properties.Keys {
		want, err := evalExpr(&pattern.Properties.Values[idx], row, params)
		if err != nil {
			return false, err
		}
		got, ok := n.Properties[key]
		if !ok {
			return false, nil
		}
		if !Equal(FromAny(got), want) {
			return false, nil
		}
	}
	return true, nil
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

// patternVariables lists every variable a pattern declares, in order. Used
// to null-fill an OPTIONAL MATCH that found no match.
func patternVariables(pattern cypher.Pattern) []string {
	var names []string
	for _, elem := range pattern.Elements {
		switch elem.Kind {
		case cypher.ElementNode:
			if elem.Node.Variable != "" {
				names = append(names, elem.Node.Variable)
			}
		case cypher.ElementRelationship:
			if elem.Relationship.Variable != "" {
				names = append(names, elem.Relationship.Variable)
			}
		}
	}
	return names
}
