// Package engine implements the execution engine (L3): CREATE/MATCH/RETURN
// clause semantics, pattern lookup against a GraphView, and expression
// evaluation over bound variables.
package engine

import (
	"fmt"
	"sort"
)

// ValueKind tags the runtime type of a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindNode
	KindRelationship
	KindMap
	KindList
)

// Value is a single Cypher runtime value: a tagged union over the scalar
// types, graph entities, maps and lists the engine's expression subset
// produces.
type Value struct {
	Kind         ValueKind
	Int          int64
	Float        float64
	Str          string
	Bool         bool
	Node         *NodeRecord
	Relationship *RelRecord
	Map          map[string]Value
	List         []Value
}

func NullValue() Value                  { return Value{Kind: KindNull} }
func IntValue(v int64) Value            { return Value{Kind: KindInt, Int: v} }
func FloatValue(v float64) Value        { return Value{Kind: KindFloat, Float: v} }
func StringValue(v string) Value        { return Value{Kind: KindString, Str: v} }
func BoolValue(v bool) Value            { return Value{Kind: KindBool, Bool: v} }
func NodeValue(n *NodeRecord) Value     { return Value{Kind: KindNode, Node: n} }
func RelValue(r *RelRecord) Value       { return Value{Kind: KindRelationship, Relationship: r} }
func MapValue(m map[string]Value) Value { return Value{Kind: KindMap, Map: m} }
func ListValue(items []Value) Value     { return Value{Kind: KindList, List: items} }

// IsTruthy implements Cypher's truthiness for WHERE filtering: only true
// KindBool values are truthy; null and everything else is not.
func (v Value) IsTruthy() bool {
	return v.Kind == KindBool && v.Bool
}

// Equal implements structural equality (= and <>), per spec: nodes and
// relationships compare by id, maps compare key-by-key, scalars compare by
// value with int/float treated as comparable across kinds.
func Equal(a, b Value) bool {
	if a.Kind == KindNull || b.Kind == KindNull {
		return a.Kind == KindNull && b.Kind == KindNull
	}
	switch {
	case a.Kind == KindNode && b.Kind == KindNode:
		return a.Node.ID == b.Node.ID
	case a.Kind == KindRelationship && b.Kind == KindRelationship:
		return a.Relationship.ID == b.Relationship.ID
	case a.Kind == KindMap && b.Kind == KindMap:
		if len(a.Map) != len(b.Map) {
			return false
		}
		for k, av := range a.Map {
			bv, ok := b.Map[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case isNumeric(a.Kind) && isNumeric(b.Kind):
		return asFloat(a) == asFloat(b)
	case a.Kind == KindString && b.Kind == KindString:
		return a.Str == b.Str
	case a.Kind == KindBool && b.Kind == KindBool:
		return a.Bool == b.Bool
	case a.Kind == KindList && b.Kind == KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isNumeric(k ValueKind) bool { return k == KindInt || k == KindFloat }

func asFloat(v Value) float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	return v.Float
}

// Compare orders two numeric or string values for <, >, <=, >=. The second
// return is false if the values are not order-comparable.
func Compare(a, b Value) (int, bool) {
	switch {
	case isNumeric(a.Kind) && isNumeric(b.Kind):
		af, bf := asFloat(a), asFloat(b)
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	case a.Kind == KindString && b.Kind == KindString:
		switch {
		case a.Str < b.Str:
			return -1, true
		case a.Str > b.Str:
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

// String renders a Value for RETURN serialization (JSON transport layers
// may re-encode from the typed form instead; this covers CLI/debug output).
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return v.Str
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindNode:
		return fmt.Sprintf("Node(%d, labels=%v)", v.Node.ID, v.Node.Labels)
	case KindRelationship:
		return fmt.Sprintf("Relationship(%d, type=%s)", v.Relationship.ID, v.Relationship.Type)
	case KindMap:
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("%v", keys)
	case KindList:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = item.String()
		}
		return fmt.Sprintf("%v", parts)
	default:
		return "?"
	}
}

// FromAny wraps a decoded property value (as produced by JSON unmarshalling
// into map[string]any) into a Value.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return NullValue()
	case bool:
		return BoolValue(t)
	case string:
		return StringValue(t)
	case float64:
		return FloatValue(t)
	case int64:
		return IntValue(t)
	case int:
		return IntValue(int64(t))
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, val := range t {
			m[k] = FromAny(val)
		}
		return MapValue(m)
	case []any:
		items := make([]Value, len(t))
		for i, val := range t {
			items[i] = FromAny(val)
		}
		return ListValue(items)
	default:
		return StringValue(fmt.Sprintf("%v", t))
	}
}

// ToAny unwraps a Value back to the plain-Go representation used for
// property storage (map[string]any).
func ToAny(v Value) any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString:
		return v.Str
	case KindBool:
		return v.Bool
	case KindMap:
		m := make(map[string]any, len(v.Map))
		for k, val := range v.Map {
			m[k] = ToAny(val)
		}
		return m
	case KindList:
		items := make([]any, len(v.List))
		for i, val := range v.List {
			items[i] = ToAny(val)
		}
		return items
	case KindNode:
		return map[string]any{
			"id":         v.Node.ID,
			"labels":     v.Node.Labels,
			"properties": v.Node.Properties,
		}
	case KindRelationship:
		return map[string]any{
			"id":          v.Relationship.ID,
			"type":        v.Relationship.Type,
			"startNodeId": v.Relationship.StartNodeID,
			"endNodeId":   v.Relationship.EndNodeID,
			"properties":  v.Relationship.Properties,
		}
	default:
		return nil
	}
}
