package engine

import (
	"strings"

	"github.com/dot-do/neo4j-sub002/cypher"
	"github.com/dot-do/neo4j-sub002/internal/apperrors"
)

// evalExpr evaluates an expression tree against a row of bound variables and
// the query's parameter map. It implements the pure expression subset named
// in spec §5: literals, variables, property access, function calls,
// arithmetic/comparison/boolean binary operators, and map literals.
func evalExpr(expr *cypher.Expression, row map[string]Value, params map[string]any) (Value, error) {
	if expr == nil {
		return NullValue(), nil
	}
	switch expr.Kind {
	case cypher.ExprInteger:
		return IntValue(expr.IntValue), nil
	case cypher.ExprFloat:
		return FloatValue(expr.FloatValue), nil
	case cypher.ExprString:
		return StringValue(expr.StringValue), nil
	case cypher.ExprBoolean:
		return BoolValue(expr.BoolValue), nil
	case cypher.ExprNull:
		return NullValue(), nil
	case cypher.ExprParameter:
		v, ok := params[expr.Name]
		if !ok {
			return Value{}, apperrors.NewParameterMissingError(expr.Name)
		}
		return FromAny(v), nil
	case cypher.ExprVariable:
		v, ok := row[expr.Name]
		if !ok {
			return Value{}, apperrors.NewSemanticError("variable %q is not bound in this scope", expr.Name)
		}
		return v, nil
	case cypher.ExprPropertyAccess:
		return evalPropertyAccess(expr, row, params)
	case cypher.ExprFunctionCall:
		return evalFunctionCall(expr, row, params)
	case cypher.ExprBinary:
		return evalBinary(expr, row, params)
	case cypher.ExprMap:
		return evalMapLiteral(expr, row, params)
	default:
		return Value{}, apperrors.NewNotImplementedError("expression kind %v is not supported", expr.Kind)
	}
}

func evalPropertyAccess(expr *cypher.Expression, row map[string]Value, params map[string]any) (Value, error) {
	obj, err := evalExpr(expr.Object, row, params)
	if err != nil {
		return Value{}, err
	}
	switch obj.Kind {
	case KindNode:
		if v, ok := obj.Node.Properties[expr.Property]; ok {
			return FromAny(v), nil
		}
		return NullValue(), nil
	case KindRelationship:
		if v, ok := obj.Relationship.Properties[expr.Property]; ok {
			return FromAny(v), nil
		}
		return NullValue(), nil
	case KindMap:
		if v, ok := obj.Map[expr.Property]; ok {
			return v, nil
		}
		return NullValue(), nil
	case KindNull:
		return NullValue(), nil
	default:
		return Value{}, apperrors.NewSemanticError("cannot access property %q on a non-entity value", expr.Property)
	}
}

func evalMapLiteral(expr *cypher.Expression, row map[string]Value, params map[string]any) (Value, error) {
	out := make(map[string]Value, len(expr.Map.Keys))
	for i, key := range expr.Map.Keys {
		v, err := evalExpr(&expr.Map.Values[i], row, params)
		if err != nil {
			return Value{}, err
		}
		out[key] = v
	}
	return MapValue(out), nil
}

func evalBinary(expr *cypher.Expression, row map[string]Value, params map[string]any) (Value, error) {
	op := expr.Operator

	// NOT and unary minus are desugared by the parser into binary nodes
	// against a synthetic operand; keep their short-circuiting shape here.
	if op == "NOT" {
		v, err := evalExpr(expr.Right, row, params)
		if err != nil {
			return Value{}, err
		}
		if v.Kind != KindBool {
			return Value{}, apperrors.NewSemanticError("NOT requires a boolean operand")
		}
		return BoolValue(!v.Bool), nil
	}

	if op == "AND" || op == "OR" || op == "XOR" {
		left, err := evalExpr(expr.Left, row, params)
		if err != nil {
			return Value{}, err
		}
		if left.Kind != KindBool {
			return Value{}, apperrors.NewSemanticError("%s requires boolean operands", op)
		}
		if op == "AND" && !left.Bool {
			return BoolValue(false), nil
		}
		if op == "OR" && left.Bool {
			return BoolValue(true), nil
		}
		right, err := evalExpr(expr.Right, row, params)
		if err != nil {
			return Value{}, err
		}
		if right.Kind != KindBool {
			return Value{}, apperrors.NewSemanticError("%s requires boolean operands", op)
		}
		switch op {
		case "AND":
			return BoolValue(left.Bool && right.Bool), nil
		case "OR":
			return BoolValue(left.Bool || right.Bool), nil
		default: // XOR
			return BoolValue(left.Bool != right.Bool), nil
		}
	}

	left, err := evalExpr(expr.Left, row, params)
	if err != nil {
		return Value{}, err
	}
	right, err := evalExpr(expr.Right, row, params)
	if err != nil {
		return Value{}, err
	}

	switch op {
	case "=":
		return BoolValue(Equal(left, right)), nil
	case "<>":
		return BoolValue(!Equal(left, right)), nil
	case "<", ">", "<=", ">=":
		cmp, ok := Compare(left, right)
		if !ok {
			return Value{}, apperrors.NewSemanticError("cannot compare %v and %v", left.Kind, right.Kind)
		}
		switch op {
		case "<":
			return BoolValue(cmp < 0), nil
		case ">":
			return BoolValue(cmp > 0), nil
		case "<=":
			return BoolValue(cmp <= 0), nil
		default:
			return BoolValue(cmp >= 0), nil
		}
	case "+":
		return evalPlus(left, right)
	case "-", "*", "/", "%", "^":
		return evalArith(op, left, right)
	default:
		return Value{}, apperrors.NewNotImplementedError("operator %q is not supported", op)
	}
}

// evalPlus overloads + for numeric addition and string concatenation, the
// two cases the spec's expression subset requires.
func evalPlus(left, right Value) (Value, error) {
	if left.Kind == KindString || right.Kind == KindString {
		return StringValue(toDisplayString(left) + toDisplayString(right)), nil
	}
	return evalArith("+", left, right)
}

func toDisplayString(v Value) string {
	if v.Kind == KindString {
		return v.Str
	}
	return v.String()
}

func evalArith(op string, left, right Value) (Value, error) {
	if !isNumeric(left.Kind) || !isNumeric(right.Kind) {
		return Value{}, apperrors.NewSemanticError("operator %q requires numeric operands", op)
	}
	if left.Kind == KindInt && right.Kind == KindInt && op != "/" {
		a, b := left.Int, right.Int
		switch op {
		case "-":
			return IntValue(a - b), nil
		case "*":
			return IntValue(a * b), nil
		case "%":
			if b == 0 {
				return Value{}, apperrors.NewSemanticError("modulo by zero")
			}
			return IntValue(a % b), nil
		case "^":
			return FloatValue(intPow(a, b)), nil
		}
	}
	a, b := asFloat(left), asFloat(right)
	switch op {
	case "-":
		return FloatValue(a - b), nil
	case "*":
		return FloatValue(a * b), nil
	case "/":
		if b == 0 {
			return Value{}, apperrors.NewSemanticError("division by zero")
		}
		return FloatValue(a / b), nil
	case "%":
		return FloatValue(modFloat(a, b)), nil
	case "^":
		return FloatValue(intPow(int64(a), int64(b))), nil
	default:
		return Value{}, apperrors.NewNotImplementedError("operator %q is not supported", op)
	}
}

func intPow(base, exp int64) float64 {
	result := 1.0
	b := float64(base)
	for i := int64(0); i < exp; i++ {
		result *= b
	}
	return result
}

func modFloat(a, b float64) float64 {
	for a >= b {
		a -= b
	}
	return a
}

func evalFunctionCall(expr *cypher.Expression, row map[string]Value, params map[string]any) (Value, error) {
	name := strings.ToLower(expr.Function)
	switch name {
	case "id":
		if err := requireArity(expr, 1); err != nil {
			return Value{}, err
		}
		arg, err := evalExpr(&expr.Arguments[0], row, params)
		if err != nil {
			return Value{}, err
		}
		switch arg.Kind {
		case KindNode:
			return IntValue(arg.Node.ID), nil
		case KindRelationship:
			return IntValue(arg.Relationship.ID), nil
		default:
			return Value{}, apperrors.NewSemanticError("id() requires a node or relationship argument")
		}
	case "labels":
		if err := requireArity(expr, 1); err != nil {
			return Value{}, err
		}
		arg, err := evalExpr(&expr.Arguments[0], row, params)
		if err != nil {
			return Value{}, err
		}
		if arg.Kind != KindNode {
			return Value{}, apperrors.NewSemanticError("labels() requires a node argument")
		}
		items := make([]Value, len(arg.Node.Labels))
		for i, l := range arg.Node.Labels {
			items[i] = StringValue(l)
		}
		return ListValue(items), nil
	case "type":
		if err := requireArity(expr, 1); err != nil {
			return Value{}, err
		}
		arg, err := evalExpr(&expr.Arguments[0], row, params)
		if err != nil {
			return Value{}, err
		}
		if arg.Kind != KindRelationship {
			return Value{}, apperrors.NewSemanticError("type() requires a relationship argument")
		}
		return StringValue(arg.Relationship.Type), nil
	case "properties":
		if err := requireArity(expr, 1); err != nil {
			return Value{}, err
		}
		arg, err := evalExpr(&expr.Arguments[0], row, params)
		if err != nil {
			return Value{}, err
		}
		switch arg.Kind {
		case KindNode:
			return MapValue(propsToValueMap(arg.Node.Properties)), nil
		case KindRelationship:
			return MapValue(propsToValueMap(arg.Relationship.Properties)), nil
		default:
			return Value{}, apperrors.NewSemanticError("properties() requires a node or relationship argument")
		}
	case "count":
		// count() is an aggregate; the RETURN clause detects it and
		// substitutes the matched-row count before reaching here. A bare
		// evaluation (e.g. nested in another expression) is not supported.
		return Value{}, apperrors.NewNotImplementedError("count() is only supported as a top-level RETURN item")
	default:
		return Value{}, apperrors.NewSyntaxError("unknown function %q", expr.Function)
	}
}

// requireArity returns a SyntaxError if expr was not called with exactly n
// arguments, so e.g. "RETURN id()" fails with a clean Cypher error instead
// of panicking on an out-of-range argument index.
func requireArity(expr *cypher.Expression, n int) error {
	if len(expr.Arguments) != n {
		return apperrors.NewSyntaxError("%s() takes exactly %d argument(s), got %d", expr.Function, n, len(expr.Arguments))
	}
	return nil
}

func propsToValueMap(props map[string]any) map[string]Value {
	out := make(map[string]Value, len(props))
	for k, v := range props {
		out[k] = FromAny(v)
	}
	return out
}

// isAggregateExpr reports whether expr is a top-level call to count(), the
// one aggregate function in the supported subset.
func isAggregateExpr(expr *cypher.Expression) bool {
	return expr.Kind == cypher.ExprFunctionCall && strings.EqualFold(expr.Function, "count")
}
