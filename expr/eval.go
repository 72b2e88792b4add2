package expr

import (
	"fmt"
	"math/big"
	"strings"
)

// ErrUnknownIdent is returned when an identifier resolves to neither a
// decoded arg nor an ambient field.
type ErrUnknownIdent struct{ Ident string }

func (e ErrUnknownIdent) Error() string { return fmt.Sprintf("expr: unknown identifier %q", e.Ident) }

type kind int

const (
	kInt kind = iota
	kString
	kBool
	kHex // address / arbitrary hex, compared case-insensitively after 0x strip
	kList
)

type value struct {
	kind kind
	i    *big.Int
	s    string
	b    bool
	list []value
}

// Vars is the identifier resolution environment: decoded args first, then
// ambient fields.
type Vars map[string]any

// Eval evaluates a parsed expression against vars. A nil error with a
// false result means "does not match"; a non-nil error also means
// "does not match" but callers should log it.
func Eval(node *Node, vars Vars) (bool, error) {
	v, err := evalBool(node, vars)
	if err != nil {
		return false, err
	}
	return v, nil
}

func evalBool(n *Node, vars Vars) (bool, error) {
	switch n.Kind {
	case KindOr:
		left, err := evalBool(n.Left, vars)
		if err != nil {
			return false, err
		}
		if left {
			return true, nil // short-circuit: right not evaluated
		}
		return evalBool(n.Right, vars)

	case KindAnd:
		left, err := evalBool(n.Left, vars)
		if err != nil {
			return false, err
		}
		if !left {
			return false, nil // short-circuit: right not evaluated
		}
		return evalBool(n.Right, vars)

	case KindNot:
		operand, err := evalBool(n.Operand, vars)
		if err != nil {
			return false, err
		}
		return !operand, nil

	case KindCmp:
		return evalCmp(n, vars)

	default:
		return false, fmt.Errorf("expr: invalid boolean node kind %v", n.Kind)
	}
}

func evalCmp(n *Node, vars Vars) (bool, error) {
	left, err := evalTerm(n.CmpLeft, vars)
	if err != nil {
		return false, err
	}

	if n.CmpRight == nil {
		// bare truthy check, e.g. `paused` used directly as a condition
		if left.kind != kBool {
			return false, fmt.Errorf("expr: bare term is not boolean")
		}
		return left.b, nil
	}

	if n.Op == OpIn {
		list, err := evalTerm(n.CmpRight, vars)
		if err != nil {
			return false, err
		}
		for _, item := range list.list {
			eq, err := compareEq(left, item)
			if err != nil {
				continue
			}
			if eq {
				return true, nil
			}
		}
		return false, nil
	}

	right, err := evalTerm(n.CmpRight, vars)
	if err != nil {
		return false, err
	}

	switch n.Op {
	case OpEq:
		return compareEq(left, right)
	case OpNeq:
		eq, err := compareEq(left, right)
		return !eq, err
	case OpGt, OpGte, OpLt, OpLte:
		return compareOrder(left, right, n.Op)
	case OpContains, OpStartsWith, OpEndsWith:
		return compareString(left, right, n.Op)
	default:
		return false, fmt.Errorf("expr: unsupported operator %q", n.Op)
	}
}

func evalTerm(n *Node, vars Vars) (value, error) {
	switch n.Kind {
	case KindIdent:
		raw, ok := vars[n.Ident]
		if !ok {
			return value{}, ErrUnknownIdent{Ident: n.Ident}
		}
		return coerce(raw)

	case KindLiteral:
		return literalValue(n)

	default:
		return value{}, fmt.Errorf("expr: invalid term node kind %v", n.Kind)
	}
}

func literalValue(n *Node) (value, error) {
	switch n.Literal {
	case LiteralInt:
		i, ok := new(big.Int).SetString(n.IntVal, 10)
		if !ok {
			return value{}, fmt.Errorf("expr: invalid integer literal %q", n.IntVal)
		}
		return value{kind: kInt, i: i}, nil

	case LiteralString:
		return value{kind: kString, s: n.StringVal}, nil

	case LiteralBool:
		return value{kind: kBool, b: n.BoolVal}, nil

	case LiteralHex, LiteralAddress:
		return value{kind: kHex, s: normalizeHex(n.StringVal)}, nil

	case LiteralList:
		list := make([]value, 0, len(n.ListVal))
		for _, item := range n.ListVal {
			v, err := literalValue(item)
			if err != nil {
				return value{}, err
			}
			list = append(list, v)
		}
		return value{kind: kList, list: list}, nil

	default:
		return value{}, fmt.Errorf("expr: invalid literal kind %v", n.Literal)
	}
}

// coerce converts a decoded-arg / ambient-field Go value into the
// evaluator's internal value representation.
func coerce(raw any) (value, error) {
	switch v := raw.(type) {
	case *big.Int:
		return value{kind: kInt, i: v}, nil
	case big.Int:
		return value{kind: kInt, i: &v}, nil
	case int:
		return value{kind: kInt, i: big.NewInt(int64(v))}, nil
	case int8:
		return value{kind: kInt, i: big.NewInt(int64(v))}, nil
	case int16:
		return value{kind: kInt, i: big.NewInt(int64(v))}, nil
	case int32:
		return value{kind: kInt, i: big.NewInt(int64(v))}, nil
	case int64:
		return value{kind: kInt, i: big.NewInt(v)}, nil
	case uint:
		return value{kind: kInt, i: new(big.Int).SetUint64(uint64(v))}, nil
	case uint8:
		return value{kind: kInt, i: new(big.Int).SetUint64(uint64(v))}, nil
	case uint16:
		return value{kind: kInt, i: new(big.Int).SetUint64(uint64(v))}, nil
	case uint32:
		return value{kind: kInt, i: new(big.Int).SetUint64(uint64(v))}, nil
	case uint64:
		return value{kind: kInt, i: new(big.Int).SetUint64(v)}, nil
	case bool:
		return value{kind: kBool, b: v}, nil
	case string:
		if looksLikeHex(v) {
			return value{kind: kHex, s: normalizeHex(v)}, nil
		}
		return value{kind: kString, s: v}, nil
	case []byte:
		return value{kind: kHex, s: normalizeHex(fmt.Sprintf("0x%x", v))}, nil
	case fmt.Stringer:
		s := v.String()
		if looksLikeHex(s) {
			return value{kind: kHex, s: normalizeHex(s)}, nil
		}
		return value{kind: kString, s: s}, nil
	default:
		return value{}, fmt.Errorf("expr: unsupported value type %T", raw)
	}
}

func looksLikeHex(s string) bool {
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}

func normalizeHex(s string) string {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	return strings.ToLower(s)
}

// compareEq implements == across same-kind and hex/string cross-kind
// comparisons (an address literal compared against a hex-looking string
// field, for instance).
func compareEq(a, b value) (bool, error) {
	if a.kind == kInt && b.kind == kInt {
		return a.i.Cmp(b.i) == 0, nil
	}
	if (a.kind == kHex || a.kind == kString) && (b.kind == kHex || b.kind == kString) {
		if a.kind == kHex || b.kind == kHex {
			return normalizeHex(a.s) == normalizeHex(b.s), nil
		}
		return a.s == b.s, nil
	}
	if a.kind == kBool && b.kind == kBool {
		return a.b == b.b, nil
	}
	return false, fmt.Errorf("expr: cannot compare %v and %v", a.kind, b.kind)
}

// compareOrder implements exact big-integer ordering.
func compareOrder(a, b value, op Op) (bool, error) {
	if a.kind != kInt || b.kind != kInt {
		return false, fmt.Errorf("expr: operator %q requires integer operands", op)
	}
	c := a.i.Cmp(b.i)
	switch op {
	case OpGt:
		return c > 0, nil
	case OpGte:
		return c >= 0, nil
	case OpLt:
		return c < 0, nil
	case OpLte:
		return c <= 0, nil
	default:
		return false, fmt.Errorf("expr: %q is not an ordering operator", op)
	}
}

// compareString implements CONTAINS/STARTS_WITH/ENDS_WITH,
// case-sensitive.
func compareString(a, b value, op Op) (bool, error) {
	if a.kind != kString || b.kind != kString {
		return false, fmt.Errorf("expr: operator %q requires string operands", op)
	}
	switch op {
	case OpContains:
		return strings.Contains(a.s, b.s), nil
	case OpStartsWith:
		return strings.HasPrefix(a.s, b.s), nil
	case OpEndsWith:
		return strings.HasSuffix(a.s, b.s), nil
	default:
		return false, fmt.Errorf("expr: %q is not a string operator", op)
	}
}
