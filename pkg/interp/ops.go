package interp

import (
	"cmp"
	"math"

	"github.com/raymyers/dryfart/pkg/ast"
	"github.com/raymyers/dryfart/pkg/value"
)

// binary applies a non-short-circuit binary operator. Both operands must
// have the same type; Nat and Int arithmetic wraps.
func binary(op ast.BinaryOp, a, b value.Value) (value.Value, error) {
	if a.Type() != b.Type() {
		return nil, fail(ErrType, "%s %s %s", a.Type(), op, b.Type())
	}
	switch op {
	case ast.OpAnd, ast.OpOr, ast.OpXor:
		return bitwise(op, a, b)
	}
	switch x := a.(type) {
	case value.Nat:
		y := b.(value.Nat)
		switch op {
		case ast.OpAdd:
			return x + y, nil
		case ast.OpSub:
			return x - y, nil
		case ast.OpMul:
			return x * y, nil
		case ast.OpDiv, ast.OpMod:
			if y == 0 {
				return nil, fail(ErrDivZero, "%s %s %s", x, op, y)
			}
			if op == ast.OpDiv {
				return x / y, nil
			}
			return x % y, nil
		}
	case value.Int:
		y := b.(value.Int)
		switch op {
		case ast.OpAdd:
			return x + y, nil
		case ast.OpSub:
			return x - y, nil
		case ast.OpMul:
			return x * y, nil
		case ast.OpDiv, ast.OpMod:
			if y == 0 {
				return nil, fail(ErrDivZero, "%s %s %s", x, op, y)
			}
			if op == ast.OpDiv {
				return x / y, nil
			}
			return x % y, nil
		}
	case value.Real:
		y := b.(value.Real)
		switch op {
		case ast.OpAdd:
			return x + y, nil
		case ast.OpSub:
			return x - y, nil
		case ast.OpMul:
			return x * y, nil
		case ast.OpDiv:
			return x / y, nil
		case ast.OpMod:
			return value.Real(math.Mod(float64(x), float64(y))), nil
		}
	}
	return nil, fail(ErrType, "%s %s %s", a.Type(), op, b.Type())
}

func bitwise(op ast.BinaryOp, a, b value.Value) (value.Value, error) {
	switch x := a.(type) {
	case value.Bool:
		y := b.(value.Bool)
		switch op {
		case ast.OpAnd:
			return x && y, nil
		case ast.OpOr:
			return x || y, nil
		default:
			return value.Bool(x != y), nil
		}
	case value.Nat:
		y := b.(value.Nat)
		switch op {
		case ast.OpAnd:
			return x & y, nil
		case ast.OpOr:
			return x | y, nil
		default:
			return x ^ y, nil
		}
	case value.Int:
		y := b.(value.Int)
		switch op {
		case ast.OpAnd:
			return x & y, nil
		case ast.OpOr:
			return x | y, nil
		default:
			return x ^ y, nil
		}
	}
	return nil, fail(ErrType, "%s %s %s", a.Type(), op, b.Type())
}

func unary(op ast.UnaryOp, v value.Value) (value.Value, error) {
	switch op {
	case ast.OpNeg:
		switch x := v.(type) {
		case value.Int:
			return -x, nil
		case value.Real:
			return -x, nil
		}
	case ast.OpNot:
		switch x := v.(type) {
		case value.Bool:
			return !x, nil
		case value.Nat:
			return ^x, nil
		case value.Int:
			return ^x, nil
		}
	case ast.OpInv:
		if x, ok := v.(value.Real); ok {
			return 1 / x, nil
		}
	}
	return nil, fail(ErrType, "%s%s", op, v.Type())
}

// compare evaluates one link of a comparison chain.
func compare(op ast.CmpOp, a, b value.Value) (bool, error) {
	if a.Type() != b.Type() {
		return false, fail(ErrType, "%s %s %s", a.Type(), op, b.Type())
	}
	switch op {
	case ast.CmpEq, ast.CmpNe:
		eq, err := value.Equal(a, b)
		if err != nil {
			return false, wrap(err)
		}
		return eq == (op == ast.CmpEq), nil
	}
	var c int
	switch x := a.(type) {
	case value.Char:
		c = cmp.Compare(x, b.(value.Char))
	case value.Nat:
		c = cmp.Compare(x, b.(value.Nat))
	case value.Int:
		c = cmp.Compare(x, b.(value.Int))
	case value.Real:
		y := b.(value.Real)
		if math.IsNaN(float64(x)) || math.IsNaN(float64(y)) {
			return false, nil
		}
		c = cmp.Compare(x, y)
	default:
		return false, fail(ErrType, "%s is not ordered", a.Type())
	}
	switch op {
	case ast.CmpLt:
		return c < 0, nil
	case ast.CmpLe:
		return c <= 0, nil
	case ast.CmpGt:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}
