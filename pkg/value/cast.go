package value

import (
	"fmt"
	"math"
)

// castMatrix lists, per target type, the source types a cast accepts.
var castMatrix = map[Type][]Type{
	TNat:  {TChar, TNat, TInt, TReal},
	TInt:  {TChar, TNat, TInt, TReal},
	TReal: {TNat, TInt, TReal},
}

// CanCast reports whether from -> to is in the cast matrix.
func CanCast(from, to Type) bool {
	for _, t := range castMatrix[to] {
		if t == from {
			return true
		}
	}
	return false
}

// Cast converts v to the numeric type to.
func Cast(v Value, to Type) (Value, error) {
	if !CanCast(v.Type(), to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrCast, v.Type(), to)
	}
	switch to {
	case TNat:
		switch x := v.(type) {
		case Char:
			return Nat(x), nil
		case Nat:
			return x, nil
		case Int:
			if x < 0 {
				return nil, fmt.Errorf("%w: %d is negative", ErrCast, x)
			}
			return Nat(x), nil
		case Real:
			f := math.Trunc(float64(x))
			if math.IsNaN(f) || f < 0 || f > math.MaxUint32 {
				return nil, fmt.Errorf("%w: %s out of nat range", ErrCast, x)
			}
			return Nat(f), nil
		}
	case TInt:
		switch x := v.(type) {
		case Char:
			return Int(x), nil
		case Nat:
			if x > math.MaxInt32 {
				return nil, fmt.Errorf("%w: %s out of int range", ErrCast, x)
			}
			return Int(x), nil
		case Int:
			return x, nil
		case Real:
			f := math.Trunc(float64(x))
			if math.IsNaN(f) || f < math.MinInt32 || f > math.MaxInt32 {
				return nil, fmt.Errorf("%w: %s out of int range", ErrCast, x)
			}
			return Int(f), nil
		}
	case TReal:
		switch x := v.(type) {
		case Nat:
			return Real(x), nil
		case Int:
			return Real(x), nil
		case Real:
			return x, nil
		}
	}
	return nil, fmt.Errorf("%w: %s to %s", ErrCast, v.Type(), to)
}
