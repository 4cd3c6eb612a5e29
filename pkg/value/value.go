package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrRealEq is returned when two reals are compared for equality.
	ErrRealEq = errors.New("equality is not defined on reals")
	// ErrElemType is returned when an array receives an element of the wrong type.
	ErrElemType = errors.New("array element type mismatch")
	// ErrBounds is returned for an out-of-range array index.
	ErrBounds = errors.New("array index out of bounds")
	// ErrCast is returned for a cast outside the cast matrix or out of range.
	ErrCast = errors.New("invalid cast")
)

// Value is a runtime value. The concrete kinds are the primitive types below,
// *Array, *Table, NativeTable, NativeFunc, NativeProc, and user subroutine
// closures defined by the interpreter.
type Value interface {
	Type() Type
	String() string
}

// Void is the unit value.
type Void struct{}

// Bool is a truth value.
type Bool bool

// Char is an 8-bit character.
type Char byte

// Nat is an unsigned 32-bit integer.
type Nat uint32

// Int is a signed 32-bit integer.
type Int int32

// Real is a 32-bit IEEE-754 float.
type Real float32

// NativeTable references a library table by qualified name, e.g. "STD$io".
type NativeTable string

// NativeFunc references a library function by qualified name.
type NativeFunc string

// NativeProc references a library procedure by qualified name.
type NativeProc string

func (Void) Type() Type        { return TVoid }
func (Bool) Type() Type        { return TBool }
func (Char) Type() Type        { return TChar }
func (Nat) Type() Type         { return TNat }
func (Int) Type() Type         { return TInt }
func (Real) Type() Type        { return TReal }
func (NativeTable) Type() Type { return TTable }
func (NativeFunc) Type() Type  { return TFunc }
func (NativeProc) Type() Type  { return TProc }

func (Void) String() string { return "void" }

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (c Char) String() string {
	switch c {
	case '\n':
		return `'\n'`
	case '\t':
		return `'\t'`
	case '\r':
		return `'\r'`
	case 0:
		return `'\0'`
	case '\\':
		return `'\\'`
	case '\'':
		return `'\''`
	}
	if c < 0x20 || c == 0x7f {
		return fmt.Sprintf("'\\x%02x'", byte(c))
	}
	return "'" + string(rune(c)) + "'"
}

func (n Nat) String() string { return strconv.FormatUint(uint64(n), 10) + "U" }
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

func (r Real) String() string {
	f := float64(r)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 32)
	}
	s := strconv.FormatFloat(f, 'f', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func (t NativeTable) String() string { return "<table " + string(t) + ">" }
func (f NativeFunc) String() string  { return "<func " + string(f) + ">" }
func (p NativeProc) String() string  { return "<proc " + string(p) + ">" }

// Equal compares two values. Primitives compare by value, arrays element by
// element, user tables and closures by handle identity, natives by name.
// Comparing reals is an error.
func Equal(a, b Value) (bool, error) {
	if a.Type() != b.Type() {
		return false, nil
	}
	switch x := a.(type) {
	case Real:
		return false, ErrRealEq
	case *Array:
		y, ok := b.(*Array)
		if !ok {
			return false, nil
		}
		if x == y {
			return true, nil
		}
		if x.Len() != y.Len() {
			return false, nil
		}
		for i := range x.items {
			eq, err := Equal(x.items[i], y.items[i])
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	default:
		return a == b, nil
	}
}

// Display renders v the way the standard library prints it: char arrays as
// text, chars as the raw byte, everything else in literal form. An empty
// array has no element type yet and prints as empty text.
func Display(v Value) string {
	switch x := v.(type) {
	case Char:
		return string(rune(x))
	case *Array:
		if x.Len() == 0 {
			return ""
		}
		if s, ok := x.Text(); ok {
			return s
		}
		return x.String()
	}
	return v.String()
}

// IsPreEncoded reports whether v has a dedicated load opcode and therefore
// never enters the constant pool.
func IsPreEncoded(v Value) bool {
	switch x := v.(type) {
	case Void, Bool:
		return true
	case Nat:
		return x <= 3
	case Int:
		return x >= -1 && x <= 2
	case Real:
		bits := math.Float32bits(float32(x))
		return bits == math.Float32bits(0) || bits == math.Float32bits(1)
	}
	return false
}
