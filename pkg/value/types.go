// Package value defines the runtime value model shared by the interpreter and
// the compiler: the closed set of types, the value kinds, structural equality,
// numeric casts, and the constant and identifier pools.
package value

// Type is the closed set of value types.
type Type uint8

const (
	TVoid Type = iota
	TBool
	TChar
	TNat
	TInt
	TReal
	TFunc
	TProc
	TArray
	TTable
)

func (t Type) String() string {
	names := []string{"void", "bool", "char", "nat", "int", "real", "func", "proc", "array", "table"}
	if int(t) < len(names) {
		return names[t]
	}
	return "?"
}

// IsNumeric reports whether t is Nat, Int or Real.
func (t Type) IsNumeric() bool {
	return t == TNat || t == TInt || t == TReal
}

// IsCopy reports whether values of t are copied by value.
// Everything else is a shared handle.
func (t Type) IsCopy() bool {
	return t <= TReal
}

// IsElem reports whether t may be stored in an array.
func (t Type) IsElem() bool {
	return t >= TBool && t <= TReal
}

// Default returns the default value of t. Func and Proc have none.
func (t Type) Default() (Value, bool) {
	switch t {
	case TVoid:
		return Void{}, true
	case TBool:
		return Bool(false), true
	case TChar:
		return Char(0), true
	case TNat:
		return Nat(0), true
	case TInt:
		return Int(0), true
	case TReal:
		return Real(0), true
	case TArray:
		return NewArray(), true
	case TTable:
		return NewTable(), true
	}
	return nil, false
}
