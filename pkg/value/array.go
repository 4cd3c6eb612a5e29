package value

import (
	"fmt"
	"strings"
)

// Array is a shared, mutable, type-homogeneous vector. An empty array has no
// element type until its first push fixes one.
type Array struct {
	elem  Type
	items []Value
}

// NewArray returns an empty array of unknown element type.
func NewArray() *Array {
	return &Array{elem: TVoid}
}

// NewText returns a char array holding s.
func NewText(s string) *Array {
	a := &Array{elem: TChar, items: make([]Value, len(s))}
	for i := 0; i < len(s); i++ {
		a.items[i] = Char(s[i])
	}
	if len(s) == 0 {
		a.elem = TVoid
	}
	return a
}

// NewArrayOf builds an array from items, which must share one element type.
func NewArrayOf(items ...Value) (*Array, error) {
	a := NewArray()
	for _, v := range items {
		if err := a.Push(v); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Array) Type() Type { return TArray }

// Elem returns the element type, TVoid while the array is empty and untyped.
func (a *Array) Elem() Type { return a.elem }

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.items) }

// Get returns element i.
func (a *Array) Get(i int) (Value, error) {
	if i < 0 || i >= len(a.items) {
		return nil, fmt.Errorf("%w: index %d, length %d", ErrBounds, i, len(a.items))
	}
	return a.items[i], nil
}

// Set replaces element i.
func (a *Array) Set(i int, v Value) error {
	if i < 0 || i >= len(a.items) {
		return fmt.Errorf("%w: index %d, length %d", ErrBounds, i, len(a.items))
	}
	if v.Type() != a.elem {
		return fmt.Errorf("%w: %s into array of %s", ErrElemType, v.Type(), a.elem)
	}
	a.items[i] = v
	return nil
}

// Push appends v, fixing the element type on the first push.
func (a *Array) Push(v Value) error {
	t := v.Type()
	if !t.IsElem() {
		return fmt.Errorf("%w: %s cannot be an array element", ErrElemType, t)
	}
	if a.elem == TVoid {
		a.elem = t
	} else if a.elem != t {
		return fmt.Errorf("%w: %s into array of %s", ErrElemType, t, a.elem)
	}
	a.items = append(a.items, v)
	return nil
}

// Items returns a copy of the elements.
func (a *Array) Items() []Value {
	out := make([]Value, len(a.items))
	copy(out, a.items)
	return out
}

// Copy returns a new array with the same elements. Constants are copied on
// load so that programs cannot mutate the pool.
func (a *Array) Copy() *Array {
	return &Array{elem: a.elem, items: a.Items()}
}

// Text returns the contents as a string when a is a char array.
func (a *Array) Text() (string, bool) {
	if a.elem != TChar {
		return "", false
	}
	var sb strings.Builder
	for _, v := range a.items {
		sb.WriteByte(byte(v.(Char)))
	}
	return sb.String(), true
}

func (a *Array) String() string {
	if s, ok := a.Text(); ok {
		return fmt.Sprintf("%q", s)
	}
	parts := make([]string, len(a.items))
	for i, v := range a.items {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
