package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxPoolSize bounds both pools; indices are encoded in 16 bits.
const MaxPoolSize = 65535

// MaxIdentLen is the longest identifier the image format can carry.
const MaxIdentLen = 255

var (
	// ErrPoolOverflow is returned when a pool would exceed MaxPoolSize.
	ErrPoolOverflow = errors.New("pool overflow")
	// ErrIdentTooLong is returned for identifiers longer than MaxIdentLen bytes.
	ErrIdentTooLong = errors.New("identifier too long")
	// ErrNotConstant is returned for values that may not enter the constant pool.
	ErrNotConstant = errors.New("value cannot be pooled")
)

// ConstPool is an append-only, deduplicated, order-preserving list of
// constants. Void, Bool and the pre-encoded numbers are never pooled.
type ConstPool struct {
	values []Value
	index  map[string]uint16
}

// NewConstPool returns an empty constant pool.
func NewConstPool() *ConstPool {
	return &ConstPool{index: make(map[string]uint16)}
}

// Intern returns the index of v, adding it if it is not already present.
func (p *ConstPool) Intern(v Value) (uint16, error) {
	if IsPreEncoded(v) {
		return 0, fmt.Errorf("%w: %s has a dedicated load", ErrNotConstant, v)
	}
	key, err := constKey(v)
	if err != nil {
		return 0, err
	}
	if i, ok := p.index[key]; ok {
		return i, nil
	}
	if len(p.values) >= MaxPoolSize {
		return 0, fmt.Errorf("%w: more than %d constants", ErrPoolOverflow, MaxPoolSize)
	}
	i := uint16(len(p.values))
	if a, ok := v.(*Array); ok {
		v = a.Copy()
	}
	p.values = append(p.values, v)
	p.index[key] = i
	return i, nil
}

// Len returns the number of constants.
func (p *ConstPool) Len() int { return len(p.values) }

// Get returns constant i.
func (p *ConstPool) Get(i uint16) Value { return p.values[i] }

// Values returns the constants in index order.
func (p *ConstPool) Values() []Value {
	out := make([]Value, len(p.values))
	copy(out, p.values)
	return out
}

// constKey identifies a constant for deduplication. Reals are keyed by bit
// pattern so that 0.5 dedups but NaN payloads stay distinct.
func constKey(v Value) (string, error) {
	switch x := v.(type) {
	case Char:
		return "c" + strconv.Itoa(int(x)), nil
	case Nat:
		return "n" + strconv.FormatUint(uint64(x), 10), nil
	case Int:
		return "i" + strconv.FormatInt(int64(x), 10), nil
	case Real:
		return "r" + strconv.FormatUint(uint64(math.Float32bits(float32(x))), 16), nil
	case Bool:
		if x {
			return "b1", nil
		}
		return "b0", nil
	case NativeTable:
		return "t" + string(x), nil
	case *Array:
		var sb strings.Builder
		sb.WriteString("a")
		sb.WriteString(x.Elem().String())
		for _, e := range x.items {
			k, err := constKey(e)
			if err != nil {
				return "", err
			}
			sb.WriteByte(',')
			sb.WriteString(k)
		}
		return sb.String(), nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotConstant, v.Type())
}

// IdentPool is an append-only, deduplicated, order-preserving list of
// identifier byte strings.
type IdentPool struct {
	names []string
	index map[string]uint16
}

// NewIdentPool returns an empty identifier pool.
func NewIdentPool() *IdentPool {
	return &IdentPool{index: make(map[string]uint16)}
}

// Intern returns the index of name, adding it if needed.
func (p *IdentPool) Intern(name string) (uint16, error) {
	if i, ok := p.index[name]; ok {
		return i, nil
	}
	if len(name) > MaxIdentLen {
		return 0, fmt.Errorf("%w: %d bytes", ErrIdentTooLong, len(name))
	}
	if len(p.names) >= MaxPoolSize {
		return 0, fmt.Errorf("%w: more than %d identifiers", ErrPoolOverflow, MaxPoolSize)
	}
	i := uint16(len(p.names))
	p.names = append(p.names, name)
	p.index[name] = i
	return i, nil
}

// Lookup returns the index of name without adding it.
func (p *IdentPool) Lookup(name string) (uint16, bool) {
	i, ok := p.index[name]
	return i, ok
}

// Name returns identifier i.
func (p *IdentPool) Name(i uint16) string { return p.names[i] }

// Len returns the number of identifiers.
func (p *IdentPool) Len() int { return len(p.names) }

// Names returns the identifiers in index order.
func (p *IdentPool) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}
