package value

import "strings"

// Table is a user table: a shared mutable mapping from field name to value.
// Field order is the order of first assignment.
type Table struct {
	fields map[string]Value
	order  []string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{fields: make(map[string]Value)}
}

func (t *Table) Type() Type { return TTable }

// Get returns the named field.
func (t *Table) Get(name string) (Value, bool) {
	v, ok := t.fields[name]
	return v, ok
}

// Set assigns the named field, creating it if absent.
func (t *Table) Set(name string, v Value) {
	if _, ok := t.fields[name]; !ok {
		t.order = append(t.order, name)
	}
	t.fields[name] = v
}

// Fields returns field names in assignment order.
func (t *Table) Fields() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of fields.
func (t *Table) Len() int { return len(t.order) }

func (t *Table) String() string {
	parts := make([]string, 0, len(t.order))
	for _, name := range t.order {
		v := t.fields[name]
		s := "<table>"
		if v.Type() != TTable {
			s = v.String()
		}
		parts = append(parts, name+" = "+s)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
