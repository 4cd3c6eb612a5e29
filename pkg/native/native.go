// Package native provides the built-in library tables. Native values are
// referenced by qualified name ("STD$io$putLn") and resolved here.
package native

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/raymyers/dryfart/pkg/value"
)

var (
	// ErrUnknown is returned for a qualified name that is not in the library.
	ErrUnknown = errors.New("unknown native")
	// ErrArity is returned when a native is called with the wrong argument count.
	ErrArity = errors.New("wrong number of arguments")
	// ErrArgType is returned when a native receives an argument of the wrong type.
	ErrArgType = errors.New("wrong argument type")
)

// Sep joins the components of a qualified name.
const Sep = "$"

type builtin struct {
	arity int
	proc  bool
	call  func(w io.Writer, args []value.Value) (value.Value, error)
}

// tables lists every native table and its field names.
var tables = map[string][]string{
	"STD":    {"io", "a"},
	"STD$io": {"put", "putLn"},
	"STD$a":  {"eke", "len"},
}

var builtins = map[string]builtin{
	"STD$io$put": {arity: 1, proc: true, call: func(w io.Writer, args []value.Value) (value.Value, error) {
		_, err := io.WriteString(w, value.Display(args[0]))
		return value.Void{}, err
	}},
	"STD$io$putLn": {arity: 1, proc: true, call: func(w io.Writer, args []value.Value) (value.Value, error) {
		_, err := io.WriteString(w, value.Display(args[0])+"\n")
		return value.Void{}, err
	}},
	"STD$a$eke": {arity: 2, proc: true, call: func(_ io.Writer, args []value.Value) (value.Value, error) {
		arr, ok := args[0].(*value.Array)
		if !ok {
			return nil, fmt.Errorf("%w: eke expects an array, got %s", ErrArgType, args[0].Type())
		}
		if err := arr.Push(args[1]); err != nil {
			return nil, err
		}
		return value.Void{}, nil
	}},
	"STD$a$len": {arity: 1, call: func(_ io.Writer, args []value.Value) (value.Value, error) {
		arr, ok := args[0].(*value.Array)
		if !ok {
			return nil, fmt.Errorf("%w: len expects an array, got %s", ErrArgType, args[0].Type())
		}
		return value.Nat(arr.Len()), nil
	}},
}

// IsRoot reports whether name is a top-level native table such as STD.
func IsRoot(name string) bool {
	_, ok := tables[name]
	return ok && !strings.Contains(name, Sep)
}

// Roots returns the top-level table names in sorted order.
func Roots() []string {
	var out []string
	for name := range tables {
		if IsRoot(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Lookup resolves a qualified name to its native value.
func Lookup(qualified string) (value.Value, error) {
	if _, ok := tables[qualified]; ok {
		return value.NativeTable(qualified), nil
	}
	if b, ok := builtins[qualified]; ok {
		if b.proc {
			return value.NativeProc(qualified), nil
		}
		return value.NativeFunc(qualified), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknown, qualified)
}

// Field returns field name of the native table t.
func Field(t value.NativeTable, name string) (value.Value, error) {
	return Lookup(string(t) + Sep + name)
}

// Fields returns the field names of table t.
func Fields(t value.NativeTable) []string {
	return append([]string(nil), tables[string(t)]...)
}

// Call invokes the native function or procedure named qualified. Output
// goes to w.
func Call(w io.Writer, qualified string, args []value.Value) (value.Value, error) {
	b, ok := builtins[qualified]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, qualified)
	}
	if len(args) != b.arity {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArity, qualified, b.arity, len(args))
	}
	return b.call(w, args)
}
