package interp

import (
	"fmt"

	"github.com/raymyers/dryfart/pkg/ast"
	"github.com/raymyers/dryfart/pkg/value"
)

// Env is one lexical scope. Define binds in this scope, Set updates the
// nearest visible binding, Get looks a name up through the parents.
type Env struct {
	parent *Env
	table  map[string]value.Value
}

// NewEnv creates a scope nested in parent, which may be nil.
func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, table: make(map[string]value.Value)}
}

// Define binds name in this scope, shadowing outer bindings.
func (e *Env) Define(name string, v value.Value) {
	e.table[name] = v
}

// Set updates the nearest binding of name and reports whether one existed.
func (e *Env) Set(name string, v value.Value) bool {
	for s := e; s != nil; s = s.parent {
		if _, ok := s.table[name]; ok {
			s.table[name] = v
			return true
		}
	}
	return false
}

// Get returns the nearest binding of name.
func (e *Env) Get(name string) (value.Value, bool) {
	for s := e; s != nil; s = s.parent {
		if v, ok := s.table[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Closure is a user func or proc: a shared subroutine descriptor plus the
// upvalues captured when the literal was evaluated. Closures compare by
// handle identity.
type Closure struct {
	Subr   *ast.Subr
	Upvals []value.Value
}

func (c *Closure) Type() value.Type {
	if c.Subr.Proc {
		return value.TProc
	}
	return value.TFunc
}

func (c *Closure) String() string {
	kind := "func"
	if c.Subr.Proc {
		kind = "proc"
	}
	return fmt.Sprintf("<%s/%d line %d>", kind, len(c.Subr.Params), c.Subr.Line)
}

type frameKind int

const (
	frameMain frameKind = iota
	frameFunc
	frameProc
)

// frame is the state of one subroutine activation.
type frame struct {
	kind    frameKind
	env     *Env
	upvals  map[string]value.Value
	self    *Closure
	records []*value.Table
	loops   int
}

func newFrame(kind frameKind) *frame {
	return &frame{kind: kind, env: NewEnv(nil), upvals: map[string]value.Value{}}
}
