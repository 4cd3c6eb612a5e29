// Package interp is the tree-walking backend: it executes the AST directly
// with the same semantics as the compiled form.
package interp

import (
	"io"
	"os"

	"github.com/raymyers/dryfart/pkg/ast"
	"github.com/raymyers/dryfart/pkg/logger"
	"github.com/raymyers/dryfart/pkg/native"
	"github.com/raymyers/dryfart/pkg/value"
)

// MaxDepth bounds subroutine call nesting.
const MaxDepth = 10000

// Interpreter executes programs. Out receives everything the program
// prints; it defaults to os.Stdout.
type Interpreter struct {
	Out io.Writer

	global *frame
	depth  int
}

// New creates an interpreter writing to out.
func New(out io.Writer) *Interpreter {
	if out == nil {
		out = os.Stdout
	}
	return &Interpreter{Out: out}
}

type actionKind int

const (
	actNone actionKind = iota
	actReturn
	actExit
	actBreak
)

// action is how a statement list finished.
type action struct {
	kind  actionKind
	level int
	val   value.Value
}

// Run executes a whole program in a fresh main scope.
func (ip *Interpreter) Run(prog *ast.Program) error {
	logger.LogPhase("interpret")
	ip.depth = 0
	f := newFrame(frameMain)
	if _, err := ip.execTop(f, prog.Body); err != nil {
		return err
	}
	logger.LogPhaseComplete("interpret")
	return nil
}

// Exec runs statements in a main scope that persists across calls. It
// reports whether the program exited.
func (ip *Interpreter) Exec(stmts []ast.Stmt) (bool, error) {
	if ip.global == nil {
		ip.global = newFrame(frameMain)
	}
	ip.depth = 0
	return ip.execTop(ip.global, stmts)
}

// Eval evaluates an expression in the persistent main scope.
func (ip *Interpreter) Eval(e ast.Expr) (value.Value, error) {
	if ip.global == nil {
		ip.global = newFrame(frameMain)
	}
	ip.depth = 0
	return ip.eval(ip.global, e)
}

func (ip *Interpreter) execTop(f *frame, stmts []ast.Stmt) (bool, error) {
	act, err := ip.execStmts(f, stmts)
	if err != nil {
		return false, err
	}
	switch act.kind {
	case actExit:
		return true, nil
	case actBreak:
		return false, fail(ErrControl, "break outside a loop")
	}
	return false, nil
}

func (ip *Interpreter) execStmts(f *frame, stmts []ast.Stmt) (action, error) {
	for _, s := range stmts {
		act, err := ip.exec(f, s)
		if err != nil || act.kind != actNone {
			return act, err
		}
	}
	return action{}, nil
}

// execScoped runs stmts in a nested scope.
func (ip *Interpreter) execScoped(f *frame, stmts []ast.Stmt) (action, error) {
	saved := f.env
	f.env = NewEnv(saved)
	defer func() { f.env = saved }()
	return ip.execStmts(f, stmts)
}

func (ip *Interpreter) exec(f *frame, s ast.Stmt) (action, error) {
	switch s := s.(type) {
	case ast.Assign:
		return action{}, ip.assign(f, s.Target, s.Value)
	case ast.OpAssign:
		return action{}, ip.opAssign(f, s)
	case ast.If:
		c, err := ip.evalBool(f, s.Cond)
		if err != nil {
			return action{}, err
		}
		if c {
			return ip.execScoped(f, s.Then)
		}
		return ip.execScoped(f, s.Else)
	case ast.Loop:
		return ip.loop(f, s)
	case ast.Break:
		if s.Level > f.loops {
			return action{}, fail(ErrControl, "break %d inside %d loops", s.Level, f.loops)
		}
		return action{kind: actBreak, level: s.Level}, nil
	case ast.Return:
		if f.kind != frameFunc {
			return action{}, fail(ErrControl, "return outside a func")
		}
		v, err := ip.eval(f, s.Value)
		if err != nil {
			return action{}, err
		}
		return action{kind: actReturn, val: v}, nil
	case ast.Exit:
		if f.kind == frameFunc {
			return action{}, fail(ErrControl, "exit inside a func")
		}
		return action{kind: actExit}, nil
	case ast.ProcCall:
		return action{}, ip.procCall(f, s.Call)
	}
	return action{}, fail(ErrType, "unknown statement %T", s)
}

// hoist declares, as void, every name the loop assigns that is not yet
// visible, so that each iteration sees the same binding.
func (ip *Interpreter) hoist(f *frame, s ast.Loop) {
	body := append(append([]ast.Stmt{}, s.Pre...), s.Post...)
	for _, name := range ast.AssignedNames(body) {
		if _, ok := f.env.Get(name); ok {
			continue
		}
		if _, ok := f.upvals[name]; ok {
			continue
		}
		f.env.Define(name, value.Void{})
	}
}

func (ip *Interpreter) loop(f *frame, s ast.Loop) (action, error) {
	ip.hoist(f, s)
	f.loops++
	defer func() { f.loops-- }()

	// leave reports whether act ends the loop and what to pass outward.
	leave := func(act action) (bool, action) {
		switch act.kind {
		case actNone:
			return false, act
		case actBreak:
			if act.level == 1 {
				return true, action{}
			}
			act.level--
			return true, act
		}
		return true, act
	}

	for {
		act, err := ip.execScoped(f, s.Pre)
		if err != nil {
			return action{}, err
		}
		if done, out := leave(act); done {
			return out, nil
		}
		if s.Cond != nil {
			c, err := ip.evalBool(f, s.Cond)
			if err != nil {
				return action{}, err
			}
			if !c {
				return action{}, nil
			}
		}
		act, err = ip.execScoped(f, s.Post)
		if err != nil {
			return action{}, err
		}
		if done, out := leave(act); done {
			return out, nil
		}
	}
}

func (ip *Interpreter) setName(f *frame, name string, v value.Value) {
	if !f.env.Set(name, v) {
		f.env.Define(name, v)
	}
}

func (ip *Interpreter) assign(f *frame, target, rhs ast.Expr) error {
	switch t := target.(type) {
	case ast.Ident:
		v, err := ip.eval(f, rhs)
		if err != nil {
			return err
		}
		ip.setName(f, t.Name, v)
		return nil
	case ast.Field:
		tbl, err := ip.eval(f, t.Table)
		if err != nil {
			return err
		}
		v, err := ip.eval(f, rhs)
		if err != nil {
			return err
		}
		return setField(tbl, t.Name, v)
	case ast.Binary:
		if t.Op == ast.OpIndex {
			arr, idx, err := ip.evalElem(f, t)
			if err != nil {
				return err
			}
			v, err := ip.eval(f, rhs)
			if err != nil {
				return err
			}
			return wrap(arr.Set(idx, v))
		}
	}
	return fail(ErrType, "cannot assign to %T", target)
}

// opAssign evaluates the target location once, then stores old op rhs.
func (ip *Interpreter) opAssign(f *frame, s ast.OpAssign) error {
	switch t := s.Target.(type) {
	case ast.Ident:
		old, err := ip.lookup(f, t.Name)
		if err != nil {
			return err
		}
		v, err := ip.eval(f, s.Value)
		if err != nil {
			return err
		}
		nv, err := binary(s.Op, old, v)
		if err != nil {
			return err
		}
		ip.setName(f, t.Name, nv)
		return nil
	case ast.Field:
		tbl, err := ip.eval(f, t.Table)
		if err != nil {
			return err
		}
		old, err := getField(tbl, t.Name)
		if err != nil {
			return err
		}
		v, err := ip.eval(f, s.Value)
		if err != nil {
			return err
		}
		nv, err := binary(s.Op, old, v)
		if err != nil {
			return err
		}
		return setField(tbl, t.Name, nv)
	case ast.Binary:
		if t.Op != ast.OpIndex {
			break
		}
		arr, idx, err := ip.evalElem(f, t)
		if err != nil {
			return err
		}
		old, err := arr.Get(idx)
		if err != nil {
			return wrap(err)
		}
		v, err := ip.eval(f, s.Value)
		if err != nil {
			return err
		}
		nv, err := binary(s.Op, old, v)
		if err != nil {
			return err
		}
		return wrap(arr.Set(idx, nv))
	}
	return fail(ErrType, "cannot assign to %T", s.Target)
}

func (ip *Interpreter) procCall(f *frame, call ast.Expr) error {
	fn, args, err := ip.evalCall(f, call)
	if err != nil {
		return err
	}
	_, err = ip.call(fn, args, true)
	return err
}

func (ip *Interpreter) call(fn value.Value, args []value.Value, stmt bool) (value.Value, error) {
	switch fn.Type() {
	case value.TProc:
		if !stmt {
			return nil, fail(ErrType, "proc %s used in an expression", fn)
		}
	case value.TFunc:
		if stmt {
			return nil, fail(ErrType, "func %s called as a statement", fn)
		}
	default:
		return nil, fail(ErrType, "%s is not callable", fn.Type())
	}

	switch c := fn.(type) {
	case value.NativeFunc:
		v, err := native.Call(ip.Out, string(c), args)
		return v, wrap(err)
	case value.NativeProc:
		v, err := native.Call(ip.Out, string(c), args)
		return v, wrap(err)
	case *Closure:
		return ip.callClosure(c, args)
	}
	return nil, fail(ErrType, "%s is not callable", fn)
}

func (ip *Interpreter) callClosure(c *Closure, args []value.Value) (value.Value, error) {
	if len(args) != len(c.Subr.Params) {
		return nil, fail(ErrArity, "%s takes %d arguments, got %d", c, len(c.Subr.Params), len(args))
	}
	if ip.depth >= MaxDepth {
		return nil, fail(ErrStackOverflow, "more than %d nested calls", MaxDepth)
	}
	ip.depth++
	defer func() { ip.depth-- }()

	kind := frameFunc
	if c.Subr.Proc {
		kind = frameProc
	}
	f := newFrame(kind)
	f.self = c
	for i, name := range c.Subr.Upvals {
		f.upvals[name] = c.Upvals[i]
	}
	for i, name := range c.Subr.Params {
		f.env.Define(name, args[i])
	}

	act, err := ip.execStmts(f, c.Subr.Body)
	if err != nil {
		return nil, err
	}
	switch act.kind {
	case actReturn:
		return act.val, nil
	case actBreak:
		return nil, fail(ErrControl, "break outside a loop")
	}
	if kind == frameFunc {
		return nil, fail(ErrControl, "%s ended without return", c)
	}
	return value.Void{}, nil
}
