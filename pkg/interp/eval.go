package interp

import (
	"github.com/raymyers/dryfart/pkg/ast"
	"github.com/raymyers/dryfart/pkg/native"
	"github.com/raymyers/dryfart/pkg/value"
)

func (ip *Interpreter) eval(f *frame, e ast.Expr) (value.Value, error) {
	switch e := e.(type) {
	case ast.Const:
		// Array literals are copied so the program cannot change its own source.
		if arr, ok := e.Value.(*value.Array); ok {
			return arr.Copy(), nil
		}
		return e.Value, nil

	case ast.Ident:
		return ip.lookup(f, e.Name)

	case ast.Cast:
		v, err := ip.eval(f, e.Expr)
		if err != nil {
			return nil, err
		}
		out, err := value.Cast(v, e.To)
		return out, wrap(err)

	case ast.Unary:
		v, err := ip.eval(f, e.Expr)
		if err != nil {
			return nil, err
		}
		return unary(e.Op, v)

	case ast.Binary:
		return ip.evalBinary(f, e)

	case ast.CmpChain:
		left, err := ip.eval(f, e.Head)
		if err != nil {
			return nil, err
		}
		for _, term := range e.Rest {
			right, err := ip.eval(f, term.Expr)
			if err != nil {
				return nil, err
			}
			ok, err := compare(term.Op, left, right)
			if err != nil {
				return nil, err
			}
			if !ok {
				return value.Bool(false), nil
			}
			left = right
		}
		return value.Bool(true), nil

	case ast.SubrLit:
		c := &Closure{Subr: e.Subr, Upvals: make([]value.Value, len(e.Subr.Upvals))}
		for i, name := range e.Subr.Upvals {
			v, err := ip.lookup(f, name)
			if err != nil {
				return nil, err
			}
			c.Upvals[i] = v
		}
		return c, nil

	case ast.Call, ast.MethodCall:
		fn, args, err := ip.evalCall(f, e)
		if err != nil {
			return nil, err
		}
		return ip.call(fn, args, false)

	case ast.Field:
		tbl, err := ip.eval(f, e.Table)
		if err != nil {
			return nil, err
		}
		return getField(tbl, e.Name)

	case ast.ArrayLit:
		arr := value.NewArray()
		for _, el := range e.Elems {
			v, err := ip.eval(f, el)
			if err != nil {
				return nil, err
			}
			if err := arr.Push(v); err != nil {
				return nil, wrap(err)
			}
		}
		return arr, nil

	case ast.TableLit:
		tbl := value.NewTable()
		f.records = append(f.records, tbl)
		defer func() { f.records = f.records[:len(f.records)-1] }()
		for _, fi := range e.Fields {
			v, err := ip.eval(f, fi.Value)
			if err != nil {
				return nil, err
			}
			tbl.Set(fi.Name, v)
		}
		return tbl, nil

	case ast.RecordRef:
		if e.Depth < 0 || e.Depth >= len(f.records) {
			return nil, fail(ErrUndefined, "$@%d with %d enclosing tables", e.Depth, len(f.records))
		}
		return f.records[len(f.records)-1-e.Depth], nil

	case ast.SelfRef:
		if f.self == nil {
			return nil, fail(ErrUndefined, "# outside a subroutine")
		}
		return f.self, nil
	}
	return nil, fail(ErrType, "unknown expression %T", e)
}

func (ip *Interpreter) evalBool(f *frame, e ast.Expr) (bool, error) {
	v, err := ip.eval(f, e)
	if err != nil {
		return false, err
	}
	b, ok := v.(value.Bool)
	if !ok {
		return false, fail(ErrType, "condition is %s, not bool", v.Type())
	}
	return bool(b), nil
}

func (ip *Interpreter) evalBinary(f *frame, e ast.Binary) (value.Value, error) {
	if e.Op.IsShortCircuit() {
		l, err := ip.evalBool(f, e.Left)
		if err != nil {
			return nil, err
		}
		if l == (e.Op == ast.OpCondOr) {
			return value.Bool(l), nil
		}
		r, err := ip.evalBool(f, e.Right)
		if err != nil {
			return nil, err
		}
		return value.Bool(r), nil
	}
	if e.Op == ast.OpIndex {
		arr, idx, err := ip.evalElem(f, e)
		if err != nil {
			return nil, err
		}
		v, err := arr.Get(idx)
		return v, wrap(err)
	}
	l, err := ip.eval(f, e.Left)
	if err != nil {
		return nil, err
	}
	r, err := ip.eval(f, e.Right)
	if err != nil {
		return nil, err
	}
	return binary(e.Op, l, r)
}

// evalElem evaluates the array and index of a[i].
func (ip *Interpreter) evalElem(f *frame, e ast.Binary) (*value.Array, int, error) {
	av, err := ip.eval(f, e.Left)
	if err != nil {
		return nil, 0, err
	}
	arr, ok := av.(*value.Array)
	if !ok {
		return nil, 0, fail(ErrType, "cannot index %s", av.Type())
	}
	iv, err := ip.eval(f, e.Right)
	if err != nil {
		return nil, 0, err
	}
	switch i := iv.(type) {
	case value.Nat:
		return arr, int(i), nil
	case value.Int:
		return arr, int(i), nil
	}
	return nil, 0, fail(ErrType, "index is %s", iv.Type())
}

// evalCall evaluates the callee and arguments of a Call or MethodCall.
func (ip *Interpreter) evalCall(f *frame, e ast.Expr) (value.Value, []value.Value, error) {
	var fn value.Value
	var args []value.Value
	var argExprs []ast.Expr
	var err error
	switch c := e.(type) {
	case ast.Call:
		if fn, err = ip.eval(f, c.Callee); err != nil {
			return nil, nil, err
		}
		argExprs = c.Args
	case ast.MethodCall:
		recv, err := ip.eval(f, c.Recv)
		if err != nil {
			return nil, nil, err
		}
		if fn, err = getField(recv, c.Name); err != nil {
			return nil, nil, err
		}
		args = append(args, recv)
		argExprs = c.Args
	default:
		return nil, nil, fail(ErrType, "%T is not a call", e)
	}
	for _, a := range argExprs {
		v, err := ip.eval(f, a)
		if err != nil {
			return nil, nil, err
		}
		args = append(args, v)
	}
	return fn, args, nil
}

// lookup resolves a name: local scopes, then upvalues, then native roots.
func (ip *Interpreter) lookup(f *frame, name string) (value.Value, error) {
	if v, ok := f.env.Get(name); ok {
		return v, nil
	}
	if v, ok := f.upvals[name]; ok {
		return v, nil
	}
	if native.IsRoot(name) {
		return native.Lookup(name)
	}
	return nil, fail(ErrUndefined, "%s", name)
}

func getField(tv value.Value, name string) (value.Value, error) {
	switch t := tv.(type) {
	case *value.Table:
		v, ok := t.Get(name)
		if !ok {
			return nil, fail(ErrNoField, "%s", name)
		}
		return v, nil
	case value.NativeTable:
		v, err := native.Field(t, name)
		return v, wrap(err)
	}
	return nil, fail(ErrType, "field %s of %s", name, tv.Type())
}

func setField(tv value.Value, name string, v value.Value) error {
	t, ok := tv.(*value.Table)
	if !ok {
		return fail(ErrType, "cannot set field %s of %s", name, tv)
	}
	t.Set(name, v)
	return nil
}
