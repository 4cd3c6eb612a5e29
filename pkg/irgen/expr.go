package irgen

import (
	"fmt"

	"github.com/raymyers/dryfart/pkg/ast"
	"github.com/raymyers/dryfart/pkg/ir"
	"github.com/raymyers/dryfart/pkg/native"
	"github.com/raymyers/dryfart/pkg/value"
)

// expr lowers e, leaving exactly one value on the stack.
func (c *Compiler) expr(e ast.Expr) error {
	switch e := e.(type) {
	case ast.Const:
		return c.constant(e.Value)
	case ast.Ident:
		return c.load(e.Name)
	case ast.Cast:
		return c.cast(e)
	case ast.Unary:
		if err := c.expr(e.Expr); err != nil {
			return err
		}
		c.b.Emit(unaryInstr(e.Op))
		return nil
	case ast.Binary:
		return c.binary(e)
	case ast.CmpChain:
		return c.chain(e)
	case ast.SubrLit:
		return c.subrLit(e.Subr, "")
	case ast.Call:
		return c.call(e, false)
	case ast.MethodCall:
		return c.methodCall(e, false)
	case ast.Field:
		return c.field(e)
	case ast.ArrayLit:
		c.b.Emit(ir.NewArray{})
		for _, el := range e.Elems {
			if err := c.expr(el); err != nil {
				return err
			}
			c.b.Emit(ir.PushElem{})
		}
		return nil
	case ast.TableLit:
		return c.table(e)
	case ast.RecordRef:
		if e.Depth < 0 || e.Depth >= len(c.b.records) {
			return fmt.Errorf("%w: $@%d inside %d tables", ErrRecordDepth, e.Depth, len(c.b.records))
		}
		c.b.Emit(ir.LoadLocal{Slot: c.b.records[len(c.b.records)-1-e.Depth]})
		return nil
	case ast.SelfRef:
		if !c.b.sub {
			return ErrSelfOutside
		}
		c.b.Emit(ir.LoadLocal{Slot: 0})
		return nil
	}
	return fmt.Errorf("unsupported expression %T", e)
}

// constant emits the dedicated load for pre-encoded values and a pool load
// for everything else.
func (c *Compiler) constant(v value.Value) error {
	switch x := v.(type) {
	case value.Void:
		c.b.Emit(ir.LoadVoid{})
		return nil
	case value.Bool:
		c.b.Emit(ir.LoadBool{Value: bool(x)})
		return nil
	case value.Nat:
		if value.IsPreEncoded(x) {
			c.b.Emit(ir.LoadNat{N: uint8(x)})
			return nil
		}
	case value.Int:
		if value.IsPreEncoded(x) {
			c.b.Emit(ir.LoadInt{N: int8(x)})
			return nil
		}
	case value.Real:
		if value.IsPreEncoded(x) {
			c.b.Emit(ir.LoadReal{One: x == 1})
			return nil
		}
	case *value.Array:
		if x.Len() == 0 {
			c.b.Emit(ir.NewArray{})
			return nil
		}
	}
	k, err := c.prog.Consts.Intern(v)
	if err != nil {
		return err
	}
	c.b.Emit(ir.LoadConst{Index: k})
	return nil
}

// load pushes the value of name: a local, then an upvalue, then a native
// root.
func (c *Compiler) load(name string) error {
	if slot, ok := c.b.Local(name); ok {
		c.b.Emit(ir.LoadLocal{Slot: slot})
		return nil
	}
	if idx, ok := c.b.Upval(name); ok {
		c.b.Emit(ir.LoadUpval{Index: idx})
		return nil
	}
	if native.IsRoot(name) {
		id, err := c.prog.Idents.Intern(name)
		if err != nil {
			return err
		}
		c.b.Emit(ir.LoadGlobal{Ident: id})
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUndefined, name)
}

// declared reports whether name resolves to a local or an upvalue.
func (c *Compiler) declared(name string) bool {
	if _, ok := c.b.Local(name); ok {
		return true
	}
	_, ok := c.b.Upval(name)
	return ok
}

// staticType returns the type of e when it is known without running it.
func staticType(e ast.Expr) (value.Type, bool) {
	switch e := e.(type) {
	case ast.Const:
		return e.Value.Type(), true
	case ast.Cast:
		return e.To, true
	case ast.ArrayLit:
		return value.TArray, true
	case ast.TableLit:
		return value.TTable, true
	case ast.CmpChain:
		return value.TBool, true
	case ast.SubrLit:
		if e.Subr.Proc {
			return value.TProc, true
		}
		return value.TFunc, true
	}
	return 0, false
}

func (c *Compiler) cast(e ast.Cast) error {
	if from, ok := staticType(e.Expr); ok && !value.CanCast(from, e.To) {
		return fmt.Errorf("%w: %s to %s", ErrBadCast, from, e.To)
	}
	if err := c.expr(e.Expr); err != nil {
		return err
	}
	switch e.To {
	case value.TNat:
		c.b.Emit(ir.ToNat{})
	case value.TInt:
		c.b.Emit(ir.ToInt{})
	case value.TReal:
		c.b.Emit(ir.ToReal{})
	default:
		return fmt.Errorf("%w: to %s", ErrBadCast, e.To)
	}
	return nil
}

func unaryInstr(op ast.UnaryOp) ir.Instr {
	switch op {
	case ast.OpNot:
		return ir.Not{}
	case ast.OpInv:
		return ir.Inv{}
	}
	return ir.Neg{}
}

// binaryInstr maps a non-short-circuit operator to its instruction.
func binaryInstr(op ast.BinaryOp) (ir.Instr, error) {
	switch op {
	case ast.OpAdd:
		return ir.Add{}, nil
	case ast.OpSub:
		return ir.Sub{}, nil
	case ast.OpMul:
		return ir.Mul{}, nil
	case ast.OpDiv:
		return ir.Div{}, nil
	case ast.OpMod:
		return ir.Mod{}, nil
	case ast.OpAnd:
		return ir.And{}, nil
	case ast.OpOr:
		return ir.Or{}, nil
	case ast.OpXor:
		return ir.Xor{}, nil
	case ast.OpIndex:
		return ir.GetElem{}, nil
	}
	return nil, fmt.Errorf("no instruction for operator %s", op)
}

func cmpInstr(op ast.CmpOp) ir.Instr {
	switch op {
	case ast.CmpNe:
		return ir.Ne{}
	case ast.CmpLt:
		return ir.Lt{}
	case ast.CmpLe:
		return ir.Le{}
	case ast.CmpGt:
		return ir.Gt{}
	case ast.CmpGe:
		return ir.Ge{}
	}
	return ir.Eq{}
}

func (c *Compiler) binary(e ast.Binary) error {
	if e.Op.IsShortCircuit() {
		return c.shortCircuit(e)
	}
	in, err := binaryInstr(e.Op)
	if err != nil {
		return err
	}
	if err := c.expr(e.Left); err != nil {
		return err
	}
	if err := c.expr(e.Right); err != nil {
		return err
	}
	c.b.Emit(in)
	return nil
}

// shortCircuit lowers a && b and a || b to a conditional jump over b:
//
//	a; dup; jf/jt end; pop; b; end:
func (c *Compiler) shortCircuit(e ast.Binary) error {
	if err := c.expr(e.Left); err != nil {
		return err
	}
	c.b.Emit(ir.Dup{})
	skip := c.b.ClosePatch(1)
	c.b.Emit(ir.Pop{})
	if err := c.expr(e.Right); err != nil {
		return err
	}
	end := c.b.Close(ir.Nop{}) + 1

	var t ir.Term = ir.JumpIfFalse{Target: end}
	if e.Op == ast.OpCondOr {
		t = ir.JumpIfTrue{Target: end}
	}
	return c.b.Patch(skip, t)
}

// chain lowers a comparison chain so that every term is evaluated once.
// Each intermediate comparison keeps its right operand for the next one:
//
//	a; b; dup; rot; lt; jf fail; c; le; jmp end
//	fail: pop; false
//	end:
func (c *Compiler) chain(e ast.CmpChain) error {
	if err := c.expr(e.Head); err != nil {
		return err
	}
	last := len(e.Rest) - 1
	var fails []int
	for i, term := range e.Rest {
		if err := c.expr(term.Expr); err != nil {
			return err
		}
		if i == last {
			c.b.Emit(cmpInstr(term.Op))
			break
		}
		c.b.Emit(ir.Dup{})
		c.b.Emit(ir.Rot{})
		c.b.Emit(cmpInstr(term.Op))
		fails = append(fails, c.b.ClosePatch(1))
	}
	if len(fails) == 0 {
		return nil
	}

	jumpEnd := c.b.ClosePatch(0)
	failBlock := c.b.Next()
	// The failing path enters with the pending right operand in place of
	// the result.
	c.b.Emit(ir.Pop{})
	c.b.Emit(ir.LoadBool{Value: false})
	end := c.b.Close(ir.Nop{}) + 1

	for _, f := range fails {
		if err := c.b.Patch(f, ir.JumpIfFalse{Target: failBlock}); err != nil {
			return err
		}
	}
	return c.b.Patch(jumpEnd, ir.Jump{Target: end})
}

// subrLit compiles the literal to a page, then loads its upvalues in the
// enclosing scope and builds the closure.
func (c *Compiler) subrLit(s *ast.Subr, name string) error {
	page, err := c.subr(s, name)
	if err != nil {
		return err
	}
	for _, u := range s.Upvals {
		if err := c.load(u); err != nil {
			return err
		}
	}
	n := uint8(len(s.Upvals))
	if s.Proc {
		c.b.Emit(ir.MakeProc{Page: page, Upvals: n})
	} else {
		c.b.Emit(ir.MakeFunc{Page: page, Upvals: n})
	}
	return nil
}

func (c *Compiler) args(args []ast.Expr, extra int) (uint8, error) {
	if len(args)+extra > MaxArity {
		return 0, fmt.Errorf("%w: %d arguments", ErrLimit, len(args)+extra)
	}
	for _, a := range args {
		if err := c.expr(a); err != nil {
			return 0, err
		}
	}
	return uint8(len(args) + extra), nil
}

func (c *Compiler) emitCall(arity uint8, stmt bool) {
	if stmt {
		c.b.Emit(ir.CallProc{Arity: arity})
	} else {
		c.b.Emit(ir.CallFunc{Arity: arity})
	}
}

func (c *Compiler) call(e ast.Call, stmt bool) error {
	if err := c.expr(e.Callee); err != nil {
		return err
	}
	n, err := c.args(e.Args, 0)
	if err != nil {
		return err
	}
	c.emitCall(n, stmt)
	return nil
}

// methodCall lowers t:m(args) as t; dup; get m; swap; args; call n+1.
func (c *Compiler) methodCall(e ast.MethodCall, stmt bool) error {
	id, err := c.prog.Idents.Intern(e.Name)
	if err != nil {
		return err
	}
	if err := c.expr(e.Recv); err != nil {
		return err
	}
	c.b.Emit(ir.Dup{})
	c.b.Emit(ir.GetField{Ident: id})
	c.b.Emit(ir.Swap{})
	n, err := c.args(e.Args, 1)
	if err != nil {
		return err
	}
	c.emitCall(n, stmt)
	return nil
}

// nativePath returns the qualified name of e when it statically denotes a
// native table, such as STD$io.
func (c *Compiler) nativePath(e ast.Expr) (string, bool) {
	switch e := e.(type) {
	case ast.Ident:
		if !c.declared(e.Name) && native.IsRoot(e.Name) {
			return e.Name, true
		}
	case ast.Field:
		base, ok := c.nativePath(e.Table)
		if !ok {
			return "", false
		}
		path := base + native.Sep + e.Name
		if v, err := native.Lookup(path); err == nil && v.Type() == value.TTable {
			return path, true
		}
	}
	return "", false
}

func (c *Compiler) field(e ast.Field) error {
	if path, ok := c.nativePath(e); ok {
		return c.constant(value.NativeTable(path))
	}
	id, err := c.prog.Idents.Intern(e.Name)
	if err != nil {
		return err
	}
	if err := c.expr(e.Table); err != nil {
		return err
	}
	c.b.Emit(ir.GetField{Ident: id})
	return nil
}

// table builds a table literal. The table's slot is pushed on the record
// stack while its fields are lowered so that $@N can reach it.
func (c *Compiler) table(e ast.TableLit) error {
	c.b.Emit(ir.NewTable{})
	c.b.records = append(c.b.records, uint16(c.b.height-1))
	defer func() { c.b.records = c.b.records[:len(c.b.records)-1] }()

	for _, f := range e.Fields {
		id, err := c.prog.Idents.Intern(f.Name)
		if err != nil {
			return err
		}
		if s, ok := f.Value.(ast.SubrLit); ok {
			err = c.subrLit(s.Subr, f.Name)
		} else {
			err = c.expr(f.Value)
		}
		if err != nil {
			return err
		}
		c.b.Emit(ir.SetField{Ident: id})
	}
	return nil
}
