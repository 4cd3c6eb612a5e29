package irgen

import (
	"fmt"

	"github.com/raymyers/dryfart/pkg/ast"
	"github.com/raymyers/dryfart/pkg/ir"
)

func (c *Compiler) stmts(list []ast.Stmt) error {
	for _, s := range list {
		if err := c.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

// scoped compiles list in a nested scope whose locals are popped on exit.
func (c *Compiler) scoped(list []ast.Stmt) error {
	sc := c.b.openScope()
	if err := c.stmts(list); err != nil {
		return err
	}
	c.b.closeScope(sc)
	return nil
}

func (c *Compiler) stmt(s ast.Stmt) error {
	switch s := s.(type) {
	case ast.Assign:
		return c.assign(s)
	case ast.OpAssign:
		return c.opAssign(s)
	case ast.If:
		return c.ifStmt(s)
	case ast.Loop:
		return c.loop(s)
	case ast.Break:
		return c.breakStmt(s)
	case ast.Return:
		if !c.b.sub || c.b.proc {
			return fmt.Errorf("%w: return outside a func", ErrBadControl)
		}
		if err := c.expr(s.Value); err != nil {
			return err
		}
		c.b.Close(ir.Return{})
		return nil
	case ast.Exit:
		switch {
		case !c.b.sub:
			c.b.Close(ir.Halt{})
		case c.b.proc:
			c.b.Close(ir.End{})
		default:
			return fmt.Errorf("%w: exit inside a func", ErrBadControl)
		}
		return nil
	case ast.ProcCall:
		switch call := s.Call.(type) {
		case ast.Call:
			return c.call(call, true)
		case ast.MethodCall:
			return c.methodCall(call, true)
		}
		return fmt.Errorf("%T is not a call", s.Call)
	}
	return fmt.Errorf("unsupported statement %T", s)
}

// storeName stores the top of the stack into name, declaring a new local
// when name is not one already.
func (c *Compiler) storeName(name string) error {
	if slot, ok := c.b.Local(name); ok {
		c.b.Emit(ir.StoreLocal{Slot: slot})
		return nil
	}
	_, err := c.b.Declare(name)
	return err
}

func (c *Compiler) assign(s ast.Assign) error {
	switch t := s.Target.(type) {
	case ast.Ident:
		var err error
		if sub, ok := s.Value.(ast.SubrLit); ok {
			err = c.subrLit(sub.Subr, t.Name)
		} else {
			err = c.expr(s.Value)
		}
		if err != nil {
			return err
		}
		return c.storeName(t.Name)

	case ast.Field:
		id, err := c.prog.Idents.Intern(t.Name)
		if err != nil {
			return err
		}
		if err := c.expr(t.Table); err != nil {
			return err
		}
		if err := c.expr(s.Value); err != nil {
			return err
		}
		c.b.Emit(ir.SetField{Ident: id})
		c.b.Emit(ir.Pop{})
		return nil

	case ast.Binary:
		if t.Op != ast.OpIndex {
			break
		}
		for _, e := range []ast.Expr{t.Left, t.Right, s.Value} {
			if err := c.expr(e); err != nil {
				return err
			}
		}
		c.b.Emit(ir.SetElem{})
		return nil
	}
	return fmt.Errorf("cannot assign to %T", s.Target)
}

// opAssign lowers target op= value. The target's table or array and index
// are evaluated once; their slots are reloaded to read the old value.
func (c *Compiler) opAssign(s ast.OpAssign) error {
	op, err := binaryInstr(s.Op)
	if err != nil {
		return err
	}
	switch t := s.Target.(type) {
	case ast.Ident:
		if err := c.load(t.Name); err != nil {
			return err
		}
		if err := c.expr(s.Value); err != nil {
			return err
		}
		c.b.Emit(op)
		return c.storeName(t.Name)

	case ast.Field:
		id, err := c.prog.Idents.Intern(t.Name)
		if err != nil {
			return err
		}
		if err := c.expr(t.Table); err != nil {
			return err
		}
		tbl := uint16(c.b.height - 1)
		c.b.Emit(ir.LoadLocal{Slot: tbl})
		c.b.Emit(ir.GetField{Ident: id})
		if err := c.expr(s.Value); err != nil {
			return err
		}
		c.b.Emit(op)
		c.b.Emit(ir.SetField{Ident: id})
		c.b.Emit(ir.Pop{})
		return nil

	case ast.Binary:
		if t.Op != ast.OpIndex {
			break
		}
		if err := c.expr(t.Left); err != nil {
			return err
		}
		if err := c.expr(t.Right); err != nil {
			return err
		}
		arr := uint16(c.b.height - 2)
		c.b.Emit(ir.LoadLocal{Slot: arr})
		c.b.Emit(ir.LoadLocal{Slot: arr + 1})
		c.b.Emit(ir.GetElem{})
		if err := c.expr(s.Value); err != nil {
			return err
		}
		c.b.Emit(op)
		c.b.Emit(ir.SetElem{})
		return nil
	}
	return fmt.Errorf("cannot assign to %T", s.Target)
}

// ifStmt lowers an if with an optional else:
//
//	cond; patch(jf else)  then...; patch(jmp join)  else: ...  join:
func (c *Compiler) ifStmt(s ast.If) error {
	if err := c.expr(s.Cond); err != nil {
		return err
	}
	toElse := c.b.ClosePatch(1)
	if err := c.scoped(s.Then); err != nil {
		return err
	}
	toJoin := c.b.ClosePatch(0)

	elseStart := c.b.Next()
	join := elseStart
	if len(s.Else) > 0 {
		if err := c.scoped(s.Else); err != nil {
			return err
		}
		join = c.b.Close(ir.Nop{}) + 1
	}

	if err := c.b.Patch(toElse, ir.JumpIfFalse{Target: elseStart}); err != nil {
		return err
	}
	return c.b.Patch(toJoin, ir.Jump{Target: join})
}

// hoist declares, as void, every name the loop assigns that does not
// resolve yet, so that slots stay fixed across iterations.
func (c *Compiler) hoist(s ast.Loop) error {
	body := append(append([]ast.Stmt{}, s.Pre...), s.Post...)
	for _, name := range ast.AssignedNames(body) {
		if c.declared(name) {
			continue
		}
		c.b.Emit(ir.LoadVoid{})
		if _, err := c.b.Declare(name); err != nil {
			return err
		}
	}
	return nil
}

// loop lowers both loop shapes. An infinite loop is
//
//	nop  head: body; jmp head  exit:
//
// and a conditional loop is
//
//	nop  start: pre; cond; patch(jf exit)  post; jmp start  exit:
func (c *Compiler) loop(s ast.Loop) error {
	if err := c.hoist(s); err != nil {
		return err
	}
	head := c.b.Close(ir.Nop{}) + 1
	c.b.exits.Push(head, c.b.height)

	if s.Cond == nil {
		body := append(append([]ast.Stmt{}, s.Pre...), s.Post...)
		if err := c.scoped(body); err != nil {
			return err
		}
		c.b.Close(ir.Jump{Target: head})
	} else {
		if err := c.scoped(s.Pre); err != nil {
			return err
		}
		if err := c.expr(s.Cond); err != nil {
			return err
		}
		toExit := c.b.ClosePatch(1)
		if err := c.scoped(s.Post); err != nil {
			return err
		}
		c.b.Close(ir.Jump{Target: head})
		if err := c.b.Patch(toExit, ir.JumpIfFalse{Target: c.b.Next()}); err != nil {
			return err
		}
	}

	c.b.exits.Pop()
	c.b.resolveBreaks(head, c.b.Next())
	return nil
}

// breakStmt pops everything the enclosing loops pushed and leaves through a
// sentinel resolved when the target loop is complete.
func (c *Compiler) breakStmt(s ast.Break) error {
	target, ok := c.b.exits.Get(s.Level)
	if !ok {
		return fmt.Errorf("%w: break %d inside %d loops", ErrBadBreak, s.Level, c.b.exits.Depth())
	}
	height := c.b.height
	for i := height; i > target.Height; i-- {
		c.b.Emit(ir.Pop{})
	}
	c.b.Close(ir.Break{Level: s.Level})
	// Code after the break is unreachable but still compiled in the
	// enclosing scope.
	c.b.height = height
	return nil
}
