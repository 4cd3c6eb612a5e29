// Package irgen lowers the AST to the stack-machine IR: one page of basic
// blocks per subroutine, with page 0 holding the main program.
package irgen

import (
	"errors"
	"fmt"

	"github.com/raymyers/dryfart/pkg/ast"
	"github.com/raymyers/dryfart/pkg/ir"
	"github.com/raymyers/dryfart/pkg/logger"
)

// Limits of the page format.
const (
	MaxUpvals = 255
	MaxArity  = 255
)

var (
	// ErrUndefined is returned for a name that is neither a local, an upvalue
	// nor a native root.
	ErrUndefined = errors.New("undefined name")
	// ErrLimit is returned when a page exceeds an encoding limit.
	ErrLimit = errors.New("limit exceeded")
	// ErrBadCast is returned for a cast outside the cast matrix.
	ErrBadCast = errors.New("invalid cast")
	// ErrBadBreak is returned for a break leaving more loops than enclose it.
	ErrBadBreak = errors.New("invalid break")
	// ErrBadControl is returned for return outside a func or exit inside one.
	ErrBadControl = errors.New("invalid control flow")
	// ErrRecordDepth is returned for $@N with fewer than N+1 enclosing tables.
	ErrRecordDepth = errors.New("record reference too deep")
	// ErrSelfOutside is returned for # in the main program.
	ErrSelfOutside = errors.New("self reference outside a subroutine")
)

// Compiler holds the state shared by every page of a compilation unit.
type Compiler struct {
	prog *ir.Program
	b    *CFGBuilder
}

// Compile lowers a whole program.
func Compile(prog *ast.Program) (*ir.Program, error) {
	logger.LogPhase("irgen")
	c := &Compiler{prog: ir.NewProgram()}
	c.prog.Pages = append(c.prog.Pages, &ir.Page{Meta: ir.Meta{Line: 1}})

	c.b = NewCFGBuilder(false, false)
	if err := c.stmts(prog.Body); err != nil {
		return nil, err
	}
	c.b.Close(ir.Halt{})
	c.finish(0, c.b)

	if err := c.prog.Validate(); err != nil {
		return nil, fmt.Errorf("internal error: %w", err)
	}
	logger.LogPhaseComplete("irgen")
	return c.prog, nil
}

// finish publishes the blocks of b as page index.
func (c *Compiler) finish(index int, b *CFGBuilder) {
	page := c.prog.Pages[index]
	page.Blocks = b.Blocks()
	page.ComputePreds()
	logger.Debug("compiled page", "page", index, "blocks", len(page.Blocks))
}

// subr compiles a subroutine literal into a new page and returns its index.
// The page index is reserved before the body is compiled so pages appear in
// source order.
func (c *Compiler) subr(s *ast.Subr, name string) (uint16, error) {
	if len(c.prog.Pages) > MaxSlots {
		return 0, fmt.Errorf("%w: more than %d subroutines", ErrLimit, MaxSlots)
	}
	if len(s.Upvals) > MaxUpvals {
		return 0, fmt.Errorf("%w: %d upvalues", ErrLimit, len(s.Upvals))
	}
	if len(s.Params) > MaxArity {
		return 0, fmt.Errorf("%w: %d parameters", ErrLimit, len(s.Params))
	}

	index := len(c.prog.Pages)
	page := &ir.Page{
		Meta:   ir.Meta{Line: uint32(s.Line)},
		Arity:  uint8(len(s.Params)),
		Upvals: uint8(len(s.Upvals)),
	}
	if name != "" {
		id, err := c.prog.Idents.Intern(name)
		if err != nil {
			return 0, err
		}
		page.Meta.Name = id
		page.Meta.HasName = true
	}
	c.prog.Pages = append(c.prog.Pages, page)

	saved := c.b
	defer func() { c.b = saved }()

	c.b = NewCFGBuilder(true, s.Proc)
	c.b.upvals = append(c.b.upvals, s.Upvals...)
	for _, p := range s.Params {
		c.b.height++
		if _, err := c.b.Declare(p); err != nil {
			return 0, err
		}
	}
	if err := c.stmts(s.Body); err != nil {
		return 0, err
	}
	// A func that falls off its end halts; a proc returns.
	if s.Proc {
		c.b.Close(ir.End{})
	} else {
		c.b.Close(ir.Halt{})
	}
	c.finish(index, c.b)
	return uint16(index), nil
}
