package irgen

import (
	"fmt"

	"github.com/raymyers/dryfart/pkg/ir"
)

// MaxSlots is the largest frame a page may address.
const MaxSlots = 65535

// local binds a name to a stack slot.
type local struct {
	name string
	slot uint16
}

// CFGBuilder holds the compilation state of one subroutine: the blocks
// completed so far, the block under construction and the statically known
// operand stack.
type CFGBuilder struct {
	blocks []*ir.Block
	curr   *ir.Block

	// height is the operand stack height at the current point. Locals
	// occupy the bottom of the stack; transients sit above them.
	height int

	locals  []local
	upvals  []string
	records []uint16 // slots of tables under construction
	exits   *ExitContext

	sub  bool // slot 0 holds the running subroutine
	proc bool
}

// NewCFGBuilder creates the builder for main (sub false) or a subroutine.
func NewCFGBuilder(sub, proc bool) *CFGBuilder {
	b := &CFGBuilder{curr: &ir.Block{}, exits: NewExitContext(), sub: sub, proc: proc}
	if sub {
		b.height = 1
	}
	return b
}

// Emit appends an instruction to the current block.
func (b *CFGBuilder) Emit(in ir.Instr) {
	pops, pushes := ir.StackEffect(in)
	b.height += pushes - pops
	b.curr.Code = append(b.curr.Code, in)
}

// Close ends the current block with t, starts a new one and returns the
// index of the closed block.
func (b *CFGBuilder) Close(t ir.Term) int {
	b.height -= ir.TermPops(t)
	b.curr.Term = t
	b.blocks = append(b.blocks, b.curr)
	b.curr = &ir.Block{}
	return len(b.blocks) - 1
}

// ClosePatch ends the current block with a placeholder for a jump that will
// consume pops operands once its target is known.
func (b *CFGBuilder) ClosePatch(pops int) int {
	idx := b.Close(ir.Patch{})
	b.height -= pops
	return idx
}

// Patch resolves the placeholder of block idx.
func (b *CFGBuilder) Patch(idx int, t ir.Term) error {
	if _, ok := b.blocks[idx].Term.(ir.Patch); !ok {
		return fmt.Errorf("block %d is not a placeholder: %s", idx, ir.TermString(b.blocks[idx].Term))
	}
	b.blocks[idx].Term = t
	return nil
}

// Next is the index the current block will get when it is closed.
func (b *CFGBuilder) Next() int {
	return len(b.blocks)
}

// Blocks returns the completed blocks. The current block must have been
// closed.
func (b *CFGBuilder) Blocks() []*ir.Block {
	return b.blocks
}

// Declare binds name to the slot holding the top of the stack.
func (b *CFGBuilder) Declare(name string) (uint16, error) {
	if b.height-1 > MaxSlots {
		return 0, fmt.Errorf("%w: more than %d stack slots", ErrLimit, MaxSlots)
	}
	slot := uint16(b.height - 1)
	b.locals = append(b.locals, local{name: name, slot: slot})
	return slot, nil
}

// Local returns the slot of the innermost local called name.
func (b *CFGBuilder) Local(name string) (uint16, bool) {
	for i := len(b.locals) - 1; i >= 0; i-- {
		if b.locals[i].name == name {
			return b.locals[i].slot, true
		}
	}
	return 0, false
}

// Upval returns the index of upvalue name.
func (b *CFGBuilder) Upval(name string) (uint8, bool) {
	for i, u := range b.upvals {
		if u == name {
			return uint8(i), true
		}
	}
	return 0, false
}

// scope marks the state restored when a nested scope ends.
type scope struct {
	locals int
}

// openScope starts a nested scope.
func (b *CFGBuilder) openScope() scope {
	return scope{locals: len(b.locals)}
}

// closeScope pops every local declared since s.
func (b *CFGBuilder) closeScope(s scope) {
	for i := len(b.locals); i > s.locals; i-- {
		b.Emit(ir.Pop{})
	}
	b.locals = b.locals[:s.locals]
}

// ExitContext tracks the enclosing loops of the code being compiled.
// Break(n) leaves n loops, so Break(1) exits the innermost.
type ExitContext struct {
	loops []LoopFrame
}

// LoopFrame describes one enclosing loop.
type LoopFrame struct {
	First  int // first block of the loop
	Height int // stack height on entry
}

// NewExitContext creates a new exit context.
func NewExitContext() *ExitContext {
	return &ExitContext{}
}

// Push enters a loop whose blocks start at first.
func (e *ExitContext) Push(first, height int) {
	e.loops = append(e.loops, LoopFrame{First: first, Height: height})
}

// Pop leaves the innermost loop.
func (e *ExitContext) Pop() {
	if len(e.loops) > 0 {
		e.loops = e.loops[:len(e.loops)-1]
	}
}

// Get returns the loop left by Break(n).
func (e *ExitContext) Get(n int) (LoopFrame, bool) {
	idx := len(e.loops) - n
	if n < 1 || idx < 0 {
		return LoopFrame{}, false
	}
	return e.loops[idx], true
}

// Depth returns the current nesting depth.
func (e *ExitContext) Depth() int {
	return len(e.loops)
}

// resolveBreaks rewrites the break sentinels in blocks[first:]: level 1
// becomes a jump to exit, deeper levels move one loop outward.
func (b *CFGBuilder) resolveBreaks(first, exit int) {
	for _, blk := range b.blocks[first:] {
		brk, ok := blk.Term.(ir.Break)
		if !ok {
			continue
		}
		if brk.Level == 1 {
			blk.Term = ir.Jump{Target: exit}
		} else {
			blk.Term = ir.Break{Level: brk.Level - 1}
		}
	}
}
