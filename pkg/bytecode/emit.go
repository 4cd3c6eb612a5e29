package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/raymyers/dryfart/pkg/ir"
	"github.com/raymyers/dryfart/pkg/logger"
)

var (
	// ErrJumpOverflow is returned when a displacement does not fit in 16 bits.
	ErrJumpOverflow = errors.New("jump distance overflow")
	// ErrZeroJump is returned when sizing yields a jump of distance zero.
	ErrZeroJump = errors.New("zero-distance jump")
	// ErrJumpMismatch is returned when the sized displacement disagrees with
	// the final layout.
	ErrJumpMismatch = errors.New("jump distance mismatch")
	// ErrPlaceholder is returned for a patch or break terminator that was
	// never resolved.
	ErrPlaceholder = errors.New("unresolved placeholder terminator")
	// ErrUnsupported is returned for an instruction or constant with no
	// encoding.
	ErrUnsupported = errors.New("no encoding")
)

// maxTerm is the size every terminator is assumed to have before sizing.
const maxTerm = 3

type termKind int

const (
	termNone termKind = iota // falls through, no bytes
	termOp                   // one-byte terminator
	termJump
)

// lowBlock is one block after lowering: encoded code and a symbolic
// terminator.
type lowBlock struct {
	code   []byte
	kind   termKind
	op     Opcode // short form for jumps
	long   bool
	target int
	disp   int
}

func (b *lowBlock) termSize() int {
	switch b.kind {
	case termOp:
		return 1
	case termJump:
		if b.long {
			return 3
		}
		return 2
	}
	return 0
}

func (b *lowBlock) size() int {
	return len(b.code) + b.termSize()
}

// Block records where an IR block landed in its page's code.
type Block struct {
	Offset  int
	Size    int    // code and terminator bytes
	Term    Opcode // valid when HasTerm
	HasTerm bool
	Target  int // target block of a jump
	Disp    int // encoded displacement of a jump
}

// Layout is the encoded code of a page plus the placement of its blocks.
type Layout struct {
	Code   []byte
	Blocks []Block
	Short  int // jumps encoded in the short form
	Long   int
}

// Emit lowers every page of prog and serialises the image.
func Emit(prog *ir.Program) ([]byte, error) {
	logger.LogPhase("emit")
	img := &Image{
		Idents: prog.Idents.Names(),
		Consts: prog.Consts.Values(),
	}
	for i, p := range prog.Pages {
		l, err := LowerPage(p)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		logger.Debug("page emitted", "page", i, "bytes", len(l.Code), "short", l.Short, "long", l.Long)
		img.Pages = append(img.Pages, Page{
			Arity:   p.Arity,
			Upvals:  p.Upvals,
			Line:    p.Meta.Line,
			Name:    p.Meta.Name,
			HasName: p.Meta.HasName,
			Code:    l.Code,
		})
	}
	out, err := img.MarshalBinary()
	if err != nil {
		return nil, err
	}
	logger.LogPhaseComplete("emit")
	return out, nil
}

// LowerPage encodes the blocks of p and resolves its jumps.
//
// Sizing runs in two phases. The upper-bound pass assumes every terminator
// takes maxTerm bytes and picks a short or long form per jump. The shrink
// pass then removes the slack of every block a jump crosses. A final check
// recomputes each displacement from the real block offsets.
func LowerPage(p *ir.Page) (*Layout, error) {
	n := len(p.Blocks)
	blocks := make([]lowBlock, n)
	for i, b := range p.Blocks {
		code, err := lowerCode(b.Code)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		blocks[i].code = code
	}

	// Backwards, so a forward jump sees which blocks in between vanish.
	zero := make([]bool, n)
	for k := n - 1; k >= 0; k-- {
		if err := lowerTerm(p.Blocks[k].Term, k, blocks, zero); err != nil {
			return nil, fmt.Errorf("block %d: %w", k, err)
		}
		zero[k] = blocks[k].size() == 0
	}

	upperBound(blocks)
	if err := shrink(blocks); err != nil {
		return nil, err
	}
	return layout(blocks)
}

func lowerCode(code []ir.Instr) ([]byte, error) {
	var buf []byte
	for _, in := range code {
		var err error
		buf, err = appendInstr(buf, in)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// jumpOf returns the short jump opcode for t and the operands it pops.
func jumpOf(t ir.Term) (Opcode, int, bool) {
	switch t.(type) {
	case ir.Jump:
		return OpJump, 0, true
	case ir.JumpIfTrue:
		return OpJumpIfTrue, 1, true
	case ir.JumpIfFalse:
		return OpJumpIfFalse, 1, true
	case ir.JumpLt:
		return OpJumpLt, 2, true
	case ir.JumpLe:
		return OpJumpLe, 2, true
	case ir.JumpGt:
		return OpJumpGt, 2, true
	case ir.JumpGe:
		return OpJumpGe, 2, true
	}
	return 0, 0, false
}

// lowerTerm sets the symbolic terminator of block k. A jump whose target
// follows k with nothing but empty blocks in between needs no bytes: an
// unconditional one disappears and a conditional one pops its operands.
func lowerTerm(t ir.Term, k int, blocks []lowBlock, zero []bool) error {
	b := &blocks[k]
	switch t := t.(type) {
	case nil:
		return fmt.Errorf("%w: missing terminator", ErrPlaceholder)
	case ir.Nop:
		b.kind = termNone
		return nil
	case ir.Patch:
		return ErrPlaceholder
	case ir.Break:
		return fmt.Errorf("%w: break %d", ErrPlaceholder, t.Level)
	case ir.Return:
		b.kind, b.op = termOp, OpReturn
		return nil
	case ir.End:
		b.kind, b.op = termOp, OpEnd
		return nil
	case ir.Halt:
		b.kind, b.op = termOp, OpHalt
		return nil
	}

	op, pops, ok := jumpOf(t)
	if !ok {
		return fmt.Errorf("%w: terminator %T", ErrUnsupported, t)
	}
	target, _ := ir.Target(t)
	if target < 0 || target >= len(blocks) {
		return fmt.Errorf("jump to block %d of %d", target, len(blocks))
	}
	if adjacent(zero, k, target) {
		for ri := 0; ri < pops; ri++ {
			b.code = append(b.code, byte(OpPop))
		}
		b.kind = termNone
		return nil
	}
	b.kind, b.op, b.target = termJump, op, target
	return nil
}

func adjacent(zero []bool, from, to int) bool {
	if to <= from {
		return false
	}
	for j := from + 1; j < to; j++ {
		if !zero[j] {
			return false
		}
	}
	return true
}

// upperBound sets a tentative displacement for every jump assuming maxTerm
// bytes per terminator, and picks the encoding.
func upperBound(blocks []lowBlock) {
	ub := make([]int, len(blocks)+1)
	for k := range blocks {
		ub[k+1] = ub[k] + len(blocks[k].code) + maxTerm
	}
	for i := range blocks {
		b := &blocks[i]
		if b.kind != termJump {
			continue
		}
		if b.target > i {
			b.disp = ub[b.target] - ub[i+1]
			b.long = b.disp > 127
		} else {
			b.disp = -(ub[i+1] - ub[b.target])
			// The short form is one byte smaller than assumed, and that
			// byte is inside a backward jump's own distance.
			b.long = b.disp+1 < -128
		}
	}
}

// shrink removes the slack of every block crossed by a jump, its own block
// included for a backward jump.
func shrink(blocks []lowBlock) error {
	sl := make([]int, len(blocks)+1)
	for k := range blocks {
		sl[k+1] = sl[k] + maxTerm - blocks[k].termSize()
	}
	for i := range blocks {
		b := &blocks[i]
		if b.kind != termJump {
			continue
		}
		if b.target > i {
			b.disp -= sl[b.target] - sl[i+1]
		} else {
			b.disp += sl[i+1] - sl[b.target]
		}
		if b.disp == 0 {
			return fmt.Errorf("%w: block %d to %d", ErrZeroJump, i, b.target)
		}
	}
	return nil
}

// layout checks every displacement against the final offsets and writes
// the code.
func layout(blocks []lowBlock) (*Layout, error) {
	offsets := make([]int, len(blocks)+1)
	for k := range blocks {
		offsets[k+1] = offsets[k] + blocks[k].size()
	}

	l := &Layout{
		Code:   make([]byte, 0, offsets[len(blocks)]),
		Blocks: make([]Block, len(blocks)),
	}
	for i := range blocks {
		b := &blocks[i]
		info := Block{Offset: offsets[i], Size: b.size()}
		l.Code = append(l.Code, b.code...)

		switch b.kind {
		case termOp:
			info.Term, info.HasTerm = b.op, true
			l.Code = append(l.Code, byte(b.op))
		case termJump:
			want := offsets[b.target] - offsets[i+1]
			if b.disp != want {
				return nil, fmt.Errorf("%w: block %d to %d sized %d, laid out %d",
					ErrJumpMismatch, i, b.target, b.disp, want)
			}
			op := b.op
			if b.long {
				if b.disp < -32768 || b.disp > 32767 {
					return nil, fmt.Errorf("%w: block %d to %d is %d bytes",
						ErrJumpOverflow, i, b.target, b.disp)
				}
				op++ // long forms follow their short forms
				l.Code = append(l.Code, byte(op))
				l.Code = binary.BigEndian.AppendUint16(l.Code, uint16(int16(b.disp)))
				l.Long++
			} else {
				if b.disp < -128 || b.disp > 127 {
					return nil, fmt.Errorf("%w: short jump from block %d is %d bytes",
						ErrJumpMismatch, i, b.disp)
				}
				l.Code = append(l.Code, byte(op), byte(int8(b.disp)))
				l.Short++
			}
			info.Term, info.HasTerm = op, true
			info.Target, info.Disp = b.target, b.disp
		}
		l.Blocks[i] = info
	}
	return l, nil
}

// appendIndexed encodes an index operand in the short form when it fits a
// byte, else in the long form that follows short in the opcode table.
func appendIndexed(buf []byte, short Opcode, idx uint16) []byte {
	if idx < 256 {
		return append(buf, byte(short), byte(idx))
	}
	return binary.BigEndian.AppendUint16(append(buf, byte(short+1)), idx)
}

func appendU16(buf []byte, op Opcode, v uint16) []byte {
	return binary.BigEndian.AppendUint16(append(buf, byte(op)), v)
}

func appendInstr(buf []byte, in ir.Instr) ([]byte, error) {
	switch in := in.(type) {
	case ir.LoadBool:
		if in.Value {
			return append(buf, byte(OpTrue)), nil
		}
		return append(buf, byte(OpFalse)), nil
	case ir.LoadNat:
		if in.N > 3 {
			return nil, fmt.Errorf("%w: nat %d is not pre-encoded", ErrUnsupported, in.N)
		}
		return append(buf, byte(OpNat0+Opcode(in.N))), nil
	case ir.LoadInt:
		if in.N < -1 || in.N > 2 {
			return nil, fmt.Errorf("%w: int %d is not pre-encoded", ErrUnsupported, in.N)
		}
		return append(buf, byte(OpIntM1+Opcode(in.N+1))), nil
	case ir.LoadReal:
		if in.One {
			return append(buf, byte(OpReal1)), nil
		}
		return append(buf, byte(OpReal0)), nil
	case ir.LoadConst:
		return appendIndexed(buf, OpConst, in.Index), nil
	case ir.LoadGlobal:
		return appendU16(buf, OpLoadGlobal, in.Ident), nil
	case ir.StoreGlobal:
		return appendU16(buf, OpStoreGlobal, in.Ident), nil
	case ir.LoadLocal:
		return appendIndexed(buf, OpLoadLocal, in.Slot), nil
	case ir.StoreLocal:
		return appendIndexed(buf, OpStoreLocal, in.Slot), nil
	case ir.UpdateLocal:
		return appendIndexed(buf, OpUpdateLocal, in.Slot), nil
	case ir.LoadUpval:
		return append(buf, byte(OpLoadUpval), in.Index), nil
	case ir.SetField:
		return appendU16(buf, OpSetField, in.Ident), nil
	case ir.GetField:
		return appendU16(buf, OpGetField, in.Ident), nil
	case ir.MakeFunc:
		return appendU16(buf, OpMakeFunc, in.Page), nil
	case ir.MakeProc:
		return appendU16(buf, OpMakeProc, in.Page), nil
	case ir.CallFunc:
		return append(buf, byte(OpCallFunc), in.Arity), nil
	case ir.CallProc:
		return append(buf, byte(OpCallProc), in.Arity), nil
	}
	if op, ok := simpleOp(in); ok {
		return append(buf, byte(op)), nil
	}
	return nil, fmt.Errorf("%w: instruction %T", ErrUnsupported, in)
}

// simpleOp maps the operand-free instructions.
func simpleOp(in ir.Instr) (Opcode, bool) {
	switch in.(type) {
	case ir.LoadVoid:
		return OpVoid, true
	case ir.Neg:
		return OpNeg, true
	case ir.Add:
		return OpAdd, true
	case ir.Sub:
		return OpSub, true
	case ir.Mul:
		return OpMul, true
	case ir.Div:
		return OpDiv, true
	case ir.Inv:
		return OpInv, true
	case ir.Inc:
		return OpInc, true
	case ir.Dec:
		return OpDec, true
	case ir.Mod:
		return OpMod, true
	case ir.Not:
		return OpNot, true
	case ir.And:
		return OpAnd, true
	case ir.Or:
		return OpOr, true
	case ir.Xor:
		return OpXor, true
	case ir.Eq:
		return OpEq, true
	case ir.Ne:
		return OpNe, true
	case ir.Lt:
		return OpLt, true
	case ir.Le:
		return OpLe, true
	case ir.Gt:
		return OpGt, true
	case ir.Ge:
		return OpGe, true
	case ir.NewArray:
		return OpNewArray, true
	case ir.PushElem:
		return OpPushElem, true
	case ir.GetElem:
		return OpGetElem, true
	case ir.SetElem:
		return OpSetElem, true
	case ir.NewTable:
		return OpNewTable, true
	case ir.ToNat:
		return OpToNat, true
	case ir.ToInt:
		return OpToInt, true
	case ir.ToReal:
		return OpToReal, true
	case ir.Dup:
		return OpDup, true
	case ir.Swap:
		return OpSwap, true
	case ir.Rot:
		return OpRot, true
	case ir.Pop:
		return OpPop, true
	}
	return 0, false
}
