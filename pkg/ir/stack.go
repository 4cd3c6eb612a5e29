package ir

import "fmt"

// StackEffect returns how many operands an instruction pops and how many
// results it pushes.
func StackEffect(in Instr) (pops, pushes int) {
	switch in := in.(type) {
	case LoadVoid, LoadBool, LoadNat, LoadInt, LoadReal, LoadConst,
		LoadGlobal, LoadLocal, LoadUpval, NewArray, NewTable:
		return 0, 1
	case Neg, Inv, Inc, Dec, Not, ToNat, ToInt, ToReal, GetField, UpdateLocal:
		return 1, 1
	case Add, Sub, Mul, Div, Mod, And, Or, Xor,
		Eq, Ne, Lt, Le, Gt, Ge, PushElem, GetElem, SetField:
		return 2, 1
	case StoreGlobal, StoreLocal, Pop:
		return 1, 0
	case SetElem:
		return 3, 0
	case MakeFunc:
		return int(in.Upvals), 1
	case MakeProc:
		return int(in.Upvals), 1
	case CallFunc:
		return int(in.Arity) + 1, 1
	case CallProc:
		return int(in.Arity) + 1, 0
	case Dup:
		return 1, 2
	case Swap:
		return 2, 2
	case Rot:
		return 3, 3
	}
	return 0, 0
}

// TermPops returns how many operands a terminator consumes.
func TermPops(t Term) int {
	switch t.(type) {
	case JumpIfTrue, JumpIfFalse, Return:
		return 1
	case JumpLt, JumpLe, JumpGt, JumpGe:
		return 2
	}
	return 0
}

// StackHeights computes the operand stack height on entry to each block,
// starting from entry at block 0. Unreachable blocks get -1. It fails when
// two paths reach a block with different heights or when a block pops more
// than the stack holds.
func (p *Page) StackHeights(entry int) ([]int, error) {
	heights := make([]int, len(p.Blocks))
	for i := range heights {
		heights[i] = -1
	}
	if len(p.Blocks) == 0 {
		return heights, nil
	}
	heights[0] = entry
	work := []int{0}
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		b := p.Blocks[i]

		h := heights[i]
		for k, in := range b.Code {
			pops, pushes := StackEffect(in)
			if h < pops {
				return nil, fmt.Errorf("%w: block %d instr %d pops %d of %d", ErrInvalid, i, k, pops, h)
			}
			h += pushes - pops
		}
		if b.Term == nil {
			continue
		}
		n := TermPops(b.Term)
		if h < n {
			return nil, fmt.Errorf("%w: block %d terminator pops %d of %d", ErrInvalid, i, n, h)
		}
		h -= n
		for _, s := range Successors(p, i) {
			switch heights[s] {
			case -1:
				heights[s] = h
				work = append(work, s)
			case h:
			default:
				return nil, fmt.Errorf("%w: block %d entered at height %d and %d", ErrInvalid, s, heights[s], h)
			}
		}
	}
	return heights, nil
}

// EntryHeight is the stack height when a page starts: empty for main, the
// callee plus its arguments for a subroutine.
func EntryHeight(index int, p *Page) int {
	if index == 0 {
		return 0
	}
	return 1 + int(p.Arity)
}
