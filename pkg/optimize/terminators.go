package optimize

import "github.com/raymyers/dryfart/pkg/ir"

// negated maps a comparison to the jump taken when it is false.
func negated(in ir.Instr, target int) (ir.Term, bool) {
	switch in.(type) {
	case ir.Lt:
		return ir.JumpGe{Target: target}, true
	case ir.Le:
		return ir.JumpGt{Target: target}, true
	case ir.Gt:
		return ir.JumpLe{Target: target}, true
	case ir.Ge:
		return ir.JumpLt{Target: target}, true
	}
	return nil, false
}

// direct maps a comparison to the jump taken when it is true.
func direct(in ir.Instr, target int) (ir.Term, bool) {
	switch in.(type) {
	case ir.Lt:
		return ir.JumpLt{Target: target}, true
	case ir.Le:
		return ir.JumpLe{Target: target}, true
	case ir.Gt:
		return ir.JumpGt{Target: target}, true
	case ir.Ge:
		return ir.JumpGe{Target: target}, true
	}
	return nil, false
}

// reduceBranch folds the instruction feeding a conditional jump into the
// terminator. jumpOn is the truth value on which the branch is taken.
func reduceBranch(last ir.Instr, target int, jumpOn bool) (ir.Term, bool) {
	switch last := last.(type) {
	case ir.LoadBool:
		if last.Value == jumpOn {
			return ir.Jump{Target: target}, true
		}
		return ir.Nop{}, true
	case ir.Not:
		if jumpOn {
			return ir.JumpIfFalse{Target: target}, true
		}
		return ir.JumpIfTrue{Target: target}, true
	}
	if jumpOn {
		return direct(last, target)
	}
	return negated(last, target)
}

// ReduceTerminator simplifies the terminator of block i using the
// instruction before it. It reports whether the block changed.
func ReduceTerminator(p *ir.Page, i int) bool {
	b := p.Blocks[i]
	switch t := b.Term.(type) {
	case ir.JumpIfFalse, ir.JumpIfTrue:
		if len(b.Code) == 0 {
			return false
		}
		target, _ := ir.Target(t)
		_, jumpOn := t.(ir.JumpIfTrue)
		nt, ok := reduceBranch(b.Code[len(b.Code)-1], target, jumpOn)
		if !ok {
			return false
		}
		b.Code = b.Code[:len(b.Code)-1]
		b.Term = nt
		return true

	case ir.Jump:
		if t.Target == i+1 {
			b.Term = ir.Nop{}
			return true
		}

	case ir.End, ir.Halt:
		n := len(b.Code)
		for n > 0 {
			if _, ok := b.Code[n-1].(ir.Pop); !ok {
				break
			}
			n--
		}
		if n < len(b.Code) {
			b.Code = b.Code[:n]
			return true
		}
	}
	return false
}
