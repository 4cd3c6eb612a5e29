package ir

// Target returns the block a terminator jumps to, if it jumps.
func Target(t Term) (int, bool) {
	switch t := t.(type) {
	case Jump:
		return t.Target, true
	case JumpIfTrue:
		return t.Target, true
	case JumpIfFalse:
		return t.Target, true
	case JumpLt:
		return t.Target, true
	case JumpLe:
		return t.Target, true
	case JumpGt:
		return t.Target, true
	case JumpGe:
		return t.Target, true
	}
	return 0, false
}

// Retarget returns t with its jump target replaced. Terminators that do not
// jump are returned unchanged.
func Retarget(t Term, target int) Term {
	switch t.(type) {
	case Jump:
		return Jump{Target: target}
	case JumpIfTrue:
		return JumpIfTrue{Target: target}
	case JumpIfFalse:
		return JumpIfFalse{Target: target}
	case JumpLt:
		return JumpLt{Target: target}
	case JumpLe:
		return JumpLe{Target: target}
	case JumpGt:
		return JumpGt{Target: target}
	case JumpGe:
		return JumpGe{Target: target}
	}
	return t
}

// FallsThrough reports whether control may continue into the next block.
func FallsThrough(t Term) bool {
	switch t.(type) {
	case Nop, Patch, JumpIfTrue, JumpIfFalse, JumpLt, JumpLe, JumpGt, JumpGe:
		return true
	}
	return false
}

// Successors returns the blocks control may reach from block i, in
// increasing order without duplicates.
func Successors(p *Page, i int) []int {
	t := p.Blocks[i].Term
	var succs []int
	if FallsThrough(t) && i+1 < len(p.Blocks) {
		succs = append(succs, i+1)
	}
	if target, ok := Target(t); ok {
		switch {
		case len(succs) == 0:
			succs = append(succs, target)
		case target < succs[0]:
			succs = []int{target, succs[0]}
		case target > succs[0]:
			succs = append(succs, target)
		}
	}
	return succs
}

// ComputePreds rebuilds every block's predecessor set from the terminators.
func (p *Page) ComputePreds() {
	for _, b := range p.Blocks {
		b.Preds = nil
	}
	for i := range p.Blocks {
		if p.Blocks[i].Term == nil {
			continue
		}
		for _, s := range Successors(p, i) {
			if s >= 0 && s < len(p.Blocks) {
				p.Blocks[s].Preds = append(p.Blocks[s].Preds, i)
			}
		}
	}
}

// ComputePreds rebuilds predecessor sets in every page.
func (prog *Program) ComputePreds() {
	for _, p := range prog.Pages {
		p.ComputePreds()
	}
}
