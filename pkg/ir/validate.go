package ir

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalid reports a malformed program.
var ErrInvalid = errors.New("invalid ir")

// Validate checks the structural invariants of every page: each block has
// exactly one resolved terminator, every jump target is a block of the same
// page, control never falls off the last block, recorded predecessors match
// the terminators and stack heights agree at every join.
func (prog *Program) Validate() error {
	if len(prog.Pages) == 0 {
		return fmt.Errorf("%w: no main page", ErrInvalid)
	}
	for pi, p := range prog.Pages {
		if err := p.validate(pi); err != nil {
			return fmt.Errorf("page %d: %w", pi, err)
		}
	}
	return nil
}

func (p *Page) validate(index int) error {
	if len(p.Blocks) == 0 {
		return fmt.Errorf("%w: no blocks", ErrInvalid)
	}
	for i, b := range p.Blocks {
		switch t := b.Term.(type) {
		case nil:
			return fmt.Errorf("%w: block %d has no terminator", ErrInvalid, i)
		case Patch:
			return fmt.Errorf("%w: block %d has an unresolved placeholder", ErrInvalid, i)
		case Break:
			return fmt.Errorf("%w: block %d has an unresolved break %d", ErrInvalid, i, t.Level)
		}
		if target, ok := Target(b.Term); ok && (target < 0 || target >= len(p.Blocks)) {
			return fmt.Errorf("%w: block %d jumps to %d of %d", ErrInvalid, i, target, len(p.Blocks))
		}
		if FallsThrough(b.Term) && i == len(p.Blocks)-1 {
			return fmt.Errorf("%w: last block %d falls through", ErrInvalid, i)
		}
	}

	want := make([][]int, len(p.Blocks))
	for i := range p.Blocks {
		for _, s := range Successors(p, i) {
			want[s] = append(want[s], i)
		}
	}
	for i, b := range p.Blocks {
		if !slices.Equal(b.Preds, want[i]) {
			return fmt.Errorf("%w: block %d preds %v, terminators give %v", ErrInvalid, i, b.Preds, want[i])
		}
	}

	_, err := p.StackHeights(EntryHeight(index, p))
	return err
}
