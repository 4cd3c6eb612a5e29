package optimize

import "github.com/raymyers/dryfart/pkg/ir"

// Thread shortcuts jumps to empty blocks that only jump on: a jump to T,
// where T is "jmp T2" with no code, becomes a jump to T2. Chains are
// followed to their end; a cycle stops at the block where it closes. It
// returns the number of retargeted jumps.
func Thread(p *ir.Page) int {
	if len(p.Blocks) == 0 {
		return 0
	}
	resolved := resolveChains(buildJumpTargetMap(p))

	changed := 0
	for _, b := range p.Blocks {
		target, ok := ir.Target(b.Term)
		if !ok {
			continue
		}
		if final, ok := resolved[target]; ok && final != target {
			b.Term = ir.Retarget(b.Term, final)
			changed++
		}
	}
	return changed
}

// buildJumpTargetMap finds the empty blocks whose terminator is an
// unconditional jump.
func buildJumpTargetMap(p *ir.Page) map[int]int {
	result := make(map[int]int)
	for i, b := range p.Blocks {
		if len(b.Code) > 0 {
			continue
		}
		if j, ok := b.Term.(ir.Jump); ok {
			result[i] = j.Target
		}
	}
	return result
}

// resolveChains follows jump chains to their ultimate target.
func resolveChains(jumpTargets map[int]int) map[int]int {
	result := make(map[int]int)
	for blk := range jumpTargets {
		result[blk] = resolveBlock(blk, jumpTargets)
	}
	return result
}

// resolveBlock follows a jump chain to its ultimate target
func resolveBlock(blk int, jumpTargets map[int]int) int {
	visited := make(map[int]bool)
	current := blk
	for {
		if visited[current] {
			// Cycle detected - return current
			return current
		}
		visited[current] = true

		target, ok := jumpTargets[current]
		if !ok {
			return current
		}
		current = target
	}
}
