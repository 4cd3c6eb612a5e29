// Package optimize rewrites IR in place: peephole rules inside blocks,
// terminator reduction at block ends and jump threading across blocks.
package optimize

import (
	"errors"
	"fmt"

	"github.com/raymyers/dryfart/pkg/ir"
	"github.com/raymyers/dryfart/pkg/logger"
)

// ErrInvariant reports a rewrite that broke an IR invariant.
var ErrInvariant = errors.New("optimizer invariant violated")

// DefaultPasses is the number of passes run by default.
const DefaultPasses = 5

// Options controls the optimizer.
type Options struct {
	Passes    int
	Threading bool
}

// DefaultOptions returns the default optimizer settings.
func DefaultOptions() Options {
	return Options{Passes: DefaultPasses, Threading: true}
}

// Stats counts the rewrites made.
type Stats struct {
	Passes     int
	Peephole   map[string]int
	Reductions int
	Threaded   int
}

// Total is the number of rewrites of every kind.
func (s Stats) Total() int {
	n := s.Reductions + s.Threaded
	for _, c := range s.Peephole {
		n += c
	}
	return n
}

// Optimize runs up to opts.Passes passes over every page, stopping early
// once a pass changes nothing. Predecessor sets are recomputed after each
// pass.
func Optimize(prog *ir.Program, opts Options) (Stats, error) {
	logger.LogPhase("optimize")
	stats := Stats{Peephole: make(map[string]int)}

	for pass := 0; pass < opts.Passes; pass++ {
		before := stats.Total()
		for pi, p := range prog.Pages {
			if err := optimizePage(p, opts, &stats); err != nil {
				return stats, fmt.Errorf("page %d: %w", pi, err)
			}
		}
		stats.Passes++
		if stats.Total() == before {
			break
		}
	}

	for name, n := range stats.Peephole {
		logger.LogOptimization(name, n)
	}
	logger.LogOptimization("terminator-reduction", stats.Reductions)
	logger.LogOptimization("jump-threading", stats.Threaded)

	if err := prog.Validate(); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrInvariant, err)
	}
	logger.LogPhaseComplete("optimize")
	return stats, nil
}

func optimizePage(p *ir.Page, opts Options, stats *Stats) error {
	for i, b := range p.Blocks {
		for _, r := range Rules {
			code, n, err := Peephole(b.Code, r)
			if err != nil {
				return fmt.Errorf("block %d: %w", i, err)
			}
			b.Code = code
			stats.Peephole[r.Name] += n
		}
		if ReduceTerminator(p, i) {
			stats.Reductions++
		}
	}
	if opts.Threading {
		stats.Threaded += Thread(p)
	}
	p.ComputePreds()
	return nil
}
