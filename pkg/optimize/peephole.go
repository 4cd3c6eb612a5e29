package optimize

import (
	"fmt"

	"github.com/raymyers/dryfart/pkg/ir"
)

// Rule is a peephole pattern over a window of Size instructions. Match
// returns the replacement, which must not be longer than the window.
type Rule struct {
	Name  string
	Size  int
	Match func(window []ir.Instr) ([]ir.Instr, bool)
}

// Rules are the peephole rewrites applied by Optimize.
var Rules = []Rule{
	{Name: "load-store-local", Size: 2, Match: loadStoreLocal},
	{Name: "store-load-local", Size: 2, Match: storeLoadLocal},
	{Name: "reload-local", Size: 2, Match: reloadLocal},
	{Name: "reload-const", Size: 2, Match: reloadConst},
	{Name: "load-store-global", Size: 2, Match: loadStoreGlobal},
	{Name: "increment", Size: 2, Match: increment},
	{Name: "decrement", Size: 2, Match: decrement},
}

// ld a; st a -> (nothing)
func loadStoreLocal(w []ir.Instr) ([]ir.Instr, bool) {
	ld, ok1 := w[0].(ir.LoadLocal)
	st, ok2 := w[1].(ir.StoreLocal)
	if ok1 && ok2 && ld.Slot == st.Slot {
		return nil, true
	}
	return nil, false
}

// st a; ld a -> up a
func storeLoadLocal(w []ir.Instr) ([]ir.Instr, bool) {
	st, ok1 := w[0].(ir.StoreLocal)
	ld, ok2 := w[1].(ir.LoadLocal)
	if ok1 && ok2 && ld.Slot == st.Slot {
		return []ir.Instr{ir.UpdateLocal{Slot: st.Slot}}, true
	}
	return nil, false
}

// ld a; ld a -> ld a; dup
func reloadLocal(w []ir.Instr) ([]ir.Instr, bool) {
	a, ok1 := w[0].(ir.LoadLocal)
	b, ok2 := w[1].(ir.LoadLocal)
	if ok1 && ok2 && a.Slot == b.Slot {
		return []ir.Instr{a, ir.Dup{}}, true
	}
	return nil, false
}

// ldc k; ldc k -> ldc k; dup
func reloadConst(w []ir.Instr) ([]ir.Instr, bool) {
	a, ok1 := w[0].(ir.LoadConst)
	b, ok2 := w[1].(ir.LoadConst)
	if ok1 && ok2 && a.Index == b.Index {
		return []ir.Instr{a, ir.Dup{}}, true
	}
	return nil, false
}

// ldg a; stg a -> (nothing)
func loadStoreGlobal(w []ir.Instr) ([]ir.Instr, bool) {
	ld, ok1 := w[0].(ir.LoadGlobal)
	st, ok2 := w[1].(ir.StoreGlobal)
	if ok1 && ok2 && ld.Ident == st.Ident {
		return nil, true
	}
	return nil, false
}

func isOne(in ir.Instr) bool {
	switch in := in.(type) {
	case ir.LoadNat:
		return in.N == 1
	case ir.LoadInt:
		return in.N == 1
	}
	return false
}

// 1; add -> inc
func increment(w []ir.Instr) ([]ir.Instr, bool) {
	if _, ok := w[1].(ir.Add); ok && isOne(w[0]) {
		return []ir.Instr{ir.Inc{}}, true
	}
	return nil, false
}

// 1; sub -> dec
func decrement(w []ir.Instr) ([]ir.Instr, bool) {
	if ld, ok := w[0].(ir.LoadInt); ok && ld.N == 1 {
		if _, ok := w[1].(ir.Sub); ok {
			return []ir.Instr{ir.Dec{}}, true
		}
	}
	return nil, false
}

type match struct {
	pos  int
	repl []ir.Instr
}

// Peephole applies one rule over code. Windows are scanned left to right
// and never overlap; substitutions are applied back to front so earlier
// positions stay valid. It returns the rewritten code and the number of
// matches.
func Peephole(code []ir.Instr, r Rule) ([]ir.Instr, int, error) {
	n := r.Size
	if n <= 0 {
		return code, 0, fmt.Errorf("%w: rule %s has window %d", ErrInvariant, r.Name, n)
	}
	var matches []match
	for i := 0; i <= len(code)-n; {
		repl, ok := r.Match(code[i : i+n])
		if !ok {
			i++
			continue
		}
		if len(repl) > n {
			return code, 0, fmt.Errorf("%w: rule %s grows %d instructions to %d", ErrInvariant, r.Name, n, len(repl))
		}
		matches = append(matches, match{pos: i, repl: repl})
		i += n
	}
	if len(matches) == 0 {
		return code, 0, nil
	}

	before := len(code)
	for k := len(matches) - 1; k >= 0; k-- {
		m := matches[k]
		drain := n - len(m.repl)
		copy(code[m.pos:], m.repl)
		code = append(code[:m.pos+len(m.repl)], code[m.pos+len(m.repl)+drain:]...)
	}
	if len(code) > before {
		return code, 0, fmt.Errorf("%w: rule %s grew a block", ErrInvariant, r.Name)
	}
	return code, len(matches), nil
}
