package ir

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/raymyers/dryfart/pkg/value"
)

// diamond builds: b0 cond -> b2 else b1; b1 -> b3; b2 falls to b3; b3 halt.
func diamond() *Page {
	p := &Page{Blocks: []*Block{
		{Code: []Instr{LoadBool{Value: true}}, Term: JumpIfFalse{Target: 2}},
		{Code: []Instr{LoadNat{N: 1}}, Term: Jump{Target: 3}},
		{Code: []Instr{LoadNat{N: 2}}, Term: Nop{}},
		{Code: []Instr{Pop{}}, Term: Halt{}},
	}}
	p.ComputePreds()
	return p
}

func TestStackEffect(t *testing.T) {
	tests := []struct {
		in     Instr
		pops   int
		pushes int
	}{
		{LoadConst{Index: 3}, 0, 1},
		{Add{}, 2, 1},
		{Not{}, 1, 1},
		{StoreLocal{Slot: 1}, 1, 0},
		{UpdateLocal{Slot: 1}, 1, 1},
		{SetElem{}, 3, 0},
		{SetField{Ident: 0}, 2, 1},
		{MakeFunc{Page: 1, Upvals: 2}, 2, 1},
		{CallFunc{Arity: 3}, 4, 1},
		{CallProc{Arity: 0}, 1, 0},
		{Dup{}, 1, 2},
		{Rot{}, 3, 3},
	}
	for _, tt := range tests {
		t.Run(InstrString(tt.in), func(t *testing.T) {
			pops, pushes := StackEffect(tt.in)
			if pops != tt.pops || pushes != tt.pushes {
				t.Errorf("StackEffect = (%d, %d), want (%d, %d)", pops, pushes, tt.pops, tt.pushes)
			}
		})
	}

	if TermPops(JumpGe{Target: 0}) != 2 || TermPops(JumpIfTrue{}) != 1 || TermPops(Halt{}) != 0 {
		t.Error("unexpected TermPops")
	}
}

func TestSuccessorsAndPreds(t *testing.T) {
	p := diamond()
	tests := []struct {
		block int
		succs []int
		preds []int
	}{
		{0, []int{1, 2}, nil},
		{1, []int{3}, []int{0}},
		{2, []int{3}, []int{0}},
		{3, nil, []int{1, 2}},
	}
	for _, tt := range tests {
		if got := Successors(p, tt.block); !slices.Equal(got, tt.succs) {
			t.Errorf("Successors(b%d) = %v, want %v", tt.block, got, tt.succs)
		}
		if got := p.Blocks[tt.block].Preds; !slices.Equal(got, tt.preds) {
			t.Errorf("b%d preds = %v, want %v", tt.block, got, tt.preds)
		}
	}
}

func TestConditionalToNextHasOneSuccessor(t *testing.T) {
	p := &Page{Blocks: []*Block{
		{Code: []Instr{LoadBool{}}, Term: JumpIfTrue{Target: 1}},
		{Term: Halt{}},
	}}
	if got := Successors(p, 0); !slices.Equal(got, []int{1}) {
		t.Errorf("Successors = %v, want [1]", got)
	}
}

func TestStackHeights(t *testing.T) {
	heights, err := diamond().StackHeights(0)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{0, 0, 0, 1}; !slices.Equal(heights, want) {
		t.Errorf("heights = %v, want %v", heights, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(p *Page)
		want string
	}{
		{"ok", func(p *Page) {}, ""},
		{"missing terminator", func(p *Page) { p.Blocks[1].Term = nil }, "no terminator"},
		{"placeholder", func(p *Page) { p.Blocks[1].Term = Patch{} }, "placeholder"},
		{"break sentinel", func(p *Page) { p.Blocks[1].Term = Break{Level: 1} }, "unresolved break"},
		{"bad target", func(p *Page) { p.Blocks[1].Term = Jump{Target: 9} }, "jumps to 9"},
		{"stale preds", func(p *Page) { p.Blocks[3].Preds = []int{1} }, "preds"},
		{"falls off the end", func(p *Page) { p.Blocks[3].Term = Nop{}; p.ComputePreds() }, "falls through"},
		{"height mismatch", func(p *Page) { p.Blocks[2].Code = append(p.Blocks[2].Code, LoadNat{N: 3}) }, "entered at height"},
		{"underflow", func(p *Page) { p.Blocks[0].Code = nil }, "pops 1 of 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := diamond()
			tt.edit(p)
			prog := NewProgram()
			prog.Pages = []*Page{p}
			err := prog.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateSubroutineEntryHeight(t *testing.T) {
	// A two-argument func returning its second parameter.
	sub := &Page{Arity: 2, Blocks: []*Block{
		{Code: []Instr{LoadLocal{Slot: 2}}, Term: Return{}},
	}}
	main := &Page{Blocks: []*Block{{Term: Halt{}}}}
	prog := NewProgram()
	prog.Pages = []*Page{main, sub}
	if err := prog.Validate(); err != nil {
		t.Fatal(err)
	}
	if EntryHeight(1, sub) != 3 {
		t.Errorf("EntryHeight = %d, want 3", EntryHeight(1, sub))
	}
}

func TestRetarget(t *testing.T) {
	got := Retarget(JumpLe{Target: 1}, 5)
	if got != (JumpLe{Target: 5}) {
		t.Errorf("Retarget = %v", got)
	}
	if Retarget(Halt{}, 5) != (Halt{}) {
		t.Error("Retarget changed a non-jump")
	}
	if _, ok := Target(Return{}); ok {
		t.Error("Return has no target")
	}
}

func TestPrintProgram(t *testing.T) {
	prog := NewProgram()
	k, _ := prog.Consts.Intern(value.Nat(42))
	f, _ := prog.Idents.Intern("putLn")
	prog.Pages = []*Page{{
		Meta: Meta{Line: 1},
		Blocks: []*Block{
			{Code: []Instr{LoadConst{Index: k}, GetField{Ident: f}, Pop{}}, Term: Halt{}},
		},
	}}

	var buf bytes.Buffer
	NewPrinter(&buf).PrintProgram(prog)
	want := `page 0 main line 1 arity 0 upvals 0
b0:
  ld.const 0  ; 42U
  tbl.get 0  ; putLn
  pop
  halt
`
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestPrintPreds(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintPage(1, diamond())
	out := buf.String()
	for _, want := range []string{"page 1 anon", "b3: ; preds b1 b2", "jf b2", "jmp b3", "ld.bool true"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
