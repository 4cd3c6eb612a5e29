package irgen

import (
	"bytes"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/raymyers/dryfart/pkg/ir"
	"github.com/raymyers/dryfart/pkg/parser"
	"github.com/raymyers/dryfart/pkg/value"
	"gopkg.in/yaml.v3"
)

// CompileSpec represents a test case from compile.yaml
type CompileSpec struct {
	Name  string   `yaml:"name"`
	Input string   `yaml:"input"`
	Want  []string `yaml:"want"`
	Error string   `yaml:"error"`
}

// CompileFile represents the compile.yaml file structure
type CompileFile struct {
	Tests []CompileSpec `yaml:"tests"`
}

func compileSource(t *testing.T, src string) (*ir.Program, error) {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return Compile(prog)
}

func mustCompile(t *testing.T, src string) *ir.Program {
	t.Helper()
	prog, err := compileSource(t, src)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return prog
}

func dump(prog *ir.Program) string {
	var buf bytes.Buffer
	ir.NewPrinter(&buf).PrintProgram(prog)
	return buf.String()
}

func TestCompileYAML(t *testing.T) {
	data, err := os.ReadFile("../../testdata/compile.yaml")
	if err != nil {
		t.Fatalf("failed to read compile.yaml: %v", err)
	}

	var compileFile CompileFile
	if err := yaml.Unmarshal(data, &compileFile); err != nil {
		t.Fatalf("failed to parse compile.yaml: %v", err)
	}

	for _, tc := range compileFile.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			prog, err := compileSource(t, tc.Input)
			if tc.Error != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got:\n%s", tc.Error, dump(prog))
				}
				if !strings.Contains(err.Error(), tc.Error) {
					t.Fatalf("expected error containing %q, got %v", tc.Error, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			out := dump(prog)
			for _, want := range tc.Want {
				if !strings.Contains(out, want) {
					t.Errorf("IR missing fragment:\n%s\ngot:\n%s", want, out)
				}
			}
		})
	}
}

func TestSimpleArithmetic(t *testing.T) {
	prog := mustCompile(t, "x = 1U + 2U.")
	if prog.Consts.Len() != 0 {
		t.Errorf("const pool has %d entries, want 0", prog.Consts.Len())
	}
	main := prog.Pages[0]
	if len(main.Blocks) != 1 {
		t.Fatalf("main has %d blocks, want 1", len(main.Blocks))
	}
	want := []ir.Instr{ir.LoadNat{N: 1}, ir.LoadNat{N: 2}, ir.Add{}}
	if !reflect.DeepEqual(main.Blocks[0].Code, want) {
		t.Errorf("code = %v, want %v", main.Blocks[0].Code, want)
	}
	if _, ok := main.Blocks[0].Term.(ir.Halt); !ok {
		t.Errorf("terminator = %v, want halt", main.Blocks[0].Term)
	}
}

func TestConstantDedup(t *testing.T) {
	prog := mustCompile(t, "a = 42U. b = 42U.")
	if prog.Consts.Len() != 1 || prog.Consts.Get(0) != value.Nat(42) {
		t.Fatalf("consts = %v, want [42U]", prog.Consts.Values())
	}
	want := []ir.Instr{ir.LoadConst{Index: 0}, ir.LoadConst{Index: 0}}
	if got := prog.Pages[0].Blocks[0].Code; !reflect.DeepEqual(got, want) {
		t.Errorf("code = %v, want %v", got, want)
	}
}

func TestPreEncodedNeverPooled(t *testing.T) {
	prog := mustCompile(t, `a = void. b = true. c = 0U. d = 3U. e = -1. f = 2. g = 0.0. h = 1.0. s = "".`)
	if prog.Consts.Len() != 0 {
		t.Errorf("const pool = %v, want empty", prog.Consts.Values())
	}
}

func TestLoopHoisting(t *testing.T) {
	prog := mustCompile(t, "@ (i < 10U) i = i + 1U. .")
	entry := prog.Pages[0].Blocks[0]
	if !reflect.DeepEqual(entry.Code, []ir.Instr{ir.LoadVoid{}}) {
		t.Errorf("entry code = %v, want [ld.void]", entry.Code)
	}
	if _, ok := entry.Term.(ir.Nop); !ok {
		t.Errorf("entry terminator = %v, want nop into the loop head", entry.Term)
	}
}

func TestNestedRecord(t *testing.T) {
	prog := mustCompile(t, "r = { a = 1U, b = { c = $@1 } }.")
	code := prog.Pages[0].Blocks[0].Code
	var loads []ir.LoadLocal
	for _, in := range code {
		if ld, ok := in.(ir.LoadLocal); ok {
			loads = append(loads, ld)
		}
	}
	if len(loads) != 1 || loads[0].Slot != 0 {
		t.Errorf("record loads = %v, want one load of slot 0", loads)
	}
}

func TestPagesInSourceOrder(t *testing.T) {
	prog := mustCompile(t, `
outer = func() {
  inner = func() { return 1. }.
  return inner().
}.
other = proc() { }.
`)
	if len(prog.Pages) != 4 {
		t.Fatalf("got %d pages, want 4", len(prog.Pages))
	}
	names := []string{"outer", "inner", "other"}
	for i, name := range names {
		meta := prog.Pages[i+1].Meta
		if !meta.HasName || prog.Idents.Name(meta.Name) != name {
			t.Errorf("page %d name = %v, want %s", i+1, meta, name)
		}
	}
	if prog.Pages[2].Meta.Line != 3 {
		t.Errorf("inner line = %d, want 3", prog.Pages[2].Meta.Line)
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		src  string
		kind error
	}{
		{"x = y.", ErrUndefined},
		{"break.", ErrBadBreak},
		{"return 1.", ErrBadControl},
		{"x = #.", ErrSelfOutside},
		{"x = { a = $@1 }.", ErrRecordDepth},
		{"x = int([1]).", ErrBadCast},
		{"f = func(; nope) { return 1. }.", ErrUndefined},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := compileSource(t, tt.src)
			if !errors.Is(err, tt.kind) {
				t.Errorf("expected %v, got %v", tt.kind, err)
			}
		})
	}
}

func TestTooManyArguments(t *testing.T) {
	args := strings.Repeat("1, ", MaxArity) + "1"
	_, err := compileSource(t, "f = func() { return 1. }. x = f("+args+").")
	if !errors.Is(err, ErrLimit) {
		t.Errorf("expected ErrLimit, got %v", err)
	}
}

// Every program the interpreter runs successfully must also compile to
// valid IR.
func TestCompileRunPrograms(t *testing.T) {
	data, err := os.ReadFile("../../testdata/run.yaml")
	if err != nil {
		t.Fatalf("failed to read run.yaml: %v", err)
	}
	var runFile struct {
		Tests []struct {
			Name  string `yaml:"name"`
			Input string `yaml:"input"`
			Error string `yaml:"error"`
		} `yaml:"tests"`
	}
	if err := yaml.Unmarshal(data, &runFile); err != nil {
		t.Fatalf("failed to parse run.yaml: %v", err)
	}
	for _, tc := range runFile.Tests {
		if tc.Error != "" {
			continue
		}
		t.Run(tc.Name, func(t *testing.T) {
			prog := mustCompile(t, tc.Input)
			if err := prog.Validate(); err != nil {
				t.Errorf("invalid IR: %v\n%s", err, dump(prog))
			}
		})
	}
}
