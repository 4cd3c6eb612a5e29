package bytecode

import (
	"bytes"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/raymyers/dryfart/pkg/ir"
	"github.com/raymyers/dryfart/pkg/irgen"
	"github.com/raymyers/dryfart/pkg/optimize"
	"github.com/raymyers/dryfart/pkg/parser"
	"github.com/raymyers/dryfart/pkg/value"
)

func compile(t *testing.T, src string) *ir.Program {
	t.Helper()
	ast, err := parser.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	prog, err := irgen.Compile(ast)
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

func emit(t *testing.T, prog *ir.Program) *Image {
	t.Helper()
	data, err := Emit(prog)
	if err != nil {
		t.Fatal(err)
	}
	img, err := ReadImage(data)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func ops(ops ...Opcode) []byte {
	out := make([]byte, len(ops))
	for i, op := range ops {
		out[i] = byte(op)
	}
	return out
}

// checkLayout walks every block by opcode width and checks each jump's
// displacement against the block offsets.
func checkLayout(t *testing.T, l *Layout) {
	t.Helper()
	end := 0
	for i, b := range l.Blocks {
		if b.Offset != end {
			t.Fatalf("b%d at %d, previous block ended at %d", i, b.Offset, end)
		}
		ip := b.Offset
		for ip < b.Offset+b.Size {
			op := Opcode(l.Code[ip])
			if !op.Valid() {
				t.Fatalf("b%d: bad opcode 0x%02x at %d", i, l.Code[ip], ip)
			}
			ip += op.Width()
		}
		if ip != b.Offset+b.Size {
			t.Fatalf("b%d: opcode widths sum to %d, block is %d bytes", i, ip-b.Offset, b.Size)
		}
		end = ip
		if b.HasTerm && b.Term.IsJump() {
			if want := l.Blocks[b.Target].Offset - (b.Offset + b.Size); b.Disp != want {
				t.Errorf("b%d -> b%d: disp %d, blocks give %d", i, b.Target, b.Disp, want)
			}
		}
	}
	if end != len(l.Code) {
		t.Fatalf("blocks cover %d of %d bytes", end, len(l.Code))
	}
}

func TestOpcodeTable(t *testing.T) {
	for op := Opcode(0); op < numOpcodes; op++ {
		if opcodes[op].name == "" {
			t.Errorf("opcode %d has no name", op)
		}
	}
	// Long forms directly follow short forms.
	for _, short := range []Opcode{OpConst, OpLoadLocal, OpStoreLocal, OpUpdateLocal,
		OpJump, OpJumpIfTrue, OpJumpIfFalse, OpJumpLt, OpJumpLe, OpJumpGt, OpJumpGe} {
		long := short + 1
		if long.Width() != 3 || short.Width() != 2 {
			t.Errorf("%s/%s widths %d/%d", short, long, short.Width(), long.Width())
		}
		if long.String() != short.String()+".l" {
			t.Errorf("%s is not the long form of %s", long, short)
		}
	}
	if Opcode(numOpcodes).Valid() {
		t.Error("numOpcodes should not be valid")
	}
}

func TestEmitSimpleArithmetic(t *testing.T) {
	img := emit(t, compile(t, "x = 1U + 2U."))
	if len(img.Consts) != 0 {
		t.Errorf("consts = %v, want none", img.Consts)
	}
	want := ops(OpNat1, OpNat2, OpAdd, OpHalt)
	if !bytes.Equal(img.Pages[0].Code, want) {
		t.Errorf("code = % x, want % x", img.Pages[0].Code, want)
	}
}

func TestEmitConstantDedup(t *testing.T) {
	img := emit(t, compile(t, "a = 42U. b = 42U."))
	if !reflect.DeepEqual(img.Consts, []value.Value{value.Nat(42)}) {
		t.Fatalf("consts = %v", img.Consts)
	}
	want := []byte{byte(OpConst), 0, byte(OpConst), 0, byte(OpHalt)}
	if !bytes.Equal(img.Pages[0].Code, want) {
		t.Errorf("code = % x, want % x", img.Pages[0].Code, want)
	}
}

func TestImageBytes(t *testing.T) {
	img := &Image{
		Idents: []string{"ab"},
		Consts: []value.Value{value.Nat(42)},
		Pages: []Page{
			{Line: 1, Code: ops(OpHalt)},
			{Arity: 2, Upvals: 1, Line: 3, Name: 0, HasName: true, Code: ops(OpReturn)},
		},
	}
	got, err := img.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte(Magic)
	want = append(want, 0, 1, 2, 'a', 'b', 0)
	want = append(want, 0, 1, tagNat, 0, 0, 0, 42)
	want = append(want, 0, 2)
	want = append(want, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, byte(OpHalt), 0)
	want = append(want, 2, 1, 0, 0, 0, 3, 0xFF, 0, 0, 0, 0, 0, 1, byte(OpReturn), 0)
	if !bytes.Equal(got, want) {
		t.Errorf("image:\n got % x\nwant % x", got, want)
	}
}

func TestImageRoundTrip(t *testing.T) {
	bools, _ := value.NewArrayOf(value.Bool(true), value.Bool(false))
	reals, _ := value.NewArrayOf(value.Real(0.5), value.Real(-3))
	img := &Image{
		Idents: []string{"x", "putLn", ""},
		Consts: []value.Value{
			value.Char('a'),
			value.Nat(4000000000),
			value.Int(-7),
			value.Real(2.5),
			value.NativeTable("STD$io"),
			value.NewText("hi"),
			bools,
			reals,
		},
		Pages: []Page{{Line: 1, Code: ops(OpHalt)}},
	}
	data, err := img.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	got, err := ReadImage(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, img) {
		t.Errorf("round trip changed the image:\n got %+v\nwant %+v", got, img)
	}
}

func TestReadImageErrors(t *testing.T) {
	good, err := Emit(compile(t, "a = 42U."))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("\xDFDRYFARX"), good[8:]...)},
		{"truncated", good[:len(good)-3]},
		{"missing trailer", append(append([]byte{}, good[:len(good)-1]...), 1)},
		{"trailing bytes", append(append([]byte{}, good...), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadImage(tt.data); !errors.Is(err, ErrBadImage) {
				t.Errorf("err = %v, want ErrBadImage", err)
			}
		})
	}
}

func TestLowerPage(t *testing.T) {
	tests := []struct {
		name   string
		blocks []*ir.Block
		want   []byte
	}{
		{
			name: "forward conditional",
			blocks: []*ir.Block{
				{Code: []ir.Instr{ir.LoadBool{Value: true}}, Term: ir.JumpIfFalse{Target: 2}},
				{Code: []ir.Instr{ir.LoadInt{N: 1}, ir.Pop{}}, Term: ir.Nop{}},
				{Term: ir.Halt{}},
			},
			want: []byte{byte(OpTrue), byte(OpJumpIfFalse), 2, byte(OpInt1), byte(OpPop), byte(OpHalt)},
		},
		{
			name: "backward jump counts its own block",
			blocks: []*ir.Block{
				{Code: []ir.Instr{ir.LoadVoid{}}, Term: ir.Nop{}},
				{Code: []ir.Instr{ir.Dup{}, ir.Pop{}}, Term: ir.Jump{Target: 1}},
			},
			want: []byte{byte(OpVoid), byte(OpDup), byte(OpPop), byte(OpJump), 0xFC},
		},
		{
			name: "jump to next block is absent",
			blocks: []*ir.Block{
				{Code: []ir.Instr{ir.LoadVoid{}}, Term: ir.Jump{Target: 1}},
				{Term: ir.End{}},
			},
			want: ops(OpVoid, OpEnd),
		},
		{
			name: "conditional to next block pops",
			blocks: []*ir.Block{
				{Code: []ir.Instr{ir.LoadInt{N: 0}, ir.LoadInt{N: 2}}, Term: ir.JumpLt{Target: 1}},
				{Code: []ir.Instr{ir.LoadBool{Value: false}}, Term: ir.JumpIfTrue{Target: 2}},
				{Term: ir.Halt{}},
			},
			want: ops(OpInt0, OpInt2, OpPop, OpPop, OpFalse, OpPop, OpHalt),
		},
		{
			name: "empty blocks in between vanish",
			blocks: []*ir.Block{
				{Code: []ir.Instr{ir.LoadBool{Value: true}}, Term: ir.JumpIfFalse{Target: 3}},
				{Term: ir.Nop{}},
				{Term: ir.Jump{Target: 3}},
				{Term: ir.Halt{}},
			},
			want: ops(OpTrue, OpPop, OpHalt),
		},
		{
			name: "wide operands use long forms",
			blocks: []*ir.Block{
				{Code: []ir.Instr{ir.LoadConst{Index: 300}, ir.StoreLocal{Slot: 256}, ir.LoadLocal{Slot: 3}, ir.GetField{Ident: 2}}, Term: ir.Return{}},
			},
			want: []byte{byte(OpConstL), 1, 44, byte(OpStoreLocalL), 1, 0, byte(OpLoadLocal), 3, byte(OpGetField), 0, 2, byte(OpReturn)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := LowerPage(&ir.Page{Blocks: tt.blocks})
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(l.Code, tt.want) {
				t.Errorf("code = % x, want % x", l.Code, tt.want)
			}
			checkLayout(t, l)
		})
	}
}

func TestLowerPageLongJumpFromIR(t *testing.T) {
	var body []ir.Instr
	for ri := 0; ri < 100; ri++ {
		body = append(body, ir.LoadVoid{}, ir.Pop{})
	}
	p := &ir.Page{Blocks: []*ir.Block{
		{Code: []ir.Instr{ir.LoadBool{Value: true}}, Term: ir.JumpIfFalse{Target: 2}},
		{Code: body, Term: ir.Nop{}},
		{Term: ir.Halt{}},
	}}
	l, err := LowerPage(p)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{byte(OpTrue), byte(OpJumpIfFalseL), 0, 200}
	if !bytes.Equal(l.Code[:4], want) {
		t.Errorf("head = % x, want % x", l.Code[:4], want)
	}
	checkLayout(t, l)
}

func TestLongJumpInFunction(t *testing.T) {
	src := "f = func(x) { [ x => y = 1U. " + strings.Repeat("y += 1000U. ", 40) + "]. return 1. }. z = f(true)."
	prog := compile(t, src)
	l, err := LowerPage(prog.Pages[1])
	if err != nil {
		t.Fatal(err)
	}
	checkLayout(t, l)
	b0 := l.Blocks[0]
	if b0.Term != OpJumpIfFalseL || b0.Disp <= 127 {
		t.Fatalf("branch = %s %d, want a long jf over more than 127 bytes", b0.Term, b0.Disp)
	}

	again, err := LowerPage(prog.Pages[1])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again.Code, l.Code) {
		t.Error("lowering twice gave different code")
	}
}

func TestLongBackwardJump(t *testing.T) {
	src := "i = 0U. y = 0U. @ (i < 3U) " + strings.Repeat("y += 1000U. ", 30) + "i += 1U. ."
	l, err := LowerPage(compile(t, src).Pages[0])
	if err != nil {
		t.Fatal(err)
	}
	checkLayout(t, l)
	var back bool
	for i, b := range l.Blocks {
		if b.HasTerm && b.Term == OpJumpL && b.Target <= i && b.Disp < -128 {
			back = true
		}
	}
	if !back {
		t.Error("expected a long backward jump")
	}
}

func TestShortJumpsStayShort(t *testing.T) {
	l, err := LowerPage(compile(t, "x = 3. [ x < 2 => y = 1. | => y = 2. ].").Pages[0])
	if err != nil {
		t.Fatal(err)
	}
	checkLayout(t, l)
	if l.Long != 0 || l.Short == 0 {
		t.Errorf("short %d, long %d", l.Short, l.Long)
	}
}

func TestPlaceholdersAreRejected(t *testing.T) {
	for _, term := range []ir.Term{ir.Patch{}, ir.Break{Level: 1}, nil} {
		p := &ir.Page{Blocks: []*ir.Block{{Term: term}}}
		if _, err := LowerPage(p); !errors.Is(err, ErrPlaceholder) {
			t.Errorf("%s: err = %v, want ErrPlaceholder", ir.TermString(term), err)
		}
	}
}

func TestUnpooledConstantIsRejected(t *testing.T) {
	p := &ir.Page{Blocks: []*ir.Block{{Code: []ir.Instr{ir.LoadNat{N: 7}}, Term: ir.Halt{}}}}
	if _, err := LowerPage(p); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestOptimizedEmitIsStable(t *testing.T) {
	srcs := []string{
		"i = 0U. s = 0U. @ (i < 5U) s += i. i += 1U. .",
		"x = 1. y = 2. [ x < y => a = 1U. | => a = 2U. ].",
		"f = func(n) { [ !(n > 1U) => return 1U. | => return n * #(n - 1U). ]. }. z = f(5U).",
	}
	for _, src := range srcs {
		t.Run(src, func(t *testing.T) {
			prog := compile(t, src)
			if _, err := optimize.Optimize(prog, optimize.DefaultOptions()); err != nil {
				t.Fatal(err)
			}
			once, err := Emit(prog)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := optimize.Optimize(prog, optimize.DefaultOptions()); err != nil {
				t.Fatal(err)
			}
			twice, err := Emit(prog)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(once, twice) {
				t.Error("optimizing again changed the image")
			}
		})
	}
}

func TestCompareJumpInImage(t *testing.T) {
	prog := compile(t, "x = 1. y = 2. [ x < y => a = 1U. | => a = 2U. ].")
	if _, err := optimize.Optimize(prog, optimize.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	l, err := LowerPage(prog.Pages[0])
	if err != nil {
		t.Fatal(err)
	}
	if l.Blocks[0].Term != OpJumpGe {
		t.Errorf("branch = %s, want jge", l.Blocks[0].Term)
	}
	for ip := 0; ip < len(l.Code); ip += Opcode(l.Code[ip]).Width() {
		if Opcode(l.Code[ip]) == OpLt {
			t.Error("lt should have been folded into the jump")
		}
	}
}

func TestEmitRunPrograms(t *testing.T) {
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
			for _, opt := range []bool{false, true} {
				prog := compile(t, tc.Input)
				if opt {
					if _, err := optimize.Optimize(prog, optimize.DefaultOptions()); err != nil {
						t.Fatal(err)
					}
				}
				for i, p := range prog.Pages {
					l, err := LowerPage(p)
					if err != nil {
						t.Fatalf("page %d: %v", i, err)
					}
					checkLayout(t, l)
				}
				img := emit(t, prog)
				var buf bytes.Buffer
				if err := NewDisassembler(&buf).Disassemble(img); err != nil {
					t.Errorf("disassemble: %v", err)
				}
			}
		})
	}
}

func TestDisassemble(t *testing.T) {
	img := emit(t, compile(t, "a = 42U. f = func(x) { return x. }. [ a > 3U => STD$io$putLn(a). ]."))
	var buf bytes.Buffer
	if err := NewDisassembler(&buf).Disassemble(img); err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"consts 2\n  0 42U\n",
		"page 0 main (arity=0, upvals=0) line=1\n",
		"0000 const        0 ; 42U\n",
		"mk.func      1 ; f",
		"tbl.get      ",
		"; putLn",
		"\npage 1 f (arity=1, upvals=0) line=1\n",
		"ret",
		"halt",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "jle ") && !strings.Contains(out, "jf ") {
		t.Errorf("expected a branch in:\n%s", out)
	}
}

func TestDisassembleJumpTarget(t *testing.T) {
	img := &Image{Pages: []Page{{Code: []byte{byte(OpVoid), byte(OpJump), 0xFD}}}}
	var buf bytes.Buffer
	if err := NewDisassembler(&buf).DisassemblePage(img, 0); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "0001 jmp          -3 -> 0000") {
		t.Errorf("got:\n%s", buf.String())
	}
}

func TestDisassembleBadCode(t *testing.T) {
	for _, code := range [][]byte{{0xEE}, {byte(OpConstL), 0}} {
		img := &Image{Pages: []Page{{Code: code}}}
		if err := NewDisassembler(&bytes.Buffer{}).DisassemblePage(img, 0); !errors.Is(err, ErrBadImage) {
			t.Errorf("% x: err = %v, want ErrBadImage", code, err)
		}
	}
}
