package ir

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs IR in a readable assembly-like form
type Printer struct {
	w    io.Writer
	prog *Program
}

// NewPrinter creates a new IR printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram prints every page of a program
func (p *Printer) PrintProgram(prog *Program) {
	p.prog = prog
	defer func() { p.prog = nil }()
	for i, page := range prog.Pages {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		p.PrintPage(i, page)
	}
}

// PrintPage prints a single page
func (p *Printer) PrintPage(index int, page *Page) {
	fmt.Fprintf(p.w, "page %d %s line %d arity %d upvals %d\n",
		index, p.pageName(index, page), page.Meta.Line, page.Arity, page.Upvals)
	for i, b := range page.Blocks {
		fmt.Fprintf(p.w, "b%d:", i)
		if len(b.Preds) > 0 {
			names := make([]string, len(b.Preds))
			for k, pr := range b.Preds {
				names[k] = fmt.Sprintf("b%d", pr)
			}
			fmt.Fprintf(p.w, " ; preds %s", strings.Join(names, " "))
		}
		fmt.Fprintln(p.w)
		for _, in := range b.Code {
			fmt.Fprintf(p.w, "  %s%s\n", InstrString(in), p.annotate(in))
		}
		fmt.Fprintf(p.w, "  %s\n", TermString(b.Term))
	}
}

func (p *Printer) pageName(index int, page *Page) string {
	if page.Meta.HasName && p.prog != nil {
		if int(page.Meta.Name) < p.prog.Idents.Len() {
			return p.prog.Idents.Name(page.Meta.Name)
		}
	}
	if index == 0 {
		return "main"
	}
	return "anon"
}

// annotate resolves pool indices when the program is known.
func (p *Printer) annotate(in Instr) string {
	if p.prog == nil {
		return ""
	}
	var ident uint16
	switch in := in.(type) {
	case LoadConst:
		if int(in.Index) < p.prog.Consts.Len() {
			return "  ; " + p.prog.Consts.Get(in.Index).String()
		}
		return ""
	case LoadGlobal:
		ident = in.Ident
	case StoreGlobal:
		ident = in.Ident
	case GetField:
		ident = in.Ident
	case SetField:
		ident = in.Ident
	default:
		return ""
	}
	if int(ident) < p.prog.Idents.Len() {
		return "  ; " + p.prog.Idents.Name(ident)
	}
	return ""
}

// InstrString renders one instruction.
func InstrString(in Instr) string {
	switch in := in.(type) {
	case LoadVoid:
		return "ld.void"
	case LoadBool:
		return fmt.Sprintf("ld.bool %t", in.Value)
	case LoadNat:
		return fmt.Sprintf("ld.nat %d", in.N)
	case LoadInt:
		return fmt.Sprintf("ld.int %d", in.N)
	case LoadReal:
		if in.One {
			return "ld.real 1.0"
		}
		return "ld.real 0.0"
	case LoadConst:
		return fmt.Sprintf("ld.const %d", in.Index)
	case LoadGlobal:
		return fmt.Sprintf("ld.global %d", in.Ident)
	case StoreGlobal:
		return fmt.Sprintf("st.global %d", in.Ident)
	case LoadLocal:
		return fmt.Sprintf("ld.local %d", in.Slot)
	case StoreLocal:
		return fmt.Sprintf("st.local %d", in.Slot)
	case UpdateLocal:
		return fmt.Sprintf("up.local %d", in.Slot)
	case LoadUpval:
		return fmt.Sprintf("ld.upval %d", in.Index)
	case SetField:
		return fmt.Sprintf("tbl.set %d", in.Ident)
	case GetField:
		return fmt.Sprintf("tbl.get %d", in.Ident)
	case MakeFunc:
		return fmt.Sprintf("mk.func %d %d", in.Page, in.Upvals)
	case MakeProc:
		return fmt.Sprintf("mk.proc %d %d", in.Page, in.Upvals)
	case CallFunc:
		return fmt.Sprintf("call.func %d", in.Arity)
	case CallProc:
		return fmt.Sprintf("call.proc %d", in.Arity)
	}
	return simpleName(in)
}

func simpleName(in Instr) string {
	switch in.(type) {
	case Neg:
		return "neg"
	case Add:
		return "add"
	case Sub:
		return "sub"
	case Mul:
		return "mul"
	case Div:
		return "div"
	case Inv:
		return "inv"
	case Inc:
		return "inc"
	case Dec:
		return "dec"
	case Mod:
		return "mod"
	case Not:
		return "not"
	case And:
		return "and"
	case Or:
		return "or"
	case Xor:
		return "xor"
	case Eq:
		return "eq"
	case Ne:
		return "ne"
	case Lt:
		return "lt"
	case Le:
		return "le"
	case Gt:
		return "gt"
	case Ge:
		return "ge"
	case NewArray:
		return "arr.new"
	case PushElem:
		return "arr.push"
	case GetElem:
		return "arr.get"
	case SetElem:
		return "arr.set"
	case NewTable:
		return "tbl.new"
	case ToNat:
		return "to.nat"
	case ToInt:
		return "to.int"
	case ToReal:
		return "to.real"
	case Dup:
		return "dup"
	case Swap:
		return "swap"
	case Rot:
		return "rot"
	case Pop:
		return "pop"
	}
	return fmt.Sprintf("<%T>", in)
}

// TermString renders one terminator.
func TermString(t Term) string {
	switch t := t.(type) {
	case nil:
		return "<no terminator>"
	case Nop:
		return "nop"
	case Jump:
		return fmt.Sprintf("jmp b%d", t.Target)
	case JumpIfTrue:
		return fmt.Sprintf("jt b%d", t.Target)
	case JumpIfFalse:
		return fmt.Sprintf("jf b%d", t.Target)
	case JumpLt:
		return fmt.Sprintf("jlt b%d", t.Target)
	case JumpLe:
		return fmt.Sprintf("jle b%d", t.Target)
	case JumpGt:
		return fmt.Sprintf("jgt b%d", t.Target)
	case JumpGe:
		return fmt.Sprintf("jge b%d", t.Target)
	case Return:
		return "ret"
	case End:
		return "end"
	case Halt:
		return "halt"
	case Patch:
		return "patch"
	case Break:
		return fmt.Sprintf("break %d", t.Level)
	}
	return fmt.Sprintf("<%T>", t)
}
