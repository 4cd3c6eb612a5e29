package ast

import (
	"fmt"
	"io"
	"strings"

	"github.com/raymyers/dryfart/pkg/value"
)

// Printer outputs the AST as source text that parses back to the same tree
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a new AST printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, indent: 0}
}

// PrintProgram prints a complete program
func (p *Printer) PrintProgram(prog *Program) {
	p.printStmts(prog.Body)
}

// PrintExpr prints a single expression without a trailing newline
func (p *Printer) PrintExpr(e Expr) {
	fmt.Fprint(p.w, p.expr(e))
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
}

func (p *Printer) printStmts(stmts []Stmt) {
	for _, s := range stmts {
		p.printStmt(s)
	}
}

func (p *Printer) printStmt(s Stmt) {
	p.writeIndent()
	switch s := s.(type) {
	case Assign:
		fmt.Fprintf(p.w, "%s = %s.\n", p.expr(s.Target), p.expr(s.Value))
	case OpAssign:
		fmt.Fprintf(p.w, "%s %s= %s.\n", p.expr(s.Target), s.Op, p.expr(s.Value))
	case If:
		fmt.Fprintln(p.w, "[")
		p.printBranches(s)
		p.writeIndent()
		fmt.Fprintln(p.w, "].")
	case Loop:
		fmt.Fprintln(p.w, "@")
		p.indent++
		p.printStmts(s.Pre)
		if s.Cond != nil {
			p.writeIndent()
			fmt.Fprintln(p.w, p.loopCond(s.Cond))
			p.printStmts(s.Post)
		}
		p.indent--
		p.writeIndent()
		fmt.Fprintln(p.w, ".")
	case Break:
		if s.Level > 1 {
			fmt.Fprintf(p.w, "break %d.\n", s.Level)
		} else {
			fmt.Fprintln(p.w, "break.")
		}
	case Return:
		fmt.Fprintf(p.w, "return %s.\n", p.expr(s.Value))
	case Exit:
		fmt.Fprintln(p.w, "exit.")
	case ProcCall:
		fmt.Fprintf(p.w, "%s.\n", p.expr(s.Call))
	default:
		fmt.Fprintf(p.w, "/* unknown statement %T */\n", s)
	}
}

// printBranches prints the arms of an if, flattening else-if chains.
func (p *Printer) printBranches(s If) {
	p.indent++
	p.writeIndent()
	fmt.Fprintf(p.w, "%s =>\n", p.expr(s.Cond))
	p.indent++
	p.printStmts(s.Then)
	p.indent--
	p.indent--
	if s.Else == nil {
		return
	}
	p.writeIndent()
	fmt.Fprint(p.w, "|")
	if len(s.Else) == 1 {
		if elif, ok := s.Else[0].(If); ok {
			fmt.Fprintln(p.w)
			p.printBranches(elif)
			return
		}
	}
	fmt.Fprintln(p.w, " =>")
	p.indent += 2
	p.printStmts(s.Else)
	p.indent -= 2
}

// loopCond wraps a loop condition in the parentheses the syntax requires,
// unless expr already printed them.
func (p *Printer) loopCond(e Expr) string {
	switch e := e.(type) {
	case CmpChain:
		return p.expr(e)
	case Binary:
		if e.Op != OpIndex {
			return p.expr(e)
		}
	}
	return "(" + p.expr(e) + ")"
}

func (p *Printer) exprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = p.expr(e)
	}
	return strings.Join(parts, ", ")
}

func (p *Printer) expr(e Expr) string {
	switch e := e.(type) {
	case Const:
		return constString(e.Value)
	case Ident:
		return e.Name
	case Cast:
		return fmt.Sprintf("%s(%s)", e.To, p.expr(e.Expr))
	case Unary:
		return fmt.Sprintf("%s(%s)", e.Op, p.expr(e.Expr))
	case Binary:
		if e.Op == OpIndex {
			return fmt.Sprintf("%s[%s]", p.expr(e.Left), p.expr(e.Right))
		}
		return fmt.Sprintf("(%s %s %s)", p.expr(e.Left), e.Op, p.expr(e.Right))
	case CmpChain:
		var sb strings.Builder
		sb.WriteString("(")
		sb.WriteString(p.expr(e.Head))
		for _, t := range e.Rest {
			fmt.Fprintf(&sb, " %s %s", t.Op, p.expr(t.Expr))
		}
		sb.WriteString(")")
		return sb.String()
	case SubrLit:
		return p.subr(e.Subr)
	case Call:
		return fmt.Sprintf("%s(%s)", p.expr(e.Callee), p.exprs(e.Args))
	case MethodCall:
		return fmt.Sprintf("%s:%s(%s)", p.expr(e.Recv), e.Name, p.exprs(e.Args))
	case Field:
		return fmt.Sprintf("%s$%s", p.expr(e.Table), e.Name)
	case ArrayLit:
		return "[" + p.exprs(e.Elems) + "]"
	case TableLit:
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = fmt.Sprintf("%s = %s", f.Name, p.expr(f.Value))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case RecordRef:
		return fmt.Sprintf("$@%d", e.Depth)
	case SelfRef:
		return "#"
	}
	return fmt.Sprintf("/* unknown expression %T */", e)
}

func (p *Printer) subr(s *Subr) string {
	kw := "func"
	if s.Proc {
		kw = "proc"
	}
	head := kw + "(" + strings.Join(s.Params, ", ")
	if len(s.Upvals) > 0 {
		head += "; " + strings.Join(s.Upvals, ", ")
	}
	head += ")"

	var sb strings.Builder
	inner := &Printer{w: &sb, indent: p.indent + 1}
	inner.printStmts(s.Body)
	if sb.Len() == 0 {
		return head + " {}"
	}
	return head + " {\n" + sb.String() + strings.Repeat("  ", p.indent) + "}"
}

// constString renders a literal in source form.
func constString(v value.Value) string {
	switch v := v.(type) {
	case *value.Array:
		if s, ok := v.Text(); ok {
			return quoteText(s)
		}
		if v.Len() == 0 {
			return `""`
		}
	case value.Char:
		if v == '"' {
			return `'"'`
		}
	}
	return v.String()
}

func quoteText(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case 0:
			sb.WriteString(`\0`)
		case '\\', '"':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
