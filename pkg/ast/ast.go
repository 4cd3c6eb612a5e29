// Package ast defines the abstract syntax tree shared by the tree-walking
// interpreter and the IR builder.
package ast

import "github.com/raymyers/dryfart/pkg/value"

// Node is the base interface for all AST nodes
type Node interface {
	implAstNode()
}

// Expr is the interface for all expression nodes
type Expr interface {
	Node
	implAstExpr()
}

// Stmt is the interface for all statement nodes
type Stmt interface {
	Node
	implAstStmt()
}

// BinaryOp represents binary operators
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd     // &
	OpOr      // |
	OpXor     // ^
	OpCondAnd // &&
	OpCondOr  // ||
	OpIndex   // a[i]
)

func (op BinaryOp) String() string {
	names := []string{"+", "-", "*", "/", "%", "&", "|", "^", "&&", "||", "[]"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// IsShortCircuit reports whether op evaluates its right operand conditionally.
func (op BinaryOp) IsShortCircuit() bool {
	return op == OpCondAnd || op == OpCondOr
}

// UnaryOp represents unary operators
type UnaryOp int

const (
	OpNeg UnaryOp = iota // -
	OpNot                // !
	OpInv                // ~ (reciprocal)
)

func (op UnaryOp) String() string {
	names := []string{"-", "!", "~"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// CmpOp represents comparison operators
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

func (op CmpOp) String() string {
	names := []string{"==", "!=", "<", "<=", ">", ">="}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Const is a literal value
type Const struct {
	Value value.Value
}

// Ident is an identifier expression
type Ident struct {
	Name string
}

// Cast converts Expr to a numeric type
type Cast struct {
	To   value.Type
	Expr Expr
}

// Unary is a prefix expression
type Unary struct {
	Op   UnaryOp
	Expr Expr
}

// Binary is a binary expression; OpIndex reads Right from array Left
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// CmpTerm is one (operator, operand) link of a comparison chain
type CmpTerm struct {
	Op   CmpOp
	Expr Expr
}

// CmpChain is a comparison chain: a < b <= c is true when each adjacent pair is
type CmpChain struct {
	Head Expr
	Rest []CmpTerm
}

// Subr is an immutable subroutine descriptor. It is shared by pointer:
// closures built from the same literal refer to the same *Subr.
type Subr struct {
	Params []string
	Upvals []string
	Body   []Stmt
	Line   int
	Proc   bool
}

// SubrLit is a func or proc literal
type SubrLit struct {
	Subr *Subr
}

// Call is a call expression
type Call struct {
	Callee Expr
	Args   []Expr
}

// MethodCall is t:m(args), calling field m of t with t prepended to args
type MethodCall struct {
	Recv Expr
	Name string
	Args []Expr
}

// Field is table field access: t$name
type Field struct {
	Table Expr
	Name  string
}

// ArrayLit is an array literal
type ArrayLit struct {
	Elems []Expr
}

// FieldInit is one field of a table literal
type FieldInit struct {
	Name  string
	Value Expr
}

// TableLit is a table literal; fields are assigned in declaration order
type TableLit struct {
	Fields []FieldInit
}

// RecordRef is $@N, the table literal N levels out from the innermost one
// under construction ($@0 is the innermost).
type RecordRef struct {
	Depth int
}

// SelfRef is #, the running subroutine
type SelfRef struct{}

// Assign stores Value into Target (Ident, Field or Binary with OpIndex)
type Assign struct {
	Target Expr
	Value  Expr
}

// OpAssign is an operate-on assignment: Target Op= Value
type OpAssign struct {
	Target Expr
	Op     BinaryOp
	Value  Expr
}

// If is a two-way branch; Else may be nil
type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// Loop runs Pre, tests Cond, runs Post and repeats. A nil Cond is an
// infinite loop whose body is Pre.
type Loop struct {
	Pre  []Stmt
	Cond Expr
	Post []Stmt
}

// Break leaves Level enclosing loops (1 is the innermost)
type Break struct {
	Level int
}

// Return returns a value from a func
type Return struct {
	Value Expr
}

// Exit leaves a proc
type Exit struct{}

// ProcCall is a procedure call statement; Call is a Call or MethodCall
type ProcCall struct {
	Call Expr
}

// Program is a parsed source file
type Program struct {
	Body []Stmt
}

// Marker methods for interface implementation
func (Const) implAstNode() {}
func (Const) implAstExpr() {}

func (Ident) implAstNode() {}
func (Ident) implAstExpr() {}

func (Cast) implAstNode() {}
func (Cast) implAstExpr() {}

func (Unary) implAstNode() {}
func (Unary) implAstExpr() {}

func (Binary) implAstNode() {}
func (Binary) implAstExpr() {}

func (CmpChain) implAstNode() {}
func (CmpChain) implAstExpr() {}

func (SubrLit) implAstNode() {}
func (SubrLit) implAstExpr() {}

func (Call) implAstNode() {}
func (Call) implAstExpr() {}

func (MethodCall) implAstNode() {}
func (MethodCall) implAstExpr() {}

func (Field) implAstNode() {}
func (Field) implAstExpr() {}

func (ArrayLit) implAstNode() {}
func (ArrayLit) implAstExpr() {}

func (TableLit) implAstNode() {}
func (TableLit) implAstExpr() {}

func (RecordRef) implAstNode() {}
func (RecordRef) implAstExpr() {}

func (SelfRef) implAstNode() {}
func (SelfRef) implAstExpr() {}

func (Assign) implAstNode() {}
func (Assign) implAstStmt() {}

func (OpAssign) implAstNode() {}
func (OpAssign) implAstStmt() {}

func (If) implAstNode() {}
func (If) implAstStmt() {}

func (Loop) implAstNode() {}
func (Loop) implAstStmt() {}

func (Break) implAstNode() {}
func (Break) implAstStmt() {}

func (Return) implAstNode() {}
func (Return) implAstStmt() {}

func (Exit) implAstNode() {}
func (Exit) implAstStmt() {}

func (ProcCall) implAstNode() {}
func (ProcCall) implAstStmt() {}
