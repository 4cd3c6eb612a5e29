// Package ir defines the stack-machine intermediate representation: pages of
// basic blocks, each a straight-line list of instructions ending in exactly
// one terminator.
package ir

import "github.com/raymyers/dryfart/pkg/value"

// Instr is a non-branching instruction
type Instr interface {
	implInstr()
}

// Term is a block terminator
type Term interface {
	implTerm()
}

// --- Literal loads ---

// LoadVoid pushes void
type LoadVoid struct{}

// LoadBool pushes a boolean
type LoadBool struct {
	Value bool
}

// LoadNat pushes one of the pre-encoded nats 0-3
type LoadNat struct {
	N uint8
}

// LoadInt pushes one of the pre-encoded ints -1..2
type LoadInt struct {
	N int8
}

// LoadReal pushes 0.0, or 1.0 when One is set
type LoadReal struct {
	One bool
}

// LoadConst pushes constant Index of the pool
type LoadConst struct {
	Index uint16
}

// --- Arithmetic and bitwise (operands popped right first) ---

// Neg negates the top of stack
type Neg struct{}

// Add pops two operands and pushes their sum
type Add struct{}

// Sub pops two operands and pushes their difference
type Sub struct{}

// Mul pops two operands and pushes their product
type Mul struct{}

// Div pops two operands and pushes their quotient
type Div struct{}

// Inv replaces a real with its reciprocal
type Inv struct{}

// Inc adds one to the top of stack
type Inc struct{}

// Dec subtracts one from the top of stack
type Dec struct{}

// Mod pops two operands and pushes the remainder
type Mod struct{}

// Not is logical not on bools, bitwise complement on integers
type Not struct{}

// And pops two operands and pushes their conjunction
type And struct{}

// Or pops two operands and pushes their disjunction
type Or struct{}

// Xor pops two operands and pushes their exclusive or
type Xor struct{}

// --- Comparisons, each leaving a bool ---

// Eq tests equality
type Eq struct{}

// Ne tests inequality
type Ne struct{}

// Lt tests a < b
type Lt struct{}

// Le tests a <= b
type Le struct{}

// Gt tests a > b
type Gt struct{}

// Ge tests a >= b
type Ge struct{}

// --- Variables ---

// LoadGlobal pushes the native root named by identifier Ident
type LoadGlobal struct {
	Ident uint16
}

// StoreGlobal pops into the global named by identifier Ident
type StoreGlobal struct {
	Ident uint16
}

// LoadLocal pushes stack slot Slot of the current frame
type LoadLocal struct {
	Slot uint16
}

// StoreLocal pops into stack slot Slot
type StoreLocal struct {
	Slot uint16
}

// UpdateLocal copies the top of stack into Slot without popping
type UpdateLocal struct {
	Slot uint16
}

// LoadUpval pushes captured upvalue Index
type LoadUpval struct {
	Index uint8
}

// --- Aggregates ---

// NewArray pushes an empty array
type NewArray struct{}

// PushElem pops a value and appends it to the array below, leaving the array
type PushElem struct{}

// GetElem pops an index and an array and pushes the element
type GetElem struct{}

// SetElem pops a value, an index and an array and stores the element
type SetElem struct{}

// NewTable pushes an empty table
type NewTable struct{}

// SetField pops a value and stores it in field Ident of the table below,
// leaving the table
type SetField struct {
	Ident uint16
}

// GetField pops a table and pushes field Ident
type GetField struct {
	Ident uint16
}

// --- Subroutines ---

// MakeFunc pops Upvals captured values and pushes a func for page Page
type MakeFunc struct {
	Page   uint16
	Upvals uint8
}

// MakeProc pops Upvals captured values and pushes a proc for page Page
type MakeProc struct {
	Page   uint16
	Upvals uint8
}

// CallFunc pops Arity arguments and the callee and pushes the result
type CallFunc struct {
	Arity uint8
}

// CallProc pops Arity arguments and the callee
type CallProc struct {
	Arity uint8
}

// --- Casts ---

// ToNat converts the top of stack to nat
type ToNat struct{}

// ToInt converts the top of stack to int
type ToInt struct{}

// ToReal converts the top of stack to real
type ToReal struct{}

// --- Stack discipline ---

// Dup pushes a copy of the top of stack
type Dup struct{}

// Swap exchanges the top two values: a b -> b a
type Swap struct{}

// Rot moves the top value under the next two: a b c -> c a b
type Rot struct{}

// Pop discards the top of stack
type Pop struct{}

// --- Terminators ---

// Nop falls through to the next block
type Nop struct{}

// Jump transfers to block Target
type Jump struct {
	Target int
}

// JumpIfTrue pops a bool and jumps when it is true
type JumpIfTrue struct {
	Target int
}

// JumpIfFalse pops a bool and jumps when it is false
type JumpIfFalse struct {
	Target int
}

// JumpLt pops b then a and jumps when a < b
type JumpLt struct {
	Target int
}

// JumpLe pops b then a and jumps when a <= b
type JumpLe struct {
	Target int
}

// JumpGt pops b then a and jumps when a > b
type JumpGt struct {
	Target int
}

// JumpGe pops b then a and jumps when a >= b
type JumpGe struct {
	Target int
}

// Return pops the result and returns from a func
type Return struct{}

// End returns from a proc
type End struct{}

// Halt stops the program
type Halt struct{}

// Patch is a placeholder for a jump whose target is not yet known. It must
// be resolved before emission.
type Patch struct{}

// Break leaves Level enclosing loops. It is resolved to a Jump when the
// loop's exit block is known and never survives compilation.
type Break struct {
	Level int
}

// Block is a basic block. Preds holds the indices of the blocks that jump or
// fall through to it, in increasing order.
type Block struct {
	Code  []Instr
	Term  Term
	Preds []int
}

// Meta is page metadata: the source line and optional name identifier.
type Meta struct {
	Line    uint32
	Name    uint16
	HasName bool
}

// Page is a compiled subroutine. Page 0 is the main program.
type Page struct {
	Meta   Meta
	Arity  uint8
	Upvals uint8
	Blocks []*Block
}

// Program is a whole compilation unit.
type Program struct {
	Consts *value.ConstPool
	Idents *value.IdentPool
	Pages  []*Page
}

// NewProgram returns a program with empty pools and no pages.
func NewProgram() *Program {
	return &Program{Consts: value.NewConstPool(), Idents: value.NewIdentPool()}
}

// Marker methods for interface implementation
func (LoadVoid) implInstr()    {}
func (LoadBool) implInstr()    {}
func (LoadNat) implInstr()     {}
func (LoadInt) implInstr()     {}
func (LoadReal) implInstr()    {}
func (LoadConst) implInstr()   {}
func (Neg) implInstr()         {}
func (Add) implInstr()         {}
func (Sub) implInstr()         {}
func (Mul) implInstr()         {}
func (Div) implInstr()         {}
func (Inv) implInstr()         {}
func (Inc) implInstr()         {}
func (Dec) implInstr()         {}
func (Mod) implInstr()         {}
func (Not) implInstr()         {}
func (And) implInstr()         {}
func (Or) implInstr()          {}
func (Xor) implInstr()         {}
func (Eq) implInstr()          {}
func (Ne) implInstr()          {}
func (Lt) implInstr()          {}
func (Le) implInstr()          {}
func (Gt) implInstr()          {}
func (Ge) implInstr()          {}
func (LoadGlobal) implInstr()  {}
func (StoreGlobal) implInstr() {}
func (LoadLocal) implInstr()   {}
func (StoreLocal) implInstr()  {}
func (UpdateLocal) implInstr() {}
func (LoadUpval) implInstr()   {}
func (NewArray) implInstr()    {}
func (PushElem) implInstr()    {}
func (GetElem) implInstr()     {}
func (SetElem) implInstr()     {}
func (NewTable) implInstr()    {}
func (SetField) implInstr()    {}
func (GetField) implInstr()    {}
func (MakeFunc) implInstr()    {}
func (MakeProc) implInstr()    {}
func (CallFunc) implInstr()    {}
func (CallProc) implInstr()    {}
func (ToNat) implInstr()       {}
func (ToInt) implInstr()       {}
func (ToReal) implInstr()      {}
func (Dup) implInstr()         {}
func (Swap) implInstr()        {}
func (Rot) implInstr()         {}
func (Pop) implInstr()         {}

func (Nop) implTerm()         {}
func (Jump) implTerm()        {}
func (JumpIfTrue) implTerm()  {}
func (JumpIfFalse) implTerm() {}
func (JumpLt) implTerm()      {}
func (JumpLe) implTerm()      {}
func (JumpGt) implTerm()      {}
func (JumpGe) implTerm()      {}
func (Return) implTerm()      {}
func (End) implTerm()         {}
func (Halt) implTerm()        {}
func (Patch) implTerm()       {}
func (Break) implTerm()       {}
