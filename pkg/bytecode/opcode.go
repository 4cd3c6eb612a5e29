// Package bytecode lowers IR to the final byte encoding, writes and reads
// the image format and disassembles it.
package bytecode

// Opcode is a final instruction tag. Values are part of the image format.
type Opcode byte

const (
	OpVoid Opcode = iota
	OpTrue
	OpFalse
	OpNat0
	OpNat1
	OpNat2
	OpNat3
	OpIntM1
	OpInt0
	OpInt1
	OpInt2
	OpReal0
	OpReal1
	OpConst
	OpConstL

	OpNeg
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpInv
	OpInc
	OpDec
	OpMod
	OpNot
	OpAnd
	OpOr
	OpXor

	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	OpLoadGlobal
	OpStoreGlobal
	OpLoadLocal
	OpLoadLocalL
	OpStoreLocal
	OpStoreLocalL
	OpUpdateLocal
	OpUpdateLocalL
	OpLoadUpval

	OpNewArray
	OpPushElem
	OpGetElem
	OpSetElem
	OpNewTable
	OpSetField
	OpGetField

	OpMakeFunc
	OpMakeProc
	OpCallFunc
	OpCallProc

	OpToNat
	OpToInt
	OpToReal

	OpDup
	OpSwap
	OpRot
	OpPop

	OpJump
	OpJumpL
	OpJumpIfTrue
	OpJumpIfTrueL
	OpJumpIfFalse
	OpJumpIfFalseL
	OpJumpLt
	OpJumpLtL
	OpJumpLe
	OpJumpLeL
	OpJumpGt
	OpJumpGtL
	OpJumpGe
	OpJumpGeL

	OpReturn
	OpEnd
	OpHalt

	numOpcodes
)

// Operand kinds.
const (
	argNone  = iota
	argU8    // unsigned byte
	argU16   // unsigned big-endian 16 bits
	argRel8  // signed 8-bit jump displacement
	argRel16 // signed 16-bit jump displacement
)

type opInfo struct {
	name string
	arg  int
}

// opcodes is the single table of names and operand kinds used by the
// encoder, the reader and the disassembler.
var opcodes = [numOpcodes]opInfo{
	OpVoid:   {"void", argNone},
	OpTrue:   {"true", argNone},
	OpFalse:  {"false", argNone},
	OpNat0:   {"nat.0", argNone},
	OpNat1:   {"nat.1", argNone},
	OpNat2:   {"nat.2", argNone},
	OpNat3:   {"nat.3", argNone},
	OpIntM1:  {"int.m1", argNone},
	OpInt0:   {"int.0", argNone},
	OpInt1:   {"int.1", argNone},
	OpInt2:   {"int.2", argNone},
	OpReal0:  {"real.0", argNone},
	OpReal1:  {"real.1", argNone},
	OpConst:  {"const", argU8},
	OpConstL: {"const.l", argU16},

	OpNeg: {"neg", argNone},
	OpAdd: {"add", argNone},
	OpSub: {"sub", argNone},
	OpMul: {"mul", argNone},
	OpDiv: {"div", argNone},
	OpInv: {"inv", argNone},
	OpInc: {"inc", argNone},
	OpDec: {"dec", argNone},
	OpMod: {"mod", argNone},
	OpNot: {"not", argNone},
	OpAnd: {"and", argNone},
	OpOr:  {"or", argNone},
	OpXor: {"xor", argNone},

	OpEq: {"eq", argNone},
	OpNe: {"ne", argNone},
	OpLt: {"lt", argNone},
	OpLe: {"le", argNone},
	OpGt: {"gt", argNone},
	OpGe: {"ge", argNone},

	OpLoadGlobal:   {"ld.global", argU16},
	OpStoreGlobal:  {"st.global", argU16},
	OpLoadLocal:    {"ld.local", argU8},
	OpLoadLocalL:   {"ld.local.l", argU16},
	OpStoreLocal:   {"st.local", argU8},
	OpStoreLocalL:  {"st.local.l", argU16},
	OpUpdateLocal:  {"up.local", argU8},
	OpUpdateLocalL: {"up.local.l", argU16},
	OpLoadUpval:    {"ld.upval", argU8},

	OpNewArray: {"arr.new", argNone},
	OpPushElem: {"arr.push", argNone},
	OpGetElem:  {"arr.get", argNone},
	OpSetElem:  {"arr.set", argNone},
	OpNewTable: {"tbl.new", argNone},
	OpSetField: {"tbl.set", argU16},
	OpGetField: {"tbl.get", argU16},

	OpMakeFunc: {"mk.func", argU16},
	OpMakeProc: {"mk.proc", argU16},
	OpCallFunc: {"call.func", argU8},
	OpCallProc: {"call.proc", argU8},

	OpToNat:  {"to.nat", argNone},
	OpToInt:  {"to.int", argNone},
	OpToReal: {"to.real", argNone},

	OpDup:  {"dup", argNone},
	OpSwap: {"swap", argNone},
	OpRot:  {"rot", argNone},
	OpPop:  {"pop", argNone},

	OpJump:         {"jmp", argRel8},
	OpJumpL:        {"jmp.l", argRel16},
	OpJumpIfTrue:   {"jt", argRel8},
	OpJumpIfTrueL:  {"jt.l", argRel16},
	OpJumpIfFalse:  {"jf", argRel8},
	OpJumpIfFalseL: {"jf.l", argRel16},
	OpJumpLt:       {"jlt", argRel8},
	OpJumpLtL:      {"jlt.l", argRel16},
	OpJumpLe:       {"jle", argRel8},
	OpJumpLeL:      {"jle.l", argRel16},
	OpJumpGt:       {"jgt", argRel8},
	OpJumpGtL:      {"jgt.l", argRel16},
	OpJumpGe:       {"jge", argRel8},
	OpJumpGeL:      {"jge.l", argRel16},

	OpReturn: {"ret", argNone},
	OpEnd:    {"end", argNone},
	OpHalt:   {"halt", argNone},
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	return op < numOpcodes
}

func (op Opcode) String() string {
	if !op.Valid() {
		return "?"
	}
	return opcodes[op].name
}

// Width is the encoded size of the instruction, tag included.
func (op Opcode) Width() int {
	if !op.Valid() {
		return 0
	}
	switch opcodes[op].arg {
	case argU8, argRel8:
		return 2
	case argU16, argRel16:
		return 3
	}
	return 1
}

// IsJump reports whether op carries a displacement.
func (op Opcode) IsJump() bool {
	return op.Valid() && (opcodes[op].arg == argRel8 || opcodes[op].arg == argRel16)
}
