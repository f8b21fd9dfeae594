// Package op defines the stack machine instruction set shared by the
// assembler and the execution engine.
package op

import (
	"encoding/binary"
	"strings"
)

// Endian is the byte order of every multi-byte field in a binary program.
var Endian = binary.LittleEndian

// Value is the machine word held on the operand stack.
type Value = int64

// Operand sizes in bytes.
const (
	ImmediateSize = 8 // Signed 64 bits immediate.
	AddressSize   = 4 // Unsigned 32 bits code offset.
)

// MaxCodeSize is the largest code section an address operand can reach.
const MaxCodeSize = 1<<32 - 1

// Tokens.
const (
	CommentChars   = ";#"
	LabelChar      = ':'
	DirectiveChar  = '.'
	IdentChars     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	BreakCmdString = ".break"
	CodeCmdString  = ".code"
)

// Code is the one byte tag identifying an instruction kind.
type Code byte

// Instruction tags. The first values follow the historical numbering.
const (
	Push Code = iota
	Pop
	Dup
	Swap
	Jz
	Jnz
	Jmp
	Add
	Sub
	Mul
	Div
	Halt
	Output
	Call
	Ret
	Mod
	Neg
	And
	Or
	Xor
	Not
	Shl
	Shr
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	Nop

	numCodes // Keep last.
)

func (c Code) String() string {
	if oc, ok := Lookup(c); ok {
		return oc.Name
	}
	return "<invalid>"
}

// OperandKind enum type.
type OperandKind int

// OperandKind values.
const (
	OperandNone      OperandKind = iota
	OperandImmediate             // Signed value pushed as is.
	OperandAddress               // Code offset, may be given as a label.
)

func (k OperandKind) String() string {
	switch k {
	case OperandNone:
		return "none"
	case OperandImmediate:
		return "immediate"
	case OperandAddress:
		return "address"
	default:
		return "unknown"
	}
}

// Size returns the encoded size of the operand in bytes.
func (k OperandKind) Size() int {
	switch k {
	case OperandImmediate:
		return ImmediateSize
	case OperandAddress:
		return AddressSize
	default:
		return 0
	}
}

// OpCode is the definition of instructions.
type OpCode struct {
	Name    string
	Aliases []string
	Code    Code
	Operand OperandKind
	Pops    int // Values required on the operand stack.
	Pushes  int // Values left on the operand stack.
	Comment string
}

// Size returns the encoded size of the instruction in bytes.
func (oc OpCode) Size() int {
	return 1 + oc.Operand.Size()
}

// IsControl reports whether the instruction may set the program counter.
func (oc OpCode) IsControl() bool {
	switch oc.Code {
	case Jz, Jnz, Jmp, Call, Ret:
		return true
	}
	return false
}

// Lookup returns the definition for the given tag.
func Lookup(c Code) (OpCode, bool) {
	if c >= numCodes {
		return OpCode{}, false
	}
	return OpCodeTable[c], true
}

// LookupName returns the definition for the given mnemonic or alias.
// Mnemonics are case insensitive.
func LookupName(name string) (OpCode, bool) {
	c, ok := opcodeIndex[strings.ToUpper(name)]
	if !ok {
		return OpCode{}, false
	}
	return OpCodeTable[c], true
}
