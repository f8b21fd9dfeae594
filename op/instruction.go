package op

import (
	"errors"
	"fmt"
	"strconv"
)

// Decoding errors.
var (
	ErrInvalidOpcode = errors.New("invalid opcode")
	ErrTruncated     = errors.New("truncated instruction")
	ErrOutOfRange    = errors.New("address out of range")
)

// Instruction is a decoded instruction.
type Instruction struct {
	OpCode  OpCode
	Operand Value // Immediate, or address for OperandAddress.
}

// Size returns the encoded size of the instruction in bytes.
func (ins Instruction) Size() int {
	return ins.OpCode.Size()
}

// Address returns the operand as a code address.
func (ins Instruction) Address() uint32 {
	return uint32(ins.Operand)
}

// Encode writes the instruction in buf which must hold at least Size bytes.
// Returns how many bytes have been written.
func (ins Instruction) Encode(buf []byte) int {
	buf[0] = byte(ins.OpCode.Code)
	switch ins.OpCode.Operand {
	case OperandImmediate:
		Endian.PutUint64(buf[1:], uint64(ins.Operand))
	case OperandAddress:
		Endian.PutUint32(buf[1:], uint32(ins.Operand))
	}
	return ins.Size()
}

// AppendTo appends the encoded instruction to buf.
func (ins Instruction) AppendTo(buf []byte) []byte {
	n := len(buf)
	buf = append(buf, make([]byte, ins.Size())...)
	ins.Encode(buf[n:])
	return buf
}

func (ins Instruction) String() string {
	switch ins.OpCode.Operand {
	case OperandImmediate:
		return ins.OpCode.Name + " " + strconv.FormatInt(ins.Operand, 10)
	case OperandAddress:
		return ins.OpCode.Name + " " + strconv.FormatUint(uint64(ins.Address()), 10)
	default:
		return ins.OpCode.Name
	}
}

// Decode decodes the instruction starting at addr in code.
func Decode(code []byte, addr int) (Instruction, error) {
	if addr < 0 || addr >= len(code) {
		return Instruction{}, fmt.Errorf("decode at %d (code size %d): %w", addr, len(code), ErrOutOfRange)
	}
	oc, ok := Lookup(Code(code[addr]))
	if !ok {
		return Instruction{}, fmt.Errorf("tag 0x%02x at %d: %w", code[addr], addr, ErrInvalidOpcode)
	}
	if addr+oc.Size() > len(code) {
		return Instruction{}, fmt.Errorf("%s at %d needs %d bytes, %d left: %w", oc.Name, addr, oc.Size(), len(code)-addr, ErrTruncated)
	}

	ins := Instruction{OpCode: oc}
	switch oc.Operand {
	case OperandImmediate:
		ins.Operand = Value(Endian.Uint64(code[addr+1:]))
	case OperandAddress:
		ins.Operand = Value(Endian.Uint32(code[addr+1:]))
	}
	return ins, nil
}

// Boundaries marks instruction starts with a linear sweep from address 0.
// An unknown tag is skipped alone. A control transfer target is valid
// only when it is marked.
func Boundaries(code []byte) []bool {
	starts := make([]bool, len(code))
	for addr := 0; addr < len(code); {
		starts[addr] = true
		oc, ok := Lookup(Code(code[addr]))
		if !ok {
			addr++
			continue
		}
		addr += oc.Size()
	}
	return starts
}
