package parser

import (
	"fmt"

	"go.creack.net/stackvm/op"
)

type Instruction struct {
	OpCode  op.OpCode // OpCode reference.
	Operand *Operand  // Nil when the opcode takes none.
	Pos     Position

	target uint32 // Resolved address operand.
}

func (ins *Instruction) Size() int {
	return ins.OpCode.Size()
}

func (ins *Instruction) Resolve(p *Program) error {
	if ins.Pos.Line > 0 {
		p.debug.AddLine(uint32(p.addr), ins.Pos.Line)
	}
	p.count++
	return p.advance(ins.Size(), ins.Pos)
}

func (ins *Instruction) Encode(p *Program) error {
	decoded := op.Instruction{OpCode: ins.OpCode}
	if ins.OpCode.Operand != op.OperandNone {
		if ins.Operand == nil {
			return ins.Pos.errorf(p.Name, ErrMissingOperand, ins.OpCode.Name, "")
		}
		v, err := ins.Operand.resolve(p, ins.OpCode.Operand)
		if err != nil {
			return err
		}
		decoded.Operand = v
		if ins.OpCode.Operand == op.OperandAddress {
			ins.target = uint32(v)
			p.targets = append(p.targets, ins)
		}
	}
	p.buf = decoded.AppendTo(p.buf)
	return nil
}

func (ins *Instruction) PrettyPrint(_ []Node) string {
	if ins.Operand == nil {
		return "\t" + ins.OpCode.Name
	}
	return fmt.Sprintf("\t%-10s %s", ins.OpCode.Name, ins.Operand)
}

func (ins *Instruction) String() string {
	if ins.Operand == nil {
		return "<" + ins.OpCode.Name + ">"
	}
	return "<" + ins.OpCode.Name + " (" + ins.Operand.String() + ")>"
}
