package disasm

import (
	"fmt"

	"go.creack.net/stackvm/op"
)

// Line is a listing entry: one instruction or a run of raw bytes.
type Line struct {
	Addr  uint32
	Size  int
	Label string // Label defined at Addr, if any.
	Text  string
	Raw   bool // Undecodable bytes.

	Control bool // Instruction may set the PC.
}

// Listing decodes the code for display. Labels come from the debug info
// when given, synthesized otherwise. The last line may be a bare label
// at the end of the code.
func Listing(code []byte, debug *op.DebugInfo) []Line {
	chunks := sweep(code)
	labels := targets(chunks, len(code), debug)

	out := make([]Line, 0, len(chunks)+1)
	for _, c := range chunks {
		l := Line{Addr: c.addr, Label: labels[c.addr]}
		if c.ins == nil {
			l.Size = len(c.raw)
			l.Raw = true
			l.Text = op.CodeCmdString + " \"" + hexBytes(c.raw) + "\""
			out = append(out, l)
			continue
		}
		l.Size = c.ins.Size()
		l.Text = instructionText(*c.ins, labels)
		l.Control = c.ins.OpCode.IsControl()
		out = append(out, l)
	}
	if name, ok := labels[uint32(len(code))]; ok {
		out = append(out, Line{Addr: uint32(len(code)), Label: name})
	}
	return out
}

func instructionText(ins op.Instruction, labels map[uint32]string) string {
	switch ins.OpCode.Operand {
	case op.OperandAddress:
		if name, ok := labels[ins.Address()]; ok {
			return fmt.Sprintf("%-10s %s", ins.OpCode.Name, name)
		}
		return fmt.Sprintf("%-10s 0x%04x", ins.OpCode.Name, ins.Address())
	case op.OperandImmediate:
		return fmt.Sprintf("%-10s %d", ins.OpCode.Name, ins.Operand)
	default:
		return ins.OpCode.Name
	}
}
