package parser

import (
	"fmt"
	"maps"
	"strings"

	"go.creack.net/stackvm/op"
)

// Program encodes parsed nodes in two passes.
// The first pass builds the symbol table, the second emits the code.
type Program struct {
	Name  string
	Nodes []Node

	labels   map[string]uint32
	labelPos map[string]Position
	addr     uint64 // Address of the next emitted byte.
	count    int
	buf      []byte
	debug    *op.DebugInfo

	// Control transfers must target an instruction start. Off for
	// disassembled programs, which keep whatever the binary holds.
	checkTargets bool
	targets      []*Instruction
}

func NewProgram(p *Parser) *Program {
	pr := NewProgramFromNodes(p.name, p.Nodes)
	pr.checkTargets = true
	return pr
}

// NewProgramFromNodes creates a program from nodes built without source,
// e.g. by the disassembler. Control transfer targets are not checked.
func NewProgramFromNodes(name string, nodes []Node) *Program {
	return &Program{
		Name:  name,
		Nodes: nodes,
	}
}

func (p *Program) advance(n int, pos Position) error {
	p.addr += uint64(n)
	if p.addr > op.MaxCodeSize {
		return pos.errorf(p.Name, ErrProgramTooLarge, "", "program exceeds %d bytes", int64(op.MaxCodeSize))
	}
	return nil
}

func (p *Program) resolve() error {
	p.labels = map[string]uint32{}
	p.labelPos = map[string]Position{}
	p.addr = 0
	p.count = 0
	p.debug = op.NewDebugInfo()
	p.targets = nil

	for _, n := range p.Nodes {
		if err := n.Resolve(p); err != nil {
			return err
		}
	}
	return nil
}

// Encode runs both passes and returns the code section.
// Errors are *Error values.
func (p *Program) Encode() ([]byte, error) {
	if err := p.resolve(); err != nil {
		return nil, err
	}

	p.buf = make([]byte, 0, p.addr)
	for _, n := range p.Nodes {
		if err := n.Encode(p); err != nil {
			p.buf = nil
			return nil, err
		}
	}
	if uint64(len(p.buf)) != p.addr {
		// Should never happen.
		panic(fmt.Sprintf("encoded %d bytes, resolved %d", len(p.buf), p.addr))
	}
	if err := p.validateTargets(); err != nil {
		p.buf = nil
		return nil, err
	}
	return p.buf, nil
}

// validateTargets checks that every control transfer lands on an
// instruction start, with the same sweep as the machine.
func (p *Program) validateTargets() error {
	if !p.checkTargets {
		return nil
	}
	starts := op.Boundaries(p.buf)
	for _, ins := range p.targets {
		target := ins.target
		switch {
		case target >= uint32(len(p.buf)):
			return ins.Operand.Pos.errorf(p.Name, ErrInvalidOperand, ins.Operand.String(),
				"%s target 0x%04x is past the end of the code (%d bytes)", ins.OpCode.Name, target, len(p.buf))
		case !starts[target]:
			return ins.Operand.Pos.errorf(p.Name, ErrInvalidOperand, ins.Operand.String(),
				"%s target 0x%04x is not the start of an instruction", ins.OpCode.Name, target)
		}
	}
	return nil
}

// Size of the code section, valid after Encode.
func (p *Program) Size() int { return len(p.buf) }

// InstructionCount returns the number of encoded instructions.
func (p *Program) InstructionCount() int { return p.count }

// Code returns the encoded code section.
func (p *Program) Code() []byte { return p.buf }

func (p *Program) DebugInfo() *op.DebugInfo { return p.debug }

// Labels returns a copy of the symbol table.
func (p *Program) Labels() map[string]uint32 { return maps.Clone(p.labels) }

// Binary wraps the encoded code with its header.
func (p *Program) Binary() *op.Binary {
	return op.NewBinary(p.buf, p.count)
}

// PrettyPrint renders the whole program as source.
func (p *Program) PrettyPrint() string {
	var sb strings.Builder
	for _, n := range p.Nodes {
		sb.WriteString(n.PrettyPrint(p.Nodes))
		sb.WriteByte('\n')
	}
	return sb.String()
}
