package parser

import (
	"fmt"

	"go.creack.net/stackvm/op"
)

// Directive is either .break or .code.
type Directive struct {
	Name  string // Without the leading '.'.
	Value string // Raw argument, without quotes.
	Data  []byte // Decoded .code bytes.
	Pos   Position
}

func (d *Directive) Size() int { return len(d.Data) }

func (d *Directive) Resolve(p *Program) error {
	if string(op.DirectiveChar)+d.Name == op.BreakCmdString {
		p.debug.AddBreakpoint(uint32(p.addr))
		return nil
	}
	return p.advance(d.Size(), d.Pos)
}

func (d *Directive) Encode(p *Program) error {
	p.buf = append(p.buf, d.Data...)
	return nil
}

func (d *Directive) PrettyPrint(_ []Node) string {
	out := "\t" + string(op.DirectiveChar) + d.Name
	if d.Value != "" {
		out += " \"" + d.Value + "\""
	}
	return out
}

func (d *Directive) String() string {
	return fmt.Sprintf("<%c%s %.5q...>", op.DirectiveChar, d.Name, d.Value)
}
