package parser

import (
	"strconv"

	"go.creack.net/stackvm/op"
)

// Operand is either a literal or a label reference.
type Operand struct {
	Label string // Label reference, resolved in the second pass.
	Raw   string // Literal as written, empty when built from a value.
	Value int64
	Pos   Position
}

func (o *Operand) String() string {
	switch {
	case o.Label != "":
		return o.Label
	case o.Raw != "":
		return o.Raw
	default:
		return strconv.FormatInt(o.Value, 10)
	}
}

// resolve returns the value to encode, checked against the operand kind.
func (o *Operand) resolve(p *Program, kind op.OperandKind) (int64, error) {
	v := o.Value
	if o.Label != "" {
		addr, ok := p.labels[o.Label]
		if !ok {
			return 0, o.Pos.errorf(p.Name, ErrUndefinedLabel, o.Label, "")
		}
		v = int64(addr)
	}
	if kind == op.OperandAddress && (v < 0 || v > op.MaxCodeSize) {
		return 0, o.Pos.errorf(p.Name, ErrInvalidOperand, o.String(), "address must be within 0..%d", int64(op.MaxCodeSize))
	}
	return v, nil
}
