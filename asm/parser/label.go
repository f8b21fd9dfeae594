package parser

import "go.creack.net/stackvm/op"

type Label struct {
	Name string
	Pos  Position
}

func (l *Label) Size() int { return 0 }

// Resolve records the address of the next emitted byte.
func (l *Label) Resolve(p *Program) error {
	if prev, ok := p.labelPos[l.Name]; ok {
		return l.Pos.errorf(p.Name, ErrDuplicateLabel, l.Name, "first defined at line %d", prev.Line)
	}
	p.labelPos[l.Name] = l.Pos
	p.labels[l.Name] = uint32(p.addr)
	p.debug.AddLabel(uint32(p.addr), l.Name)
	return nil
}

func (l *Label) Encode(_ *Program) error { return nil }

func (l *Label) PrettyPrint(nodes []Node) string {
	// Unless we are immediately after a label or first, prefix with a newline.
	var prev Node
	for _, n := range nodes {
		if l1, ok := n.(*Label); ok && l1 == l {
			if _, ok := prev.(*Label); ok || prev == nil {
				return l.Name + string(op.LabelChar)
			}
			return "\n" + l.Name + string(op.LabelChar)
		}
		prev = n
	}
	// Should never happen.
	panic("self reference not found in nodes")
}

func (l *Label) String() string {
	return "<label " + l.Name + ">"
}
