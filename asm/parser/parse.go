package parser

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.creack.net/stackvm/op"
)

// Node is a parsed statement.
type Node interface {
	fmt.Stringer

	// Size is the number of code bytes the node emits.
	Size() int
	// Resolve is the first pass: addresses and labels.
	Resolve(p *Program) error
	// Encode is the second pass: code emission.
	Encode(p *Program) error
	// PrettyPrint renders the node as source. The full node list
	// is given for layout decisions.
	PrettyPrint(nodes []Node) string
}

// Parser structure
type Parser struct {
	name      string
	lexer     *lexer
	currToken item
	peekToken item

	Nodes []Node
}

// NewParser creates a new parser
func NewParser(name, input string) *Parser {
	p := &Parser{
		name:  name,
		lexer: newLexer(name, input),
	}
	// Preload the next token.
	p.nextToken()
	return p
}

// nextToken advances to the next token
func (p *Parser) nextToken() {
	p.currToken = p.peekToken
	p.peekToken = p.lexer.nextItem()
}

func (p *Parser) errorf(it item, kind error, format string, args ...any) *Error {
	token := it.val
	if it.typ.isEOL() || it.typ == itemError {
		token = ""
	}
	return Position{it.line, it.col}.errorf(p.name, kind, token, format, args...)
}

// Parse the whole input. Stops at the first error, which is a *Error.
func (p *Parser) Parse() error {
	for {
		p.nextToken()
		it := p.currToken

		var err error
		switch it.typ {
		case itemEOF:
			return nil
		case itemError:
			return p.errorf(it, ErrUnexpectedToken, "%s", it.val)
		case itemNewline, itemComment:
			continue
		case itemLabel:
			// An instruction may follow on the same line.
			p.Nodes = append(p.Nodes, &Label{Name: it.val, Pos: Position{it.line, it.col}})
			continue
		case itemDirective:
			err = p.parseDirective()
		case itemIdentifier:
			err = p.parseInstruction()
		default:
			return p.errorf(it, ErrUnexpectedToken, "expected instruction, label or directive")
		}
		if err != nil {
			return err
		}
	}
}

// expectEOL makes sure nothing follows the current statement.
func (p *Parser) expectEOL() error {
	if p.peekToken.typ == itemError {
		p.nextToken()
		return p.errorf(p.currToken, ErrUnexpectedToken, "%s", p.currToken.val)
	}
	if !p.peekToken.typ.isEOL() {
		p.nextToken()
		return p.errorf(p.currToken, ErrUnexpectedToken, "expected end of line")
	}
	return nil
}

func (p *Parser) parseInstruction() error {
	it := p.currToken
	oc, ok := op.LookupName(it.val)
	if !ok {
		return p.errorf(it, ErrUnknownMnemonic, "")
	}
	ins := &Instruction{OpCode: oc, Pos: Position{it.line, it.col}}

	if oc.Operand != op.OperandNone {
		if p.peekToken.typ.isEOL() {
			return p.errorf(it, ErrMissingOperand, "%s expects an %s operand", oc.Name, oc.Operand)
		}
		p.nextToken()
		operand, err := p.parseOperand()
		if err != nil {
			return err
		}
		ins.Operand = operand
	}

	if err := p.expectEOL(); err != nil {
		return err
	}
	p.Nodes = append(p.Nodes, ins)
	return nil
}

func (p *Parser) parseOperand() (*Operand, error) {
	it := p.currToken
	pos := Position{it.line, it.col}
	switch it.typ {
	case itemIdentifier:
		return &Operand{Label: it.val, Pos: pos}, nil
	case itemNumber:
		n, err := parseNumber(it.val)
		if err != nil {
			return nil, p.errorf(it, ErrInvalidOperand, "%s", err)
		}
		return &Operand{Raw: it.val, Value: n, Pos: pos}, nil
	case itemError:
		return nil, p.errorf(it, ErrUnexpectedToken, "%s", it.val)
	default:
		return nil, p.errorf(it, ErrInvalidOperand, "expected number or label")
	}
}

func (p *Parser) parseDirective() error {
	it := p.currToken
	d := &Directive{Name: strings.TrimPrefix(it.val, string(op.DirectiveChar)), Pos: Position{it.line, it.col}}

	switch it.val {
	case op.BreakCmdString:
	case op.CodeCmdString:
		if p.peekToken.typ.isEOL() {
			return p.errorf(it, ErrMissingOperand, "expected quoted hex bytes")
		}
		p.nextToken()
		if p.currToken.typ != itemRawString {
			return p.errorf(p.currToken, ErrInvalidOperand, "expected quoted hex bytes")
		}
		d.Value = strings.Trim(p.currToken.val, `"`)
		data, err := parseHexBytes(d.Value)
		if err != nil {
			return p.errorf(p.currToken, ErrInvalidOperand, "%s", err)
		}
		d.Data = data
	default:
		return p.errorf(it, ErrUnknownDirective, "")
	}

	if err := p.expectEOL(); err != nil {
		return err
	}
	p.Nodes = append(p.Nodes, d)
	return nil
}

// parseNumber parses a signed 64 bits literal: decimal, 0x, 0o or 0b,
// with optional sign and '_' separators.
func parseNumber(in string) (int64, error) {
	s := strings.ReplaceAll(in, "_", "")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	base := 10
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 10 {
			s = s[2:]
		}
	}
	u, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%q does not fit in 64 bits", in)
		}
		return 0, fmt.Errorf("malformed integer %q", in)
	}
	if neg {
		if u > 1<<63 {
			return 0, fmt.Errorf("%q does not fit in 64 bits", in)
		}
		return -int64(u), nil
	}
	if u > math.MaxInt64 {
		return 0, fmt.Errorf("%q does not fit in 64 bits", in)
	}
	return int64(u), nil
}

// parseHexBytes parses space separated hex bytes, e.g. "ff 0a".
func parseHexBytes(in string) ([]byte, error) {
	var out []byte
	for _, elem := range strings.Fields(in) {
		if len(elem) != 2 {
			return nil, fmt.Errorf("code byte %q must be 2 hex digits", elem)
		}
		b, err := hex.DecodeString(elem)
		if err != nil {
			return nil, fmt.Errorf("code byte %q: %w", elem, err)
		}
		out = append(out, b...)
	}
	if len(out) == 0 {
		return nil, errors.New("empty code directive")
	}
	return out, nil
}
