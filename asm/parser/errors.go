package parser

import (
	"errors"
	"fmt"
)

// Assembly error kinds. Every *Error unwraps to one of them.
var (
	ErrDuplicateLabel   = errors.New("duplicate label")
	ErrUndefinedLabel   = errors.New("undefined label")
	ErrUnknownMnemonic  = errors.New("unknown mnemonic")
	ErrInvalidOperand   = errors.New("invalid operand")
	ErrMissingOperand   = errors.New("missing operand")
	ErrUnexpectedToken  = errors.New("unexpected token")
	ErrUnknownDirective = errors.New("unknown directive")
	ErrProgramTooLarge  = errors.New("program too large")
)

// Error locates an assembly error in the source.
type Error struct {
	Name  string // Input name.
	Line  int
	Col   int
	Token string // Offending token, if any.
	Kind  error
	Msg   string // Optional details.
}

func (e *Error) Error() string {
	out := fmt.Sprintf("%s:%d:%d: %v", e.Name, e.Line, e.Col, e.Kind)
	if e.Token != "" {
		out += fmt.Sprintf(" %q", e.Token)
	}
	if e.Msg != "" {
		out += ": " + e.Msg
	}
	return out
}

func (e *Error) Unwrap() error { return e.Kind }

// Position is where a node starts in the source.
type Position struct {
	Line int
	Col  int
}

func (pos Position) errorf(name string, kind error, token, format string, args ...any) *Error {
	return &Error{
		Name:  name,
		Line:  pos.Line,
		Col:   pos.Col,
		Token: token,
		Kind:  kind,
		Msg:   fmt.Sprintf(format, args...),
	}
}
