package parser

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"go.creack.net/stackvm/op"
)

func encode(src string) (*Program, error) {
	p := NewParser("test.stasm", src)
	if err := p.Parse(); err != nil {
		return nil, err
	}
	pr := NewProgram(p)
	if _, err := pr.Encode(); err != nil {
		return nil, err
	}
	return pr, nil
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		kind  error
		line  int
		col   int
		token string
	}{
		{"unknown mnemonic", "\tFOO 1", ErrUnknownMnemonic, 1, 2, "FOO"},
		{"missing operand", "PUSH\nHALT", ErrMissingOperand, 1, 1, "PUSH"},
		{"missing operand before comment", "JMP ; where?", ErrMissingOperand, 1, 1, "JMP"},
		{"extra operand", "PUSH 1 2", ErrUnexpectedToken, 1, 8, "2"},
		{"operand on nullary", "ADD 1", ErrUnexpectedToken, 1, 5, "1"},
		{"malformed number", "PUSH 0x1G", ErrInvalidOperand, 1, 6, "0x1G"},
		{"number too large", "PUSH 9223372036854775808", ErrInvalidOperand, 1, 6, "9223372036854775808"},
		{"undefined label", "NOP\n\tJMP nowhere", ErrUndefinedLabel, 2, 6, "nowhere"},
		{"duplicate label", "a:\nNOP\na:\nHALT", ErrDuplicateLabel, 3, 1, "a"},
		{"negative address", "JMP -1", ErrInvalidOperand, 1, 5, "-1"},
		{"jump past the end", "NOP\n\tJMP end\nend:\n", ErrInvalidOperand, 2, 6, "end"},
		{"call inside an instruction", "CALL 1\nHALT", ErrInvalidOperand, 1, 6, "1"},
		{"jump into an immediate", "JZ 6\nPUSH 0x0b", ErrInvalidOperand, 1, 4, "6"},
		{"unknown directive", ".foo", ErrUnknownDirective, 1, 1, ".foo"},
		{"code without bytes", ".code", ErrMissingOperand, 1, 1, ".code"},
		{"code with bad bytes", `.code "zz"`, ErrInvalidOperand, 1, 7, `"zz"`},
		{"stray number", "5", ErrUnexpectedToken, 1, 1, "5"},
		{"unexpected character", "PUSH $", ErrUnexpectedToken, 1, 6, ""},
		{"numeric label", "2nd: NOP", ErrUnexpectedToken, 1, 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := encode(tt.src)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("unexpected error: %v, expected kind %v", err, tt.kind)
			}
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("expected a *Error, got %T", err)
			}
			if e.Line != tt.line || e.Col != tt.col {
				t.Errorf("unexpected position %d:%d, expected %d:%d", e.Line, e.Col, tt.line, tt.col)
			}
			if e.Token != tt.token {
				t.Errorf("unexpected token %q, expected %q", e.Token, tt.token)
			}
			if e.Name != "test.stasm" {
				t.Errorf("unexpected name %q", e.Name)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	e := &Error{Name: "a.stasm", Line: 3, Col: 1, Token: "a", Kind: ErrDuplicateLabel, Msg: "first defined at line 1"}
	if got, want := e.Error(), `a.stasm:3:1: duplicate label "a": first defined at line 1`; got != want {
		t.Fatalf("unexpected message:\n%s\nexpected:\n%s", got, want)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"0", 0, false},
		{"42", 42, false},
		{"+42", 42, false},
		{"-1", -1, false},
		{"1_000", 1000, false},
		{"0x7fffffffffffffff", math.MaxInt64, false},
		{"-0x8000000000000000", math.MinInt64, false},
		{"-9223372036854775808", math.MinInt64, false},
		{"0XfF", 255, false},
		{"0b101", 5, false},
		{"0o17", 15, false},
		{"0x8000000000000000", 0, true},
		{"-9223372036854775809", 0, true},
		{"0xffffffffffffffff", 0, true},
		{"12a", 0, true},
		{"0x", 0, true},
		{"-", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseNumber(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("unexpected value: %d, expected %d", got, tt.want)
			}
		})
	}
}

func TestProgramLabels(t *testing.T) {
	src := "start:\n\tPUSH 1\nloop:\n\tJMP loop ; forever\nend:\n"
	pr, err := encode(src)
	if err != nil {
		t.Fatal(err)
	}

	labels := pr.Labels()
	want := map[string]uint32{"start": 0, "loop": 9, "end": 14}
	for name, addr := range want {
		if labels[name] != addr {
			t.Errorf("label %s: %d, expected %d", name, labels[name], addr)
		}
	}

	code := []byte{0x00, 1, 0, 0, 0, 0, 0, 0, 0, 0x06, 9, 0, 0, 0}
	if !bytes.Equal(pr.Code(), code) {
		t.Fatalf("unexpected code: % x", pr.Code())
	}
	if pr.InstructionCount() != 2 {
		t.Fatalf("unexpected instruction count: %d", pr.InstructionCount())
	}

	d := pr.DebugInfo()
	if d.LineAt(0) != 2 || d.LineAt(9) != 4 {
		t.Fatalf("unexpected lines: %d, %d", d.LineAt(0), d.LineAt(9))
	}
	if name, _ := d.LabelAt(9); name != "loop" {
		t.Fatalf("unexpected label at 9: %q", name)
	}
	if name, _ := d.LabelAt(14); name != "end" {
		t.Fatalf("unexpected label at 14: %q", name)
	}
}

func TestForwardReferenceAndImmediateLabel(t *testing.T) {
	pr, err := encode("PUSH data\nJMP done\ndata:\n.code \"aa bb\"\ndone: HALT")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x00, 14, 0, 0, 0, 0, 0, 0, 0, // PUSH data
		0x06, 16, 0, 0, 0, // JMP done
		0xaa, 0xbb,
		0x0b,
	}
	if !bytes.Equal(pr.Code(), want) {
		t.Fatalf("unexpected code:\n% x\nexpected:\n% x", pr.Code(), want)
	}
	if pr.InstructionCount() != 3 {
		t.Fatalf("unexpected instruction count: %d", pr.InstructionCount())
	}
}

func TestJumpTargets(t *testing.T) {
	// Raw bytes between instructions are stepped over one by one.
	if _, err := encode("JMP done\n.code \"ff fe\"\ndone: HALT"); err != nil {
		t.Fatal(err)
	}
	// A target on an instruction start is valid whatever its spelling.
	if _, err := encode("NOP\nJNZ 0\nHALT"); err != nil {
		t.Fatal(err)
	}

	// Disassembled programs keep the targets their binary holds.
	jmp, _ := op.Lookup(op.Jmp)
	pr := NewProgramFromNodes("raw", []Node{&Instruction{OpCode: jmp, Operand: &Operand{Value: 1}}})
	code, err := pr.Encode()
	if err != nil {
		t.Fatalf("unchecked program: %s", err)
	}
	if len(code) != 5 || code[1] != 1 {
		t.Fatalf("unexpected code: % x", code)
	}
}

func TestProgramTooLarge(t *testing.T) {
	pr := NewProgramFromNodes("big", nil)
	pr.addr = op.MaxCodeSize - 4
	if err := pr.advance(4, Position{Line: 1, Col: 1}); err != nil {
		t.Fatalf("a program of exactly the maximum size is valid: %s", err)
	}

	err := pr.advance(1, Position{Line: 2, Col: 1})
	if !errors.Is(err, ErrProgramTooLarge) {
		t.Fatalf("unexpected error: %v", err)
	}
	if errors.Is(err, ErrUnexpectedToken) {
		t.Fatal("size errors are not syntax errors")
	}
	var e *Error
	if !errors.As(err, &e) || e.Line != 2 {
		t.Fatalf("expected the instruction past the limit, got %v", err)
	}
}

func TestBreakDirective(t *testing.T) {
	pr, err := encode("PUSH 1\n.break\nPOP\n.break\n")
	if err != nil {
		t.Fatal(err)
	}
	if bps := pr.DebugInfo().Breakpoints(); len(bps) != 2 || bps[0] != 9 || bps[1] != 10 {
		t.Fatalf("unexpected breakpoints: %v", bps)
	}
	if pr.Size() != 10 {
		t.Fatalf(".break should not emit code, size: %d", pr.Size())
	}
}

func TestPrettyPrint(t *testing.T) {
	pr, err := encode("a:\n  push 1 ; one\nb:\nc:\n  halt\n")
	if err != nil {
		t.Fatal(err)
	}
	want := "a:\n\tPUSH       1\n\nb:\nc:\n\tHALT\n"
	if got := pr.PrettyPrint(); got != want {
		t.Fatalf("unexpected output:\n%q\nexpected:\n%q", got, want)
	}

	// Pretty printed source assembles to the same code.
	pr2, err := encode(pr.PrettyPrint())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pr.Code(), pr2.Code()) {
		t.Fatal("pretty printed source does not round trip")
	}
}
