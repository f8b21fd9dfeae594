package op

import (
	"bytes"
	"errors"
	"testing"
)

func TestOpCodeTable(t *testing.T) {
	for i, oc := range OpCodeTable {
		if int(oc.Code) != i {
			t.Fatalf("%s: tag %d at index %d", oc.Name, oc.Code, i)
		}
		got, ok := LookupName(oc.Name)
		if !ok || got.Code != oc.Code {
			t.Fatalf("lookup %q: %v, %v", oc.Name, got, ok)
		}
	}
	if _, ok := Lookup(numCodes); ok {
		t.Fatal("lookup past the table should fail")
	}
	if Code(0xff).String() != "<invalid>" {
		t.Fatalf("unexpected name: %s", Code(0xff))
	}
}

func TestLookupName(t *testing.T) {
	tests := []struct {
		name string
		want Code
		ok   bool
	}{
		{"PUSH", Push, true},
		{"push", Push, true},
		{"Output-Top", Output, true},
		{"OUTPUT", Output, true},
		{"printout", Output, true},
		{"DROP", Pop, true},
		{"EXIT", Halt, true},
		{"JMPIF", Jnz, true},
		{"LOAD", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oc, ok := LookupName(tt.name)
			if ok != tt.ok {
				t.Fatalf("unexpected lookup result: %v", ok)
			}
			if ok && oc.Code != tt.want {
				t.Fatalf("unexpected opcode: %s, expected %s", oc.Code, tt.want)
			}
		})
	}
}

func TestInstructionEncoding(t *testing.T) {
	tests := []struct {
		name string
		ins  Instruction
		want []byte
	}{
		{"push", Instruction{OpCodeTable[Push], 5}, []byte{0x00, 5, 0, 0, 0, 0, 0, 0, 0}},
		{"push negative", Instruction{OpCodeTable[Push], -2}, []byte{0x00, 0xfe, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
		{"jmp", Instruction{OpCodeTable[Jmp], 0x1234}, []byte{0x06, 0x34, 0x12, 0, 0}},
		{"add", Instruction{OpCode: OpCodeTable[Add]}, []byte{0x07}},
		{"nop", Instruction{OpCode: OpCodeTable[Nop]}, []byte{0x1d}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := tt.ins.AppendTo(nil)
			if !bytes.Equal(buf, tt.want) {
				t.Fatalf("unexpected encoding: % x, expected % x", buf, tt.want)
			}
			got, err := Decode(buf, 0)
			if err != nil {
				t.Fatalf("decode: %s", err)
			}
			if got.OpCode.Code != tt.ins.OpCode.Code || got.Operand != tt.ins.Operand {
				t.Fatalf("unexpected decoded instruction: %s, expected %s", got, tt.ins)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		addr int
		want error
	}{
		{"invalid tag", []byte{0x1e}, 0, ErrInvalidOpcode},
		{"truncated immediate", []byte{0x00, 1, 2}, 0, ErrTruncated},
		{"truncated address", []byte{0x07, 0x0d, 1}, 1, ErrTruncated},
		{"past the end", []byte{0x07}, 1, ErrOutOfRange},
		{"negative", []byte{0x07}, -1, ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.code, tt.addr); !errors.Is(err, tt.want) {
				t.Fatalf("unexpected error: %v, expected %v", err, tt.want)
			}
		})
	}
}

func TestIsControl(t *testing.T) {
	control := map[Code]bool{Jz: true, Jnz: true, Jmp: true, Call: true, Ret: true}
	for _, oc := range OpCodeTable {
		if oc.IsControl() != control[oc.Code] {
			t.Errorf("%s: unexpected control flag %t", oc.Name, oc.IsControl())
		}
	}
}

func TestBoundaries(t *testing.T) {
	// PUSH 11, unknown tag, JMP 0, HALT.
	code := []byte{0x00, 0x0b, 0, 0, 0, 0, 0, 0, 0, 0xff, 0x06, 0, 0, 0, 0, 0x0b}
	starts := Boundaries(code)
	want := map[int]bool{0: true, 9: true, 10: true, 15: true}
	for addr := range code {
		if starts[addr] != want[addr] {
			t.Errorf("0x%04x: unexpected boundary %t", addr, starts[addr])
		}
	}
	if len(Boundaries(nil)) != 0 {
		t.Fatal("empty code has no boundaries")
	}
}

func TestBinary(t *testing.T) {
	code := []byte{0x00, 5, 0, 0, 0, 0, 0, 0, 0, 0x0c, 0x0b}
	data := NewBinary(code, 3).Bytes()

	want := append([]byte(".SPVM\x01\x03\x00\x00\x00\x0b\x00\x00\x00"), code...)
	if !bytes.Equal(data, want) {
		t.Fatalf("unexpected binary:\n% x\nexpected:\n% x", data, want)
	}

	bin, err := Load(data)
	if err != nil {
		t.Fatalf("load: %s", err)
	}
	if bin.Header.NumInstructions != 3 || bin.Header.CodeSize != uint32(len(code)) {
		t.Fatalf("unexpected header: %+v", bin.Header)
	}
	if !bytes.Equal(bin.Code, code) {
		t.Fatalf("unexpected code: % x", bin.Code)
	}
}

func TestLoadErrors(t *testing.T) {
	valid := NewBinary([]byte{0x0b}, 1).Bytes()
	patch := func(idx int, b byte) []byte {
		out := bytes.Clone(valid)
		out[idx] = b
		return out
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncatedBinary},
		{"short header", valid[:HeaderSize-1], ErrTruncatedBinary},
		{"bad magic", patch(1, 'X'), ErrBadMagic},
		{"version 2", patch(5, 2), ErrUnsupportedVersion},
		{"missing code", valid[:HeaderSize], ErrCodeSize},
		{"trailing bytes", append(bytes.Clone(valid), 0x0b), ErrCodeSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.data); !errors.Is(err, tt.want) {
				t.Fatalf("unexpected error: %v, expected %v", err, tt.want)
			}
		})
	}
}

func TestDebugInfo(t *testing.T) {
	var nilInfo *DebugInfo
	if _, ok := nilInfo.LabelAt(0); ok {
		t.Fatal("nil debug info should have no label")
	}
	if nilInfo.BreakpointAt(0) || nilInfo.LineAt(0) != 0 {
		t.Fatal("nil debug info should be empty")
	}

	d := NewDebugInfo()
	d.AddLabel(9, "first")
	d.AddLabel(9, "second")
	if name, _ := d.LabelAt(9); name != "first" {
		t.Fatalf("unexpected label: %q", name)
	}

	d.AddLine(0, 3)
	if d.LineAt(0) != 3 {
		t.Fatalf("unexpected line: %d", d.LineAt(0))
	}

	d.AddBreakpoint(18)
	if !d.ToggleBreakpoint(4) || d.ToggleBreakpoint(18) {
		t.Fatal("unexpected toggle result")
	}
	if bps := d.Breakpoints(); len(bps) != 1 || bps[0] != 4 {
		t.Fatalf("unexpected breakpoints: %v", bps)
	}
}
