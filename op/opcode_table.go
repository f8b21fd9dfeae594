package op

// OpCodeTable is indexed by Code.
var OpCodeTable = [...]OpCode{
	{"PUSH", nil, Push, OperandImmediate, 0, 1, "push the immediate"},
	{"POP", []string{"DROP"}, Pop, OperandNone, 1, 0, "discard the top value"},
	{"DUP", nil, Dup, OperandNone, 1, 2, "duplicate the top value"},
	{"SWAP", nil, Swap, OperandNone, 2, 2, "swap the two top values"},
	{"JZ", nil, Jz, OperandAddress, 1, 0, "pop, jump if zero"},
	{"JNZ", []string{"JMPIF"}, Jnz, OperandAddress, 1, 0, "pop, jump if not zero"},
	{"JMP", nil, Jmp, OperandAddress, 0, 0, "jump"},
	{"ADD", nil, Add, OperandNone, 2, 1, "a + b"},
	{"SUB", nil, Sub, OperandNone, 2, 1, "a - b"},
	{"MUL", nil, Mul, OperandNone, 2, 1, "a * b"},
	{"DIV", nil, Div, OperandNone, 2, 1, "a / b, truncated"},
	{"HALT", []string{"EXIT"}, Halt, OperandNone, 0, 0, "stop the machine"},
	{"OUTPUT-TOP", []string{"OUTPUT", "PRINTOUT"}, Output, OperandNone, 1, 0, "pop and print"},
	{"CALL", nil, Call, OperandAddress, 0, 0, "push return address, jump"},
	{"RET", nil, Ret, OperandNone, 0, 0, "return to the last caller"},
	{"MOD", nil, Mod, OperandNone, 2, 1, "a % b, truncated"},
	{"NEG", nil, Neg, OperandNone, 1, 1, "-a"},
	{"AND", nil, And, OperandNone, 2, 1, "a & b"},
	{"OR", nil, Or, OperandNone, 2, 1, "a | b"},
	{"XOR", nil, Xor, OperandNone, 2, 1, "a ^ b"},
	{"NOT", nil, Not, OperandNone, 1, 1, "^a"},
	{"SHL", nil, Shl, OperandNone, 2, 1, "a << b"},
	{"SHR", nil, Shr, OperandNone, 2, 1, "a >> b, arithmetic"},
	{"EQ", nil, Eq, OperandNone, 2, 1, "a == b"},
	{"NE", nil, Ne, OperandNone, 2, 1, "a != b"},
	{"LT", nil, Lt, OperandNone, 2, 1, "a < b"},
	{"LE", nil, Le, OperandNone, 2, 1, "a <= b"},
	{"GT", nil, Gt, OperandNone, 2, 1, "a > b"},
	{"GE", nil, Ge, OperandNone, 2, 1, "a >= b"},
	{"NOP", nil, Nop, OperandNone, 0, 0, "do nothing"},
}

var opcodeIndex = make(map[string]Code, 2*len(OpCodeTable))

func init() {
	if len(OpCodeTable) != int(numCodes) {
		panic("opcode table does not cover every code")
	}
	for i, oc := range OpCodeTable {
		if oc.Code != Code(i) {
			panic("opcode table out of order at " + oc.Name)
		}
		opcodeIndex[oc.Name] = oc.Code
		for _, alias := range oc.Aliases {
			opcodeIndex[alias] = oc.Code
		}
	}
}
