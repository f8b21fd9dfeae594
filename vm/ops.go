package vm

import (
	"fmt"
	"strconv"

	"go.creack.net/stackvm/op"
)

// opFunc executes an instruction whose stack requirements have been checked.
// Returns true if the PC should be advanced.
type opFunc func(m *Machine, ins op.Instruction) bool

func opAdd(a, b int64) int64 { return a + b }
func opSub(a, b int64) int64 { return a - b }
func opMul(a, b int64) int64 { return a * b }
func opAnd(a, b int64) int64 { return a & b }
func opOr(a, b int64) int64  { return a | b }
func opXor(a, b int64) int64 { return a ^ b }
func opShl(a, b int64) int64 { return a << (b & 63) }
func opShr(a, b int64) int64 { return a >> (b & 63) }

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// mathOp returns the op function for binary operations.
// a is the second value from the top, b the top.
func mathOp(operation func(a, b int64) int64) opFunc {
	return func(m *Machine, _ op.Instruction) bool {
		b, _ := m.stack.Pop()
		a, _ := m.stack.Pop()
		m.stack.Push(operation(a, b))
		return true
	}
}

func compareOp(cmp func(a, b int64) bool) opFunc {
	return mathOp(func(a, b int64) int64 { return boolValue(cmp(a, b)) })
}

func unaryOp(operation func(a int64) int64) opFunc {
	return func(m *Machine, _ op.Instruction) bool {
		a, _ := m.stack.Pop()
		m.stack.Push(operation(a))
		return true
	}
}

// divOp checks the divisor before popping anything so a fault
// leaves both operands on the stack.
func divOp(kind FaultKind, operation func(a, b int64) int64) opFunc {
	return func(m *Machine, ins op.Instruction) bool {
		if b, _ := m.stack.Peek(); b == 0 {
			m.raise(kind, "%s with a zero divisor", ins.OpCode.Name)
			return false
		}
		return mathOp(operation)(m, ins)
	}
}

// jumpIf returns the op function for conditional jumps.
func jumpIf(cond func(v int64) bool) opFunc {
	return func(m *Machine, ins op.Instruction) bool {
		v, _ := m.stack.Pop()
		if !cond(v) {
			return true // Advance the PC.
		}
		m.pc = ins.Address()
		return false // Manual overrode the PC, don't advance it.
	}
}

var ops = func() map[op.Code]opFunc {
	ops := map[op.Code]opFunc{}

	ops[op.Nop] = func(*Machine, op.Instruction) bool { return true }

	// Stack manipulation.
	ops[op.Push] = func(m *Machine, ins op.Instruction) bool {
		m.stack.Push(ins.Operand)
		return true
	}
	ops[op.Pop] = func(m *Machine, _ op.Instruction) bool {
		_, _ = m.stack.Pop()
		return true
	}
	ops[op.Dup] = func(m *Machine, _ op.Instruction) bool {
		v, _ := m.stack.Peek()
		m.stack.Push(v)
		return true
	}
	ops[op.Swap] = func(m *Machine, _ op.Instruction) bool {
		n := len(m.stack)
		m.stack[n-1], m.stack[n-2] = m.stack[n-2], m.stack[n-1]
		return true
	}

	// Arithmetic. Overflow wraps.
	ops[op.Add] = mathOp(opAdd)
	ops[op.Sub] = mathOp(opSub)
	ops[op.Mul] = mathOp(opMul)
	ops[op.Div] = divOp(DivisionByZero, func(a, b int64) int64 { return a / b })
	ops[op.Mod] = divOp(ModuloByZero, func(a, b int64) int64 { return a % b })
	ops[op.Neg] = unaryOp(func(a int64) int64 { return -a })

	// Bitwise.
	ops[op.And] = mathOp(opAnd)
	ops[op.Or] = mathOp(opOr)
	ops[op.Xor] = mathOp(opXor)
	ops[op.Not] = unaryOp(func(a int64) int64 { return ^a })
	ops[op.Shl] = mathOp(opShl)
	ops[op.Shr] = mathOp(opShr)

	// Comparison, 1 for true, 0 for false.
	ops[op.Eq] = compareOp(func(a, b int64) bool { return a == b })
	ops[op.Ne] = compareOp(func(a, b int64) bool { return a != b })
	ops[op.Lt] = compareOp(func(a, b int64) bool { return a < b })
	ops[op.Le] = compareOp(func(a, b int64) bool { return a <= b })
	ops[op.Gt] = compareOp(func(a, b int64) bool { return a > b })
	ops[op.Ge] = compareOp(func(a, b int64) bool { return a >= b })

	// Control transfer. Targets are validated when decoded.
	ops[op.Jmp] = func(m *Machine, ins op.Instruction) bool {
		m.pc = ins.Address()
		return false
	}
	ops[op.Jz] = jumpIf(func(v int64) bool { return v == 0 })
	ops[op.Jnz] = jumpIf(func(v int64) bool { return v != 0 })
	ops[op.Call] = func(m *Machine, ins op.Instruction) bool {
		if limit := m.cfg.MaxCallDepth; limit > 0 && len(m.calls) >= limit {
			m.raise(CallStackOverflow, "more than %d pending calls", limit)
			return false
		}
		m.calls.Push(Frame{Return: m.pc + uint32(ins.Size()), Base: len(m.stack)})
		m.pc = ins.Address()
		return false
	}
	ops[op.Ret] = func(m *Machine, _ op.Instruction) bool {
		f, ok := m.calls.Pop()
		if !ok {
			m.raise(CallStackUnderflow, "no pending call")
			return false
		}
		m.pc = f.Return
		return false
	}

	// I/O and termination.
	ops[op.Output] = func(m *Machine, _ op.Instruction) bool {
		v, _ := m.stack.Pop()
		text := strconv.FormatInt(v, 10)
		if _, err := fmt.Fprintln(m.out, text); err != nil && m.logger != nil {
			m.logger.Warn("output write failed", "pc", hexAddr(m.pc), "error", err)
		}
		m.send(MsgOutput, m.pc, text)
		return true
	}
	ops[op.Halt] = func(m *Machine, _ op.Instruction) bool {
		m.state = Halted
		m.send(MsgHalt, m.pc, "")
		return false
	}

	return ops
}()

func init() {
	for _, oc := range op.OpCodeTable {
		if _, ok := ops[oc.Code]; !ok {
			panic("missing op function for " + oc.Name)
		}
	}
}
