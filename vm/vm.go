// Package vm is the stack machine execution engine.
package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"go.creack.net/stackvm/op"
)

// ErrStepLimit is returned by RunContext when the step bound is hit.
var ErrStepLimit = errors.New("step limit reached")

// Config bounds the machine resources. Zero means unlimited.
type Config struct {
	MaxStackDepth int // Operand stack values.
	MaxCallDepth  int // Pending calls.
}

// DefaultConfig is the configuration of machines created without WithConfig.
var DefaultConfig = Config{
	MaxStackDepth: 1 << 20,
	MaxCallDepth:  1 << 16,
}

// Option configures a Machine in New.
type Option func(*Machine)

// WithConfig sets the resource bounds.
func WithConfig(cfg Config) Option {
	return func(m *Machine) { m.cfg = cfg }
}

// WithLogger enables the per-step trace, at debug level.
func WithLogger(l *log.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithDebugInfo sets the breakpoints and the source lines used in traces.
func WithDebugInfo(d *op.DebugInfo) Option {
	return func(m *Machine) { m.debug = d }
}

// WithMessages sets a channel where the machine will send messages.
// Needs to be consumed otherwise it will block.
func WithMessages(ch chan<- Message) Option {
	return func(m *Machine) { m.messages = ch }
}

// Machine executes a code section one instruction at a time.
// Not safe for concurrent use.
type Machine struct {
	code   []byte
	starts []bool // Instruction boundaries.
	out    io.Writer

	cfg      Config
	logger   *log.Logger
	debug    *op.DebugInfo
	messages chan<- Message

	pc    uint32
	state State
	fault *Fault
	steps uint64
	stack Stack
	calls CallStack
}

// New creates a machine over a raw code section.
// Program output goes to out, nil discards it.
func New(code []byte, out io.Writer, opts ...Option) *Machine {
	if out == nil {
		out = io.Discard
	}
	m := &Machine{
		code:   code,
		starts: op.Boundaries(code),
		out:    out,
		cfg:    DefaultConfig,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load validates a binary file content and creates a machine for it.
func Load(data []byte, out io.Writer, opts ...Option) (*Machine, error) {
	bin, err := op.Load(data)
	if err != nil {
		return nil, fmt.Errorf("load binary: %w", err)
	}
	return New(bin.Code, out, opts...), nil
}

// Execute runs the program to completion.
// Programs that never halt never return, use RunContext to bound them.
func Execute(bin *op.Binary, out io.Writer, opts ...Option) Result {
	return New(bin.Code, out, opts...).Run()
}

// IsBoundary reports whether addr is the start of an instruction.
func (m *Machine) IsBoundary(addr uint32) bool {
	return int64(addr) < int64(len(m.starts)) && m.starts[addr]
}

func (m *Machine) send(mt MessageType, addr uint32, msg string) {
	if m.messages == nil {
		return
	}
	m.messages <- NewMessage(mt, addr, msg)
}

// raise faults the machine at the current PC.
func (m *Machine) raise(kind FaultKind, format string, args ...any) {
	m.state = Faulted
	m.fault = &Fault{Kind: kind, Addr: m.pc, Msg: fmt.Sprintf(format, args...)}
	if m.logger != nil {
		m.logger.Debug("fault", "pc", hexAddr(m.pc), "kind", kind, "msg", m.fault.Msg)
	}
	m.send(MsgFault, m.pc, m.fault.Error())
}

func hexAddr(addr uint32) string {
	return fmt.Sprintf("0x%04x", addr)
}

// Step executes one instruction. No-op once halted or faulted.
func (m *Machine) Step() State {
	if m.state != Running {
		return m.state
	}
	m.steps++

	if !m.IsBoundary(m.pc) {
		if int64(m.pc) >= int64(len(m.code)) {
			m.raise(InvalidInstruction, "pc out of code range (size %d)", len(m.code))
		} else {
			m.raise(InvalidInstruction, "pc inside an instruction")
		}
		return m.state
	}
	ins, err := op.Decode(m.code, int(m.pc))
	if err != nil {
		m.raise(InvalidInstruction, "%s", err)
		return m.state
	}

	oc := ins.OpCode
	if len(m.stack) < oc.Pops {
		m.raise(StackUnderflow, "%s needs %d values, got %d", oc.Name, oc.Pops, len(m.stack))
		return m.state
	}
	if limit := m.cfg.MaxStackDepth; limit > 0 && len(m.stack)-oc.Pops+oc.Pushes > limit {
		m.raise(StackOverflow, "%s exceeds %d values", oc.Name, limit)
		return m.state
	}

	if m.debug.BreakpointAt(m.pc) {
		m.send(MsgBreak, m.pc, ins.String())
	}
	m.trace(ins)

	if ops[oc.Code](m, ins) && m.state == Running {
		m.pc += uint32(ins.Size())
	}
	return m.state
}

func (m *Machine) trace(ins op.Instruction) {
	if m.logger == nil {
		return
	}
	kv := []any{"pc", hexAddr(m.pc), "ins", ins.String(), "stack", m.stack.String()}
	if name, ok := m.debug.LabelAt(m.pc); ok {
		kv = append(kv, "label", name)
	}
	if line := m.debug.LineAt(m.pc); line > 0 {
		kv = append(kv, "line", line)
	}
	m.logger.Debug("step", kv...)
}

// Run steps until the machine halts or faults.
func (m *Machine) Run() Result {
	for m.state == Running {
		m.Step()
	}
	return m.Result()
}

// RunSteps executes at most n steps.
func (m *Machine) RunSteps(n uint64) State {
	for i := uint64(0); i < n && m.state == Running; i++ {
		m.Step()
	}
	return m.state
}

// Continue runs until a terminal state or the next breakpoint.
// The current instruction is always executed, so a machine
// stopped on a breakpoint makes progress.
func (m *Machine) Continue() State {
	m.Step()
	for m.state == Running && !m.debug.BreakpointAt(m.pc) {
		m.Step()
	}
	return m.state
}

// RunContext runs until a terminal state, maxSteps total steps (0 for no
// limit) or ctx is done. The machine stays Running when bounded.
func (m *Machine) RunContext(ctx context.Context, maxSteps uint64) (Result, error) {
	const chunk = 1 << 12
	for m.state == Running {
		if err := ctx.Err(); err != nil {
			return m.Result(), err
		}
		n := uint64(chunk)
		if maxSteps > 0 {
			if m.steps >= maxSteps {
				return m.Result(), ErrStepLimit
			}
			n = min(n, maxSteps-m.steps)
		}
		m.RunSteps(n)
	}
	return m.Result(), nil
}

// Reset brings the machine back to its initial state.
func (m *Machine) Reset() {
	m.pc = 0
	m.state = Running
	m.fault = nil
	m.steps = 0
	m.stack = m.stack[:0]
	m.calls = m.calls[:0]
}

func (m *Machine) PC() uint32               { return m.pc }
func (m *Machine) State() State             { return m.state }
func (m *Machine) Fault() *Fault            { return m.fault }
func (m *Machine) Steps() uint64            { return m.steps }
func (m *Machine) Code() []byte             { return m.code }
func (m *Machine) DebugInfo() *op.DebugInfo { return m.debug }

func (m *Machine) Result() Result {
	return Result{State: m.state, Fault: m.fault, Steps: m.steps}
}

// Snapshot is a copy of the machine state.
type Snapshot struct {
	PC    uint32
	State State
	Fault *Fault
	Steps uint64
	Stack Stack
	Calls CallStack
}

func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		PC:    m.pc,
		State: m.state,
		Fault: m.fault,
		Steps: m.steps,
		Stack: slices.Clone(m.stack),
		Calls: slices.Clone(m.calls),
	}
}
