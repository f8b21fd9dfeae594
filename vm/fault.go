package vm

import "fmt"

// State of the machine.
type State int

const (
	Running State = iota
	Halted
	Faulted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FaultKind enum type.
type FaultKind int

// FaultKind values.
const (
	InvalidInstruction FaultKind = iota // Bad opcode, PC out of range or mid-instruction.
	StackUnderflow
	DivisionByZero
	ModuloByZero
	CallStackUnderflow // RET with no pending CALL.
	StackOverflow      // Configured operand stack depth exceeded.
	CallStackOverflow  // Configured call depth exceeded.
)

func (k FaultKind) String() string {
	switch k {
	case InvalidInstruction:
		return "invalid instruction"
	case StackUnderflow:
		return "stack underflow"
	case DivisionByZero:
		return "division by zero"
	case ModuloByZero:
		return "modulo by zero"
	case CallStackUnderflow:
		return "call stack underflow"
	case StackOverflow:
		return "stack overflow"
	case CallStackOverflow:
		return "call stack overflow"
	default:
		return fmt.Sprintf("FaultKind(%d)", int(k))
	}
}

// Fault is a terminal runtime error.
type Fault struct {
	Kind FaultKind
	Addr uint32 // PC at the time of the fault.
	Msg  string
}

func (f *Fault) Error() string {
	if f.Msg == "" {
		return fmt.Sprintf("%s at 0x%04x", f.Kind, f.Addr)
	}
	return fmt.Sprintf("%s at 0x%04x: %s", f.Kind, f.Addr, f.Msg)
}

// Result is the outcome of a run.
type Result struct {
	State State
	Fault *Fault // Set when State is Faulted.
	Steps uint64
}

// Err returns the fault, if any.
func (r Result) Err() error {
	if r.Fault == nil {
		return nil
	}
	return r.Fault
}

func (r Result) String() string {
	if r.Fault != nil {
		return fmt.Sprintf("%s after %d steps: %s", r.State, r.Steps, r.Fault)
	}
	return fmt.Sprintf("%s after %d steps", r.State, r.Steps)
}
