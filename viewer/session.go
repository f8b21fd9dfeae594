package viewer

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"go.creack.net/stackvm/disasm"
	"go.creack.net/stackvm/op"
	"go.creack.net/stackvm/vm"
)

// DefaultBudget is the number of steps a continue runs per tick.
const DefaultBudget = 1 << 12

// Session drives a machine for an interactive front end.
// Machine messages are drained after every step, so the machine never blocks
// on them. Not safe for concurrent use: front ends call it from their UI loop.
type Session struct {
	m         *vm.Machine
	debug     *op.DebugInfo
	listing   []disasm.Line
	rows      map[uint32]int // Address to listing row.
	messages  chan vm.Message
	logger    *log.Logger
	budget    int
	onMessage func(vm.Message)

	paused     bool
	continuing bool // Run to the next breakpoint, budget steps per tick.
}

// NewSession creates a paused session. Program output goes to out.
func NewSession(code []byte, out io.Writer, opts Options) *Session {
	debugInfo := opts.DebugInfo
	if debugInfo == nil {
		debugInfo = op.NewDebugInfo()
	}
	budget := opts.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}

	// At most two messages per step, drained after each of them.
	messages := make(chan vm.Message, 16)
	vmOpts := []vm.Option{
		vm.WithConfig(opts.VM),
		vm.WithDebugInfo(debugInfo),
		vm.WithMessages(messages),
	}
	if opts.Logger != nil {
		vmOpts = append(vmOpts, vm.WithLogger(opts.Logger))
	}

	s := &Session{
		m:        vm.New(code, out, vmOpts...),
		debug:    debugInfo,
		listing:  disasm.Listing(code, debugInfo),
		rows:     map[uint32]int{},
		messages: messages,
		logger:   opts.Logger,
		budget:   budget,
		paused:   true,
	}
	for i, l := range s.listing {
		s.rows[l.Addr] = i
	}
	return s
}

// OnMessage sets the function called with every machine message.
func (s *Session) OnMessage(f func(vm.Message)) { s.onMessage = f }

func (s *Session) Machine() *vm.Machine     { return s.m }
func (s *Session) DebugInfo() *op.DebugInfo { return s.debug }
func (s *Session) Listing() []disasm.Line   { return s.listing }
func (s *Session) Paused() bool             { return s.paused }
func (s *Session) Continuing() bool         { return s.continuing }

// Row returns the listing row of the instruction at addr.
func (s *Session) Row(addr uint32) (int, bool) {
	row, ok := s.rows[addr]
	return row, ok
}

func (s *Session) pause() {
	s.paused = true
	s.continuing = false
}

// step executes one instruction. Returns false when the session paused,
// on a breakpoint or a terminal state.
func (s *Session) step() bool {
	if s.m.State() != vm.Running {
		s.pause()
		return false
	}
	s.m.Step()
	s.drainMessages()
	if s.m.State() != vm.Running || s.debug.BreakpointAt(s.m.PC()) {
		s.pause()
		return false
	}
	return true
}

func (s *Session) runBudget() {
	for i := 0; i < s.budget && s.step(); i++ {
	}
}

// Step pauses and executes one instruction.
func (s *Session) Step() {
	s.pause()
	s.step()
}

// TogglePause switches between paused and running one step per tick.
func (s *Session) TogglePause() {
	if s.paused {
		s.paused = false
		return
	}
	s.pause()
}

// Continue runs to the next breakpoint or terminal state. The current
// instruction always executes. A first budget of steps runs right away,
// the following ones on each Tick, until the session pauses.
func (s *Session) Continue() {
	s.paused = false
	s.continuing = true
	s.runBudget()
}

// Tick advances a running session: one step, or a budget when continuing.
func (s *Session) Tick() {
	switch {
	case s.paused:
	case s.continuing:
		s.runBudget()
	default:
		s.step()
	}
}

// Reset pauses and brings the machine back to its initial state.
func (s *Session) Reset() {
	s.pause()
	s.m.Reset()
	s.drainMessages()
}

// ToggleBreakpoint toggles the breakpoint on the given listing row and
// returns its address and new state. ok is false for rows out of the listing.
func (s *Session) ToggleBreakpoint(row int) (addr uint32, on, ok bool) {
	if row < 0 || row >= len(s.listing) {
		return 0, false, false
	}
	addr = s.listing[row].Addr
	return addr, s.debug.ToggleBreakpoint(addr), true
}

func (s *Session) drainMessages() {
	for {
		select {
		case msg := <-s.messages:
			if s.onMessage != nil {
				s.onMessage(msg)
			}
			if s.logger != nil {
				s.logger.Debug("message", "type", msg.Type, "addr", fmt.Sprintf("0x%04x", msg.Addr), "msg", msg.Message)
			}
		default:
			return
		}
	}
}

// Mode is the run mode shown to the user.
func (s *Session) Mode() string {
	switch {
	case s.paused:
		return "paused"
	case s.continuing:
		return "continuing"
	default:
		return "running"
	}
}

// Summary describes the machine state.
func (s *Session) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s after %d steps", s.m.State(), s.m.Steps())
	if f := s.m.Fault(); f != nil {
		fmt.Fprintf(&b, ": %s", f)
	}
	return b.String()
}
