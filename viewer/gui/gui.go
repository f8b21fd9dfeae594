// Package gui is a windowed debugger for the stack machine.
//
// The window needs the gui build tag: ebiten links against the system
// graphics libraries through cgo. Without it, Run returns ErrNoGUI.
package gui

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.creack.net/stackvm/viewer"
	"go.creack.net/stackvm/vm"
)

// ErrNoGUI is returned by Run when built without the gui tag.
var ErrNoGUI = errors.New("built without the gui tag")

// tps is the ebiten update rate.
const tps = 60

const (
	maxLogs   = 8
	maxOutput = 10
)

type action int

const (
	actNone action = iota
	actStep
	actPause
	actContinue
	actBreakpoint
	actReset
	actUp
	actDown
	actQuit
)

// codeLine is a rendered listing row.
type codeLine struct {
	text       string
	current    bool
	breakpoint bool
	selected   bool
}

// Game implements ebiten.Game over a debugger session.
type Game struct {
	s    *viewer.Session
	name string
	out  *bytes.Buffer

	cursor int // Selected listing row.
	logs   []string
	frames int
	every  int // Frames between two ticks.
}

func New(code []byte, opts viewer.Options) *Game {
	tick := opts.Tick
	if tick <= 0 {
		tick = viewer.DefaultTick
	}
	out := &bytes.Buffer{}
	g := &Game{
		s:     viewer.NewSession(code, out, opts),
		name:  opts.Name,
		out:   out,
		every: max(1, int(tick/(time.Second/tps))),
	}
	g.s.OnMessage(g.logMessage)
	return g
}

func (g *Game) Session() *viewer.Session { return g.s }

func (g *Game) Summary() string { return g.s.Summary() }

func (g *Game) logf(format string, args ...any) {
	g.logs = append(g.logs, fmt.Sprintf(format, args...))
	if len(g.logs) > maxLogs {
		g.logs = g.logs[len(g.logs)-maxLogs:]
	}
}

func (g *Game) logMessage(msg vm.Message) {
	switch msg.Type {
	case vm.MsgBreak:
		g.logf("break at 0x%04x: %s", msg.Addr, msg.Message)
	case vm.MsgHalt:
		g.logf("halted at 0x%04x", msg.Addr)
	case vm.MsgFault:
		g.logf("%s", msg.Message)
	}
}

// apply runs a user action. Returns true to quit.
func (g *Game) apply(a action) bool {
	switch a {
	case actStep:
		g.s.Step()
	case actPause:
		g.s.TogglePause()
	case actContinue:
		g.s.Continue()
	case actBreakpoint:
		if addr, on, ok := g.s.ToggleBreakpoint(g.cursor); ok {
			state := "off"
			if on {
				state = "on"
			}
			g.logf("breakpoint 0x%04x %s", addr, state)
		}
	case actReset:
		g.s.Reset()
		g.out.Reset()
		g.logf("reset")
	case actUp:
		g.cursor = max(0, g.cursor-1)
	case actDown:
		g.cursor = max(0, min(len(g.s.Listing())-1, g.cursor+1))
	case actQuit:
		return true
	}
	if a == actStep || a == actContinue || a == actReset {
		g.follow()
	}
	return false
}

// update is one frame: the user action, then a tick every few frames.
func (g *Game) update(a action) bool {
	if g.apply(a) {
		return true
	}
	g.frames++
	if g.frames%g.every == 0 && !g.s.Paused() {
		g.s.Tick()
		g.follow()
	}
	return false
}

// follow moves the cursor to the PC.
func (g *Game) follow() {
	if row, ok := g.s.Row(g.s.Machine().PC()); ok {
		g.cursor = row
	}
}

// codeLines returns at most height listing rows around the cursor.
func (g *Game) codeLines(height int) []codeLine {
	listing := g.s.Listing()
	debug := g.s.DebugInfo()
	pc := g.s.Machine().PC()

	start := max(0, min(g.cursor-height/2, len(listing)-height))
	end := min(len(listing), start+height)

	out := make([]codeLine, 0, end-start)
	for i := start; i < end; i++ {
		l := listing[i]
		label := ""
		if l.Label != "" {
			label = l.Label + ":"
		}
		text := ""
		if l.Size > 0 {
			text = l.Text
		}
		out = append(out, codeLine{
			text:       fmt.Sprintf("%04x  %-12s %s", l.Addr, label, text),
			current:    l.Addr == pc && l.Size > 0,
			breakpoint: debug.BreakpointAt(l.Addr),
			selected:   i == g.cursor,
		})
	}
	return out
}

// sideText renders the state, the stacks, the output and the logs.
func (g *Game) sideText() string {
	m := g.s.Machine()
	snap := m.Snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", g.name)
	fmt.Fprintf(&b, "State: %s (%s)\n", snap.State, g.s.Mode())
	fmt.Fprintf(&b, "PC:    0x%04x\n", snap.PC)
	fmt.Fprintf(&b, "Steps: %d\n", snap.Steps)
	if snap.Fault != nil {
		fmt.Fprintf(&b, "%s\n", snap.Fault)
	}

	b.WriteString("\nStack\n")
	for i := len(snap.Stack) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%3d  %d\n", i, snap.Stack[i])
	}
	b.WriteString("\nCalls\n")
	for i := len(snap.Calls) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%3d  ret 0x%04x  base %d\n", i, snap.Calls[i].Return, snap.Calls[i].Base)
	}

	b.WriteString("\nOutput\n")
	lines := strings.Split(strings.TrimSuffix(g.out.String(), "\n"), "\n")
	if len(lines) > maxOutput {
		lines = lines[len(lines)-maxOutput:]
	}
	b.WriteString(strings.Join(lines, "\n"))

	b.WriteString("\n\nLogs\n")
	b.WriteString(strings.Join(g.logs, "\n"))
	b.WriteString("\n\nn step  space run/pause  c continue\nb breakpoint  r reset  q quit")
	return b.String()
}
