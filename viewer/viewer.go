// Package viewer is an interactive terminal debugger for the stack machine.
package viewer

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"go.creack.net/stackvm/disasm"
	"go.creack.net/stackvm/op"
	"go.creack.net/stackvm/vm"
)

const (
	pageMain   = "main"
	pageSource = "source"
)

// DefaultTick is the delay between two steps when running.
const DefaultTick = 100 * time.Millisecond

type Options struct {
	Name      string
	Source    string // Shown on the source page when set.
	DebugInfo *op.DebugInfo
	VM        vm.Config
	Logger    *log.Logger
	Tick      time.Duration
	Budget    int // Steps per tick when continuing.
}

// Debugger owns a machine and the views rendering it.
// Everything but the ticker runs on the application goroutine.
type Debugger struct {
	app  *tview.Application
	root *tview.Pages

	codeView   *tview.Table
	stackView  *tview.TextView
	callsView  *tview.TextView
	stateView  *tview.TextView
	outputView *tview.TextView
	logsView   *tview.TextView

	s        *Session
	m        *vm.Machine
	debug    *op.DebugInfo
	listing  []disasm.Line
	logger   *log.Logger
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

func New(ctx context.Context, code []byte, opts Options) *Debugger {
	app := tview.NewApplication().EnableMouse(true)

	newTextView := func(title string) *tview.TextView {
		tv := tview.NewTextView().SetDynamicColors(true)
		tv.SetTitle(title).SetBorder(true)
		return tv
	}

	codeView := tview.NewTable().SetBorders(false).SetSelectable(true, false)
	codeView.SetTitle(opts.Name).SetBorder(true)

	stateView := newTextView("State")
	stackView := newTextView("Stack")
	callsView := newTextView("Calls")
	outputView := newTextView("Output")
	outputView.SetDynamicColors(false).SetScrollable(true)
	logsView := newTextView("Logs")
	logsView.ScrollToEnd()

	rightPane := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(stateView, 7, 0, false).
		AddItem(stackView, 0, 3, false).
		AddItem(callsView, 0, 2, false).
		AddItem(outputView, 0, 3, false).
		AddItem(logsView, 0, 2, false)

	flex := tview.NewFlex().
		AddItem(codeView, 0, 3, true).
		AddItem(rightPane, 0, 2, false)

	pages := tview.NewPages()
	pages.AddPage(pageMain, flex, true, true)
	if opts.Source != "" {
		src := tview.NewTextView().SetText(opts.Source)
		src.SetTitle("Source").SetBorder(true)
		pages.AddPage(pageSource, src, true, false)
	}

	interval := opts.Tick
	if interval <= 0 {
		interval = DefaultTick
	}

	sess := NewSession(code, outputView, opts)

	ctx, cancel := context.WithCancel(ctx)

	d := &Debugger{
		app:  app,
		root: pages,

		codeView:   codeView,
		stackView:  stackView,
		callsView:  callsView,
		stateView:  stateView,
		outputView: outputView,
		logsView:   logsView,

		s:        sess,
		m:        sess.Machine(),
		debug:    sess.DebugInfo(),
		listing:  sess.Listing(),
		logger:   opts.Logger,
		interval: interval,

		ctx:    ctx,
		cancel: cancel,
	}
	sess.OnMessage(d.logMessage)
	return d
}

func (d *Debugger) Machine() *vm.Machine { return d.m }
func (d *Debugger) Paused() bool         { return d.s.Paused() }

func (d *Debugger) Stop() {
	d.app.Stop()
	d.cancel()
}

// Init wires the key bindings.
func (d *Debugger) Init() {
	d.root.SetInputCapture(d.handleKey)
}

func (d *Debugger) handleKey(event *tcell.EventKey) *tcell.EventKey {
	curPage, _ := d.root.GetFrontPage()
	switch event.Key() {
	case tcell.KeyCtrlC, tcell.KeyEscape:
		if curPage != pageMain {
			d.root.SwitchToPage(pageMain)
			return nil
		}
		d.Stop()
		return nil
	}
	if curPage != pageMain {
		switch event.Rune() {
		case 'q', 's', ' ':
			d.root.SwitchToPage(pageMain)
			return nil
		}
		return event
	}
	switch event.Rune() {
	case 'n':
		d.s.Step()
	case ' ':
		d.s.TogglePause()
	case 'c':
		d.s.Continue()
	case 'b':
		row, _ := d.codeView.GetSelection()
		if addr, on, ok := d.s.ToggleBreakpoint(row); ok {
			d.logf("[yellow]breakpoint 0x%04x %s[-]", addr, onOff(on))
		}
	case 'r':
		d.s.Reset()
		d.outputView.Clear()
		d.logf("[yellow]reset[-]")
	case 's':
		if d.root.HasPage(pageSource) {
			d.root.SwitchToPage(pageSource)
		}
	case 'q':
		d.Stop()
	default:
		return event
	}
	d.Draw()
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// tick is called by the ticker, on the application goroutine.
func (d *Debugger) tick() {
	if d.s.Paused() {
		return
	}
	d.s.Tick()
	d.Draw()
}

func (d *Debugger) logMessage(msg vm.Message) {
	switch msg.Type {
	case vm.MsgOutput:
		// Already in the output view.
	case vm.MsgBreak:
		d.logf("[yellow]break at 0x%04x: %s[-]", msg.Addr, tview.Escape(msg.Message))
	case vm.MsgHalt:
		d.logf("[green]halted at 0x%04x[-]", msg.Addr)
	case vm.MsgFault:
		d.logf("[red]%s[-]", tview.Escape(msg.Message))
	}
}

func (d *Debugger) logf(format string, args ...any) {
	fmt.Fprintf(d.logsView, format+"\n", args...)
	d.logsView.ScrollToEnd()
}

func (d *Debugger) drawCode() {
	pc := d.m.PC()
	for i, l := range d.listing {
		marker := "  "
		if l.Addr == pc && l.Size > 0 {
			marker = ">>"
		}
		bp := " "
		if d.debug.BreakpointAt(l.Addr) {
			bp = "●"
		}
		label := ""
		if l.Label != "" {
			label = l.Label + ":"
		}

		cells := []*tview.TableCell{
			tview.NewTableCell(bp).SetTextColor(tcell.ColorRed),
			tview.NewTableCell(marker).SetTextColor(tcell.ColorYellow).SetAttributes(tcell.AttrBold),
			tview.NewTableCell(fmt.Sprintf("%04x", l.Addr)).SetTextColor(tcell.ColorDimGray),
			tview.NewTableCell(tview.Escape(label)).SetTextColor(tcell.ColorAqua),
			tview.NewTableCell(tview.Escape(l.Text)).SetExpansion(1),
		}
		if l.Raw {
			cells[4].SetTextColor(tcell.ColorDimGray).SetAttributes(tcell.AttrDim)
		}
		if marker != "  " {
			cells[4].SetAttributes(tcell.AttrReverse)
		}
		for col, c := range cells {
			d.codeView.SetCell(i, col, c)
		}
	}
}

func (d *Debugger) drawState() {
	sv := d.stateView
	sv.Clear()

	state := d.m.State()
	color := "green"
	switch state {
	case vm.Halted:
		color = "blue"
	case vm.Faulted:
		color = "red"
	}
	fmt.Fprintf(sv, "State: [%s]%s[-] (%s)\n", color, state, d.s.Mode())
	fmt.Fprintf(sv, "PC: 0x%04x", d.m.PC())
	if line := d.debug.LineAt(d.m.PC()); line > 0 {
		fmt.Fprintf(sv, " (line %d)", line)
	}
	fmt.Fprintf(sv, "\nSteps: %d\n", d.m.Steps())
	if f := d.m.Fault(); f != nil {
		fmt.Fprintf(sv, "[red]%s[-]\n", tview.Escape(f.Error()))
	}
}

func (d *Debugger) drawStacks() {
	snap := d.m.Snapshot()

	d.stackView.Clear()
	for i := len(snap.Stack) - 1; i >= 0; i-- {
		fmt.Fprintf(d.stackView, "%3d  %d\n", i, snap.Stack[i])
	}

	d.callsView.Clear()
	for i := len(snap.Calls) - 1; i >= 0; i-- {
		f := snap.Calls[i]
		fmt.Fprintf(d.callsView, "%3d  ret 0x%04x", i, f.Return)
		if name, ok := d.debug.LabelAt(f.Return); ok {
			fmt.Fprintf(d.callsView, " (%s)", tview.Escape(name))
		}
		fmt.Fprintf(d.callsView, "  base %d\n", f.Base)
	}
}

func (d *Debugger) Draw() {
	d.drawCode()
	d.drawState()
	d.drawStacks()
	if row, ok := d.s.Row(d.m.PC()); ok && !d.s.Paused() {
		d.codeView.Select(row, 0)
	}
}

// Run starts the ticker and blocks until the user quits.
func (d *Debugger) Run() error {
	d.Init()
	d.Draw()
	d.logf("[::b]n[::-] step  [::b]space[::-] run/pause  [::b]c[::-] continue  [::b]b[::-] breakpoint  [::b]r[::-] reset  [::b]s[::-] source  [::b]q[::-] quit")

	go func() {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		defer func() {
			if e := recover(); e != nil {
				d.app.Stop()
				if d.logger != nil {
					d.logger.Error("Recovered from panic.", "error", e, "stack", string(debug.Stack()))
				}
			}
		}()
		for {
			select {
			case <-ticker.C:
				d.app.QueueUpdateDraw(d.tick)
			case <-d.ctx.Done():
				d.app.Stop()
				return
			}
		}
	}()

	return d.app.SetRoot(d.root, true).SetFocus(d.codeView).Run()
}

// Summary describes the final machine state once the debugger exits.
func (d *Debugger) Summary() string {
	return d.s.Summary()
}
