package op

import (
	"maps"
	"slices"
)

// DebugInfo holds the source level metadata of a program.
// It is not part of the binary format.
type DebugInfo struct {
	labels      map[uint32]string
	lines       map[uint32]int
	breakpoints map[uint32]struct{}
}

func NewDebugInfo() *DebugInfo {
	return &DebugInfo{
		labels:      map[uint32]string{},
		lines:       map[uint32]int{},
		breakpoints: map[uint32]struct{}{},
	}
}

// AddLabel names the given address. The first name wins.
func (d *DebugInfo) AddLabel(addr uint32, name string) {
	if _, ok := d.labels[addr]; ok {
		return
	}
	d.labels[addr] = name
}

// LabelAt returns the label of the address, if any.
// Safe to call on a nil DebugInfo.
func (d *DebugInfo) LabelAt(addr uint32) (string, bool) {
	if d == nil {
		return "", false
	}
	name, ok := d.labels[addr]
	return name, ok
}

func (d *DebugInfo) AddLine(addr uint32, line int) {
	d.lines[addr] = line
}

// LineAt returns the source line of the instruction at addr, 0 if unknown.
func (d *DebugInfo) LineAt(addr uint32) int {
	if d == nil {
		return 0
	}
	return d.lines[addr]
}

func (d *DebugInfo) AddBreakpoint(addr uint32) {
	d.breakpoints[addr] = struct{}{}
}

// ToggleBreakpoint flips the breakpoint at addr and returns the new state.
func (d *DebugInfo) ToggleBreakpoint(addr uint32) bool {
	if _, ok := d.breakpoints[addr]; ok {
		delete(d.breakpoints, addr)
		return false
	}
	d.breakpoints[addr] = struct{}{}
	return true
}

func (d *DebugInfo) BreakpointAt(addr uint32) bool {
	if d == nil {
		return false
	}
	_, ok := d.breakpoints[addr]
	return ok
}

// Breakpoints returns the sorted breakpoint addresses.
func (d *DebugInfo) Breakpoints() []uint32 {
	if d == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(d.breakpoints))
}
