package vm

import (
	"fmt"
	"strings"
)

// Stack is the operand stack, top at the end.
type Stack []int64

func (s *Stack) Push(v int64) {
	*s = append(*s, v)
}

// Pop returns false when the stack is empty.
func (s *Stack) Pop() (int64, bool) {
	n := len(*s)
	if n == 0 {
		return 0, false
	}
	v := (*s)[n-1]
	*s = (*s)[:n-1]
	return v, true
}

func (s Stack) Peek() (int64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

func (s Stack) String() string {
	return fmt.Sprint([]int64(s))
}

// Frame is a call stack entry.
type Frame struct {
	Return uint32 // Address of the instruction following the CALL.
	Base   int    // Operand stack depth at call time.
}

type CallStack []Frame

func (c *CallStack) Push(f Frame) {
	*c = append(*c, f)
}

func (c *CallStack) Pop() (Frame, bool) {
	n := len(*c)
	if n == 0 {
		return Frame{}, false
	}
	f := (*c)[n-1]
	*c = (*c)[:n-1]
	return f, true
}

func (c CallStack) String() string {
	parts := make([]string, 0, len(c))
	for _, f := range c {
		parts = append(parts, fmt.Sprintf("0x%04x", f.Return))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
