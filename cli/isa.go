package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"go.creack.net/stackvm/internal/colorize"
	"go.creack.net/stackvm/op"
)

const defaultWidth = 100

// ISAMarkdown renders the instruction set reference.
func ISAMarkdown() string {
	var b strings.Builder
	b.WriteString("# Instruction set\n\n")
	fmt.Fprintf(&b, "Values are 64-bit signed integers. Immediates take %d bytes, addresses %d, both little-endian. ", op.ImmediateSize, op.AddressSize)
	b.WriteString("For binary operations `a` is the second value from the top and `b` the top.\n\n")
	b.WriteString("| Tag | Mnemonic | Aliases | Operand | Pops | Pushes | Effect |\n")
	b.WriteString("|----:|----------|---------|---------|-----:|-------:|--------|\n")
	for _, oc := range op.OpCodeTable {
		fmt.Fprintf(&b, "| %d | `%s` | %s | %s | %d | %d | %s |\n",
			oc.Code, oc.Name, strings.Join(oc.Aliases, ", "), oc.Operand, oc.Pops, oc.Pushes,
			strings.ReplaceAll(oc.Comment, "|", `\|`))
	}
	b.WriteString("\n## Directives\n\n")
	fmt.Fprintf(&b, "- `%s` sets a breakpoint on the next instruction.\n", op.BreakCmdString)
	fmt.Fprintf(&b, "- `%s \"hh hh\"` emits raw bytes.\n", op.CodeCmdString)
	return b.String()
}

// termWidth returns the width of w when it is a terminal.
func termWidth(w io.Writer) int {
	if f, ok := w.(interface{ Fd() uintptr }); ok && term.IsTerminal(f.Fd()) {
		if width, _, err := term.GetSize(f.Fd()); err == nil && width > 0 {
			return width
		}
	}
	return defaultWidth
}

func (a *app) isaCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "isa",
		Short: "Print the instruction set reference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			md := ISAMarkdown()
			if raw {
				fmt.Fprint(w, md)
				return nil
			}
			out, err := colorize.RenderMarkdown(md, termWidth(w), a.color(w))
			if err != nil {
				return errors.Wrap(err, "failed to render markdown")
			}
			fmt.Fprint(w, out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the markdown source")
	return cmd
}
