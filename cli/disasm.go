package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"go.creack.net/stackvm/disasm"
	"go.creack.net/stackvm/internal/colorize"
	"go.creack.net/stackvm/op"
)

func (a *app) disasmCmd() *cobra.Command {
	var (
		forceColor bool
		addresses  bool
	)

	cmd := &cobra.Command{
		Use:   "disasm FILE",
		Short: "Print the assembly source of a binary program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			data, err := os.ReadFile(input)
			if err != nil {
				return errors.Wrapf(err, "failed to read file %q", input)
			}
			name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

			w := cmd.OutOrStdout()
			color := forceColor || a.color(w)

			if addresses {
				bin, err := op.Load(data)
				if err != nil {
					return errors.Wrapf(err, "failed to load binary %q", input)
				}
				writeListing(w, disasm.Listing(bin.Code, nil), color)
				return nil
			}

			pr, err := disasm.Disassemble(name, data)
			if err != nil {
				return errors.Wrapf(err, "failed to disassemble %q", input)
			}
			src := disasm.Source(pr)
			if color {
				if hl, err := colorize.Highlight(src); err == nil {
					src = hl
				} else {
					a.logger.Warn("Failed to highlight source.", "error", err)
				}
			}
			fmt.Fprint(w, src)
			return nil
		},
	}
	cmd.Flags().BoolVar(&forceColor, "color", false, "Force colored output")
	cmd.Flags().BoolVarP(&addresses, "addresses", "a", false, "Print a listing with addresses")
	return cmd
}

func writeListing(w io.Writer, lines []disasm.Line, color bool) {
	for _, l := range lines {
		if l.Label != "" {
			fmt.Fprintln(w, colorize.Render(color, colorize.HeaderStyle, l.Label+":"))
		}
		if l.Size == 0 {
			continue
		}
		addr := colorize.Render(color, colorize.AddrStyle, fmt.Sprintf("%04x", l.Addr))
		text := l.Text
		switch {
		case l.Raw:
			text = colorize.Render(color, colorize.MutedStyle, text)
		case l.Control:
			text = colorize.Render(color, colorize.PCStyle, text)
		}
		fmt.Fprintf(w, "  %s  %s\n", addr, text)
	}
}
