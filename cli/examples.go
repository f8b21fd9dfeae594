package cli

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"go.creack.net/stackvm/assets"
	"go.creack.net/stackvm/internal/colorize"
	"go.creack.net/stackvm/op"
)

// summary is the first comment line of a sample.
func summary(src string) string {
	line, _, _ := strings.Cut(src, "\n")
	return strings.TrimSpace(strings.TrimLeft(line, op.CommentChars))
}

func (a *app) examplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "examples [NAME]",
		Short:     "List the embedded sample programs or print one",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: assets.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			color := a.color(w)

			if len(args) == 0 {
				names := assets.Names()
				width := 0
				for _, name := range names {
					width = max(width, len(name))
				}
				for _, name := range names {
					src, err := assets.Source(name)
					if err != nil {
						return errors.Wrapf(err, "failed to read sample %q", name)
					}
					fmt.Fprintf(w, "%s  %s\n",
						colorize.Render(color, colorize.HeaderStyle, fmt.Sprintf("%-*s", width, name)),
						colorize.Render(color, colorize.MutedStyle, summary(src)))
				}
				return nil
			}

			src, err := assets.Source(args[0])
			if err != nil {
				return errors.Wrapf(err, "unknown sample %q", args[0])
			}
			if color {
				if hl, err := colorize.Highlight(src); err == nil {
					src = hl
				}
			}
			fmt.Fprint(w, src)
			return nil
		},
	}
}
