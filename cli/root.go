// Package cli is the stackvm command tree.
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"go.creack.net/stackvm/internal/colorize"
)

type app struct {
	cfg    Config
	logger *log.Logger
}

// NewRootCmd builds the command tree. Logs go to the given logger.
func NewRootCmd(logger *log.Logger) *cobra.Command {
	a := &app{cfg: DefaultConfig(), logger: logger}

	root := &cobra.Command{
		Use:   "stackvm",
		Short: "Stack machine assembler, runner and debugger",
		Long: `Stackvm assembles .stasm sources into binary programs and runs them
on a stack machine with 64-bit signed values, an operand stack and a call stack.`,
		Example: `
# Assemble then run a program
stackvm asm prog.stasm
stackvm run prog.bin

# Run a source directly, bounded to one million steps
stackvm run --max-steps 1000000 prog.stasm

# Step through a program
stackvm debug prog.stasm
  `,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if a.cfg.Debug {
				a.logger.SetLevel(log.DebugLevel)
			}
		},
	}
	a.cfg.bindPersistent(root)

	root.AddCommand(
		a.asmCmd(),
		a.runCmd(),
		a.disasmCmd(),
		a.debugCmd(),
		a.isaCmd(),
		a.examplesCmd(),
		a.schemaCmd(),
	)
	return root
}

// color reports whether output to w should be colored.
func (a *app) color(w io.Writer) bool {
	return !a.cfg.NoColor && colorize.Enabled(w)
}

// ErrorHandler prints errors with their stack trace when the root
// debug flag is set, fang's way otherwise.
func ErrorHandler(root *cobra.Command) fang.ErrorHandler {
	return func(w io.Writer, styles fang.Styles, err error) {
		if debug, _ := root.PersistentFlags().GetBool("debug"); debug {
			fmt.Fprintf(w, "%+v\n", err)
			return
		}
		fang.DefaultErrorHandler(w, styles, err)
	}
}
