package cli

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"go.creack.net/stackvm/asm"
)

func (a *app) asmCmd() *cobra.Command {
	var (
		output      string
		prettyPrint bool
	)

	cmd := &cobra.Command{
		Use:   "asm FILE",
		Short: "Assemble a source file into a binary program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			data, err := os.ReadFile(input)
			if err != nil {
				return errors.Wrapf(err, "failed to read file %q", input)
			}
			buf, pr, err := asm.Compile(input, string(data))
			if err != nil {
				return errors.WithStack(err)
			}
			if prettyPrint {
				fmt.Fprint(cmd.OutOrStdout(), pr.PrettyPrint())
				return nil
			}

			out := output
			if out == "" {
				out = OutputName(input)
			}
			if err := os.WriteFile(out, buf, 0o644); err != nil {
				return errors.Wrapf(err, "failed to write file %q", out)
			}
			a.logger.Info("Assembled.", "input", input, "output", out, "instructions", pr.InstructionCount(), "code", pr.Size())
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: input with "+BinaryExt+" extension)")
	cmd.Flags().BoolVar(&prettyPrint, "pretty", false, "Pretty print, do not write the binary")
	return cmd
}
