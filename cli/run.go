package cli

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"go.creack.net/stackvm/vm"
)

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a source or binary program",
		Long: `Run a program, assembling it in memory when given a source file.
Program output goes to stdout. The exit status is 1 when the program faults
or when a bound is hit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := Load(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if a.cfg.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
				defer cancel()
			}

			opts := []vm.Option{
				vm.WithConfig(a.cfg.VM()),
				vm.WithDebugInfo(p.Prog.DebugInfo()),
			}
			if a.cfg.Trace {
				a.logger.SetLevel(log.DebugLevel)
				opts = append(opts, vm.WithLogger(a.logger))
			}
			m := vm.New(p.Binary.Code, cmd.OutOrStdout(), opts...)

			res, runErr := m.RunContext(ctx, a.cfg.MaxSteps)
			if a.cfg.Dump {
				spew.Fdump(cmd.ErrOrStderr(), m.Snapshot())
			}
			if a.logger.GetLevel() <= log.DebugLevel {
				a.logger.Debug("Final state.", "snapshot", spew.Sdump(m.Snapshot()))
			}

			if runErr != nil {
				a.logger.Error("Run stopped.", "program", p.ShortName, "pc", m.PC(), "steps", res.Steps, "reason", runErr)
				return errors.Wrapf(runErr, "%s stopped after %d steps", p.ShortName, res.Steps)
			}
			if res.State == vm.Faulted {
				a.logger.Error("Faulted.", "program", p.ShortName, "kind", res.Fault.Kind, "steps", res.Steps)
				return errors.WithStack(res.Err())
			}
			a.logger.Info("Halted.", "program", p.ShortName, "steps", res.Steps)
			return nil
		},
	}
	a.cfg.bindRun(cmd)
	return cmd
}
