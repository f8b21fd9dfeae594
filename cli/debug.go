package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"go.creack.net/stackvm/internal/logging"
	"go.creack.net/stackvm/viewer"
	"go.creack.net/stackvm/viewer/gui"
)

func (a *app) debugCmd() *cobra.Command {
	var (
		tick   time.Duration
		budget int
		window bool
	)

	cmd := &cobra.Command{
		Use:   "debug FILE",
		Short: "Step through a program in the terminal debugger",
		Long: `Open the interactive debugger on a source or binary program.

Keys: n step, space run/pause, c continue to the next breakpoint,
b toggle the breakpoint on the selected line, r reset, s source, q quit.

With --gui, the debugger opens in a window instead. The window needs a
binary built with the gui tag (go build -tags gui).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := Load(args[0])
			if err != nil {
				return err
			}

			opts := viewer.Options{
				Name:      p.ShortName,
				Source:    p.Source,
				DebugInfo: p.Prog.DebugInfo(),
				VM:        a.cfg.VM(),
				Tick:      tick,
				Budget:    budget,
			}
			// The trace would draw over the screen unless it goes to a file.
			if os.Getenv(logging.EnvToFile) == "1" {
				opts.Logger = a.logger
			}

			if window {
				g := gui.New(p.Binary.Code, opts)
				if err := gui.Run(g); err != nil {
					return errors.Wrap(err, "gui debugger")
				}
				a.logger.Info("Debugger closed.", "program", p.ShortName, "result", g.Summary())
				return nil
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			d := viewer.New(ctx, p.Binary.Code, opts)
			if err := d.Run(); err != nil {
				return fmt.Errorf("debugger: %w", err)
			}
			a.logger.Info("Debugger closed.", "program", p.ShortName, "result", d.Summary())
			return nil
		},
	}
	a.cfg.bindMachine(cmd)
	cmd.Flags().DurationVar(&tick, "tick", viewer.DefaultTick, "Delay between two steps when running")
	cmd.Flags().IntVar(&budget, "budget", viewer.DefaultBudget, "Steps per tick when continuing")
	cmd.Flags().BoolVar(&window, "gui", false, "Open the debugger in a window")
	return cmd
}
