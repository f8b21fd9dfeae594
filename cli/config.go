package cli

import (
	"time"

	"github.com/spf13/cobra"

	"go.creack.net/stackvm/vm"
)

// Config is the command line configuration, shared by all commands.
type Config struct {
	MaxSteps  uint64        `json:"max-steps" jsonschema:"title=Max Steps,description=Stop a run after this many steps (0 for no limit)"`
	Timeout   time.Duration `json:"timeout" jsonschema:"title=Timeout,description=Wall clock bound of a run in nanoseconds (0 for no limit)"`
	StackSize int           `json:"stack-size" jsonschema:"title=Stack Size,description=Maximum operand stack depth (0 for no limit)"`
	CallDepth int           `json:"call-depth" jsonschema:"title=Call Depth,description=Maximum pending calls (0 for no limit)"`
	Trace     bool          `json:"trace" jsonschema:"title=Trace,description=Log every executed instruction"`
	Dump      bool          `json:"dump" jsonschema:"title=Dump,description=Dump the final machine state"`
	NoColor   bool          `json:"no-color" jsonschema:"title=No Color,description=Disable colored output"`
	Debug     bool          `json:"debug" jsonschema:"title=Debug,description=Enable debug logging and error stack traces"`
}

func DefaultConfig() Config {
	return Config{
		StackSize: vm.DefaultConfig.MaxStackDepth,
		CallDepth: vm.DefaultConfig.MaxCallDepth,
	}
}

// VM returns the machine resource bounds.
func (c Config) VM() vm.Config {
	return vm.Config{
		MaxStackDepth: c.StackSize,
		MaxCallDepth:  c.CallDepth,
	}
}

func (c *Config) bindPersistent(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&c.Debug, "debug", "d", c.Debug, "Debug")
	cmd.PersistentFlags().BoolVar(&c.NoColor, "no-color", c.NoColor, "Disable colored output")
}

func (c *Config) bindMachine(cmd *cobra.Command) {
	cmd.Flags().IntVar(&c.StackSize, "stack-size", c.StackSize, "Maximum operand stack depth (0 for no limit)")
	cmd.Flags().IntVar(&c.CallDepth, "call-depth", c.CallDepth, "Maximum pending calls (0 for no limit)")
}

func (c *Config) bindRun(cmd *cobra.Command) {
	c.bindMachine(cmd)
	cmd.Flags().Uint64VarP(&c.MaxSteps, "max-steps", "n", c.MaxSteps, "Stop after this many steps (0 for no limit)")
	cmd.Flags().DurationVarP(&c.Timeout, "timeout", "t", c.Timeout, "Stop after this duration (0 for no limit)")
	cmd.Flags().BoolVar(&c.Trace, "trace", c.Trace, "Log every executed instruction")
	cmd.Flags().BoolVar(&c.Dump, "dump", c.Dump, "Dump the final machine state")
}
