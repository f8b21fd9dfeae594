package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/tebeka/atexit"

	"go.creack.net/stackvm/cli"
	"go.creack.net/stackvm/internal/logging"
)

// Set at build time.
var version = "dev"

func main() {
	logger := logging.NewLogger()
	atexit.Register(func() { _ = logger.Close() })

	root := cli.NewRootCmd(logger.Logger)
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithoutManpage(),
		fang.WithErrorHandler(cli.ErrorHandler(root)),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
