// Command qmodel parses operator chains into query models and runs them.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/qmodel/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
