// Command walkthrough plays, inspects, validates and tests timed walkthroughs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/walkthrough/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(cli.GetExitCode(err))
}
