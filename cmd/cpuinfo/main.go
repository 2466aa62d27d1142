// Command cpuinfo parses processor listings, checks listing sources and runs
// the inventory collector.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if errors.Is(err, errUnhealthy) {
		os.Exit(1)
	}
	cobra.CheckErr(err)
}
