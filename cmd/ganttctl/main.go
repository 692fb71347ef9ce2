// Command ganttctl computes charts from snapshot files and mints API tokens
// for local testing.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ganttctl",
		Short:        "Offline tools for the gantt service",
		SilenceUsage: true,
	}
	root.AddCommand(newComputeCmd())
	root.AddCommand(newTokenCmd())
	return root
}
