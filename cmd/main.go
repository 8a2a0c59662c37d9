// Package main is the leadops entrypoint: the HTTP service plus offline
// engine commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "leadops",
		Short: "Lead takeover compensation and evaluation engine",
		Long: "leadops settles lead takeovers, evaluates lead performance, runs the bonus " +
			"accelerator and sizes crews. Without a subcommand it runs the HTTP service.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		newServeCmd(),
		newEvaluateCmd(),
		newQuoteCmd(),
		newCompensateCmd(),
		newLoadgenCmd(),
	)
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
