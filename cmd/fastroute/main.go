// Package main provides the fastroute CLI: the routing server, an MCP stdio
// server and client commands for a running instance.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "fastroute",
		Short: "Latency-budgeted query router for answer-generation backends",
		Long: `fastroute routes natural-language queries to a local, heavy or
performance backend while holding a response-time budget.

Examples:
  # Start the HTTP server
  fastroute serve -c fastroute.yaml

  # Route a query through a running server
  fastroute query "server status check"

  # Measure how often the decision phase beats its timeout
  fastroute bench -n 1000`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newQueryCmd(),
		newStatsCmd(),
		newCacheCmd(),
		newJournalCmd(),
		newBenchCmd(),
		newMCPCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
