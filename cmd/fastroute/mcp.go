package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pario-ai/fastroute/pkg/logging"
	"github.com/pario-ai/fastroute/pkg/mcp"
	"github.com/pario-ai/fastroute/pkg/router"
	"github.com/pario-ai/fastroute/pkg/tracker"
)

func newMCPCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve fastroute as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return withRouter(cmd.Context(), cfg, func(ctx context.Context, r *router.Router, j tracker.Journal) error {
				return mcp.New(r, j, version, logger).Run(ctx, os.Stdin, os.Stdout)
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}
