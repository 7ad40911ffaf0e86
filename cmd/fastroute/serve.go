package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/pario-ai/fastroute/pkg/fx/routerfx"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		listen     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the fastroute HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			app := fx.New(
				fx.Supply(cfg),
				routerfx.Module,
				routerfx.Logger,
				fx.Invoke(routerfx.Serve),
			)
			if err := app.Err(); err != nil {
				return err
			}
			// Run blocks until SIGINT/SIGTERM and stops the app gracefully.
			app.Run()
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "override the listen address")
	return cmd
}
