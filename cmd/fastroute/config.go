package main

import (
	"errors"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/pario-ai/fastroute/pkg/config"
)

const defaultConfigPath = "fastroute.yaml"

func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "config", "c", defaultConfigPath, "path to config file")
}

// loadConfig reads the config file. A missing file at the default path
// yields the built-in defaults; an explicitly named file must exist.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return cfg, err
}
