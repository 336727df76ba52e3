/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/parcel/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a parcel configuration with a generated API key",
	Long: `Create a configuration file with a freshly generated API key and the data
directories parcel uses for its cache and spool.

Examples:
  parcel init
  parcel init --config ./parcel.yaml --data-dir ./data
  parcel init --config ./parcel.toml --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		dataDir, _ := cmd.Flags().GetString("data-dir")

		cfg, err := initialize(rt.configPath, dataDir, force, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		rt.logger.Info().Str("config", rt.configPath).Str("data_dir", cfg.DataDir).Msg("parcel initialized")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
}

// initialize bootstraps the config at configPath and creates the data directories
func initialize(configPath, dataDir string, force bool, out io.Writer) (*config.Config, error) {
	if config.ConfigExists(configPath) && !force {
		return nil, errors.Newf("config already exists at %s, use --force to overwrite", configPath)
	}

	cfg, err := config.BootstrapConfig(configPath, dataDir)
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{cfg.DataDir, cfg.CacheDir(), cfg.SpoolDir()} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, errors.Wrapf(err, "create %s", dir)
		}
	}

	fprintf(out, "Configuration written to %s\n", configPath)
	fprintf(out, "Data directory: %s\n", cfg.DataDir)
	fprintf(out, "API key: %s\n", cfg.Server.APIKey)
	return cfg, nil
}
