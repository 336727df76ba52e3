/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ssargent/parcel/pkg/config"
	"github.com/ssargent/parcel/pkg/di"
	"github.com/ssargent/parcel/pkg/logging"
)

var container *di.Container

// SetContainer injects the dependency container
func SetContainer(c *di.Container) {
	container = c
}

type runtimeKey struct{}

// runtime is what PersistentPreRunE resolves for every command
type runtime struct {
	cfg        *config.Config
	configPath string
	logger     zerolog.Logger
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "parcel",
	Short: "Parcel - envelope spool and ingest service",
	Long: `Parcel reads, writes and spools telemetry envelopes: a JSON header line
followed by typed, length-framed items.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, rt))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: OS-specific location)")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory, overrides the config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (trace, debug, info, warn, error)")
}

// loadRuntime reads the config file when it exists and falls back to defaults
func loadRuntime(cmd *cobra.Command) (*runtime, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, errors.Wrapf(err, "load config %s", configPath)
		}
		cfg = loaded
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	logger := logging.New("parcel", logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})

	return &runtime{cfg: cfg, configPath: configPath, logger: logger}, nil
}

func runtimeFrom(cmd *cobra.Command) (*runtime, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtime)
	if !ok {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func requireContainer() (*di.Container, error) {
	if container == nil {
		return nil, errors.New("dependency container not initialized")
	}
	return container, nil
}
