/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/parcel/pkg/api"
	"github.com/ssargent/parcel/pkg/config"
	"github.com/ssargent/parcel/pkg/di"
	"github.com/ssargent/parcel/pkg/storage"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the envelope ingest API",
	Long: `Start the parcel REST API. Envelopes posted to /api/v1/envelope are
spooled in pebble and can be listed, fetched and dropped.

Examples:
  parcel serve
  parcel serve --port 9000 --bind 0.0.0.0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}
		c, err := requireContainer()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("port") {
			rt.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			rt.cfg.Server.Bind, _ = cmd.Flags().GetString("bind")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, c, rt)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
}

// serve opens the spool and runs the API until ctx is done
func serve(ctx context.Context, c *di.Container, rt *runtime) error {
	cfg := rt.cfg
	if cfg.Server.APIKey == "" || cfg.Server.APIKey == "auto" {
		return errors.New("no API key configured, run 'parcel init' first")
	}

	spool, err := openSpool(c, cfg, rt)
	if err != nil {
		return err
	}
	defer spool.Close()

	rt.logger.Info().Str("spool", cfg.SpoolDir()).Int("port", cfg.Server.Port).Msg("serving")

	starter := c.GetServerFactory().CreateServerStarter()
	return starter.StartServer(ctx, spool, api.ServerConfig{
		Bind:             cfg.Server.Bind,
		Port:             cfg.Server.Port,
		APIKey:           cfg.Server.APIKey,
		MaxEnvelopeBytes: cfg.Server.MaxEnvelopeBytes,
		Logger:           rt.logger,
	})
}

func openSpool(c *di.Container, cfg *config.Config, rt *runtime) (api.SpoolCloser, error) {
	if err := os.MkdirAll(cfg.SpoolDir(), 0750); err != nil {
		return nil, errors.Wrap(err, "create spool directory")
	}
	return c.GetSpoolFactory().OpenSpool(storage.Config{
		Dir:    cfg.SpoolDir(),
		Sync:   cfg.Spool.Sync,
		Logger: rt.logger,
	})
}
