/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ssargent/parcel/pkg/cache"
	"github.com/ssargent/parcel/pkg/config"
	"github.com/ssargent/parcel/pkg/envelope"
	"github.com/ssargent/parcel/pkg/telemetry"
)

type packOptions struct {
	EventPath   string
	Attachments []string
	SessionPath string
	Output      string
}

// packCmd represents the pack command
var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Build an event envelope from JSON files and attachments",
	Long: `Build an envelope holding an event, its attachments and an optional session
update. The envelope is written to --output, or stored in the cache when no
output is given. Files on disk never carry sent_at.

Examples:
  parcel pack --event event.json --attach trace.log -o crash.envelope
  parcel pack --event event.json --session session.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}
		var opts packOptions
		opts.EventPath, _ = cmd.Flags().GetString("event")
		opts.Attachments, _ = cmd.Flags().GetStringArray("attach")
		opts.SessionPath, _ = cmd.Flags().GetString("session")
		opts.Output, _ = cmd.Flags().GetString("output")

		return pack(opts, rt.cfg, rt.logger, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().String("event", "", "Path to the event JSON (required)")
	packCmd.Flags().StringArray("attach", nil, "File to attach (repeatable)")
	packCmd.Flags().String("session", "", "Path to a session update JSON")
	packCmd.Flags().StringP("output", "o", "", "Output file, \"-\" for standard output")
	if err := packCmd.MarkFlagRequired("event"); err != nil {
		panic(err)
	}
}

// pack builds the envelope and writes it to opts.Output or the cache
func pack(opts packOptions, cfg *config.Config, logger zerolog.Logger, out io.Writer) error {
	factory := envelope.NewFactory(
		envelope.WithFactoryLogger(logger),
		envelope.WithSdk(cfg.Sdk),
	)
	env, err := buildEnvelope(opts, factory)
	if err != nil {
		return err
	}
	defer env.Close()

	switch opts.Output {
	case "":
		c, err := cache.Open(cache.Config{Dir: cfg.CacheDir(), MaxEnvelopes: cfg.Cache.MaxEnvelopes, Logger: logger})
		if err != nil {
			return err
		}
		name, err := c.Store(env)
		if err != nil {
			return err
		}
		fprintf(out, "%s\n", filepath.Join(c.Dir(), name))
		return nil
	case "-":
		return env.Serialize(out, envelope.WithLogger(logger))
	default:
		f, err := os.OpenFile(opts.Output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return errors.Wrap(err, "create output")
		}
		if err := env.Serialize(f, envelope.WithLogger(logger)); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
}

// buildEnvelope reads the event and session files and assembles the envelope
func buildEnvelope(opts packOptions, factory *envelope.Factory) (*envelope.Envelope, error) {
	var event telemetry.Event
	if err := readJSON(opts.EventPath, &event); err != nil {
		return nil, errors.Wrap(err, "read event")
	}
	if event.EventID.IsZero() {
		event.EventID = telemetry.NewEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var session *telemetry.SessionUpdate
	if opts.SessionPath != "" {
		session = &telemetry.SessionUpdate{}
		if err := readJSON(opts.SessionPath, session); err != nil {
			return nil, errors.Wrap(err, "read session")
		}
	}

	attachments := make([]telemetry.Attachment, 0, len(opts.Attachments))
	for _, path := range opts.Attachments {
		attachments = append(attachments, telemetry.NewFileAttachment(path, contentTypeFor(path)))
	}

	return factory.FromEvent(&event, attachments, session), nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func contentTypeFor(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
