/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/parcel/pkg/api"
	"github.com/ssargent/parcel/pkg/envelope"
	"github.com/ssargent/parcel/pkg/telemetry"
)

// spoolCmd groups the spool maintenance commands
var spoolCmd = &cobra.Command{
	Use:   "spool",
	Short: "Inspect and maintain the envelope spool",
}

var spoolListCmd = &cobra.Command{
	Use:   "list",
	Short: "List spooled envelopes, oldest first",
	Args:  cobra.NoArgs,
	RunE: withSpool(func(cmd *cobra.Command, spool api.SpoolCloser, args []string) error {
		return listSpool(spool, cmd.OutOrStdout())
	}),
}

var spoolShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Write a spooled envelope to standard output",
	Args:  cobra.ExactArgs(1),
	RunE: withSpool(func(cmd *cobra.Command, spool api.SpoolCloser, args []string) error {
		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}
		return showSpooled(spool, args[0], cmd.OutOrStdout(), envelope.WithLogger(rt.logger))
	}),
}

var spoolDropCmd = &cobra.Command{
	Use:   "drop <id>",
	Short: "Remove an envelope from the spool",
	Args:  cobra.ExactArgs(1),
	RunE: withSpool(func(cmd *cobra.Command, spool api.SpoolCloser, args []string) error {
		id, err := ksuid.Parse(args[0])
		if err != nil {
			return errors.Wrap(err, "invalid envelope id")
		}
		if err := spool.Delete(id); err != nil {
			return err
		}
		fprintf(cmd.OutOrStdout(), "dropped %s\n", id)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(spoolCmd)
	spoolCmd.AddCommand(spoolListCmd, spoolShowCmd, spoolDropCmd)
}

// withSpool opens the configured spool around fn
func withSpool(fn func(cmd *cobra.Command, spool api.SpoolCloser, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}
		c, err := requireContainer()
		if err != nil {
			return err
		}
		spool, err := openSpool(c, rt.cfg, rt)
		if err != nil {
			return err
		}
		defer spool.Close()
		return fn(cmd, spool, args)
	}
}

func listSpool(spool api.ISpool, out io.Writer) error {
	entries, err := spool.List()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		env, err := spool.Get(entry.ID)
		if err != nil {
			fprintf(out, "%s\t%s\t%d bytes\t<unreadable: %v>\n", entry.ID, entry.ReceivedAt.Format(time.RFC3339), entry.Size, err)
			continue
		}
		eventID := "-"
		if id, ok := env.TryGetEventID(); ok {
			eventID = telemetry.EventID(id).String()
		}
		fprintf(out, "%s\t%s\t%d bytes\t%d items\t%s\n", entry.ID, entry.ReceivedAt.Format(time.RFC3339), entry.Size, env.Len(), eventID)
		env.Close()
	}
	fprintf(out, "%d envelope(s)\n", len(entries))
	return nil
}

// showSpooled writes the envelope in wire form. sent_at is stamped unless out is a file.
func showSpooled(spool api.ISpool, rawID string, out io.Writer, opts ...envelope.SerializeOption) error {
	id, err := ksuid.Parse(rawID)
	if err != nil {
		return errors.Wrap(err, "invalid envelope id")
	}
	env, err := spool.Get(id)
	if err != nil {
		return err
	}
	defer env.Close()
	return env.Serialize(out, opts...)
}
