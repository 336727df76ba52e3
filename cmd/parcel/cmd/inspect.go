/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"io"
	"os"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/parcel/pkg/envelope"
	"github.com/ssargent/parcel/pkg/telemetry"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Decode an envelope file and print its header and items",
	Long: `Decode an envelope file and print its header and items. Use "-" to read
from standard input.

Examples:
  parcel inspect ./crash.envelope
  parcel inspect --payload ./crash.envelope
  cat crash.envelope | parcel inspect -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showPayload, _ := cmd.Flags().GetBool("payload")

		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "open envelope")
			}
			defer f.Close()
			r = f
		}
		return inspectEnvelope(cmd.Context(), r, cmd.OutOrStdout(), showPayload)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("payload", false, "Print item payloads that are valid UTF-8")
}

// inspectEnvelope prints a human readable description of the envelope in r
func inspectEnvelope(ctx context.Context, r io.Reader, out io.Writer, showPayload bool) error {
	env, err := envelope.DeserializeContext(ctx, r)
	if err != nil {
		return err
	}
	defer env.Close()

	header, err := env.Header().MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "encode envelope header")
	}
	fprintf(out, "header: %s\n", header)
	if id, ok := env.TryGetEventID(); ok {
		fprintf(out, "event_id: %s\n", telemetry.EventID(id))
	}
	fprintf(out, "items: %d\n", env.Len())

	for i, item := range env.Items() {
		payload, err := item.PayloadBytes()
		if err != nil {
			return err
		}
		itemHeader, err := item.Header().MarshalJSON()
		if err != nil {
			return errors.Wrapf(err, "encode item %d header", i)
		}
		fprintf(out, "[%d] %s (%d bytes) %s\n", i, item.Type(), len(payload), itemHeader)
		if showPayload {
			if utf8.Valid(payload) {
				fprintf(out, "%s\n", payload)
			} else {
				fprintf(out, "<binary>\n")
			}
		}
	}
	return nil
}
