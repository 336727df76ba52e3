/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/parcel/pkg/api"
	"github.com/ssargent/parcel/pkg/cache"
)

// cacheCmd groups the envelope cache commands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the envelope cache and move cached envelopes into the spool",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached envelope files, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}
		c, err := cache.Open(cache.Config{Dir: rt.cfg.CacheDir(), MaxEnvelopes: rt.cfg.Cache.MaxEnvelopes, Logger: rt.logger})
		if err != nil {
			return err
		}
		names, err := c.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fprintf(cmd.OutOrStdout(), "%s\n", name)
		}
		return nil
	},
}

var cachePushCmd = &cobra.Command{
	Use:   "push",
	Short: "Move every cached envelope into the spool",
	Args:  cobra.NoArgs,
	RunE: withSpool(func(cmd *cobra.Command, spool api.SpoolCloser, args []string) error {
		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}
		c, err := cache.Open(cache.Config{Dir: rt.cfg.CacheDir(), MaxEnvelopes: rt.cfg.Cache.MaxEnvelopes, Logger: rt.logger})
		if err != nil {
			return err
		}
		return pushCache(c, spool, cmd.OutOrStdout())
	}),
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd, cachePushCmd)
}

// pushCache enqueues cached envelopes oldest first, removing each once it is spooled
func pushCache(c *cache.Cache, spool api.ISpool, out io.Writer) error {
	names, err := c.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		env, err := c.Load(name)
		if err != nil {
			return err
		}
		id, err := spool.Enqueue(env)
		env.Close()
		if err != nil {
			return err
		}
		if err := c.Remove(name); err != nil {
			return err
		}
		fprintf(out, "%s -> %s\n", name, id)
	}
	return nil
}
