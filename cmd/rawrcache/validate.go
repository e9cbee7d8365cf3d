package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	gorawrcache "github.com/Keksclan/goRawrCache"
)

func validateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every group in the configuration can be served",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load(cmd)
			if err != nil {
				return err
			}

			engine, err := gorawrcache.FromConfig(cmd.Context(), cfg, gorawrcache.WithLogger(log))
			if err != nil {
				return err
			}
			defer engine.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "ok: driver=%s caching=%d flushing=%d caches=%s\n",
				cfg.Provider.Driver, len(cfg.Caching), len(cfg.Flushing), strings.Join(cfg.CacheNames(), ","))
			return nil
		},
	}
}
