package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Keksclan/goRawrCache/invocation"
	"github.com/Keksclan/goRawrCache/policy"
)

func resolveCmd(g *globals) *cobra.Command {
	var (
		params []string
		target string
	)

	cmd := &cobra.Command{
		Use:   "resolve <Type.Method>",
		Short: "Show which caching and flushing models apply to a method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.load(cmd)
			if err != nil {
				return err
			}

			m := parseMethod(args[0], params)
			cache := policy.NewResolver[policy.CacheModel](cfg.CacheRules()).Lookup(m, target)
			flush := policy.NewResolver[policy.FlushModel](cfg.FlushRules()).Lookup(m, target)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "METHOD\t%s\n", m.Signature())
			if target != "" {
				fmt.Fprintf(w, "TARGET\t%s\n", target)
			}
			fmt.Fprintf(w, "CACHING\t%s\t%s\n", cache.State, describe(cache.State, cache.Model))
			fmt.Fprintf(w, "FLUSHING\t%s\t%s\n", flush.State, describe(flush.State, flush.Model))
			return w.Flush()
		},
	}

	cmd.Flags().StringSliceVarP(&params, "param", "p", nil, "Parameter type names, in order")
	cmd.Flags().StringVarP(&target, "target", "t", "", "Runtime target type (defaults to the declaring type)")
	return cmd
}

// parseMethod splits "pkg.Type.Method" at the last dot.
func parseMethod(s string, params []string) invocation.Method {
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		return invocation.NewMethod("", s, params...)
	}
	return invocation.NewMethod(s[:i], s[i+1:], params...)
}

func describe(state policy.State, m fmt.Stringer) string {
	if state != policy.Found {
		return "-"
	}
	return m.String()
}
