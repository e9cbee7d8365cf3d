// Command rawrcache inspects and exercises caching configurations.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Keksclan/goRawrCache/config"
	"github.com/Keksclan/goRawrCache/internal/logger"
)

type globals struct {
	configPath string
	logLevel   string
	pretty     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:           "rawrcache",
		Short:         "rawrcache - declarative method caching",
		Long:          "Validate caching configurations, show how methods resolve, and run a traced demo.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "rawrcache.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (overrides the configuration)")
	rootCmd.PersistentFlags().BoolVar(&g.pretty, "pretty", false, "Human-readable console logs")

	rootCmd.AddCommand(
		validateCmd(g),
		resolveCmd(g),
		demoCmd(g),
	)
	return rootCmd
}

// load reads the configuration and returns it with a logger writing to
// cmd's error stream.
func (g *globals) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	level := cfg.Logging.Level
	if g.logLevel != "" {
		level = g.logLevel
	}
	return cfg, logger.New(cmd.ErrOrStderr(), level, g.pretty || cfg.Logging.Pretty), nil
}
