package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/dyndict/pkg/cli"
	"mercator-hq/dyndict/pkg/config"
	"mercator-hq/dyndict/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "dyndict",
	Short: "Dyndict - hot-reloadable dictionary registry",
	Long: `Dyndict loads key/value resources into a reference-counted registry
and keeps them fresh without disturbing readers.

Resources are reloaded on an interval or cron schedule, when their file
changes, or on demand through the admin API. A reload loads the new
version next to the current one; the old version is unloaded only after
its last reader releases it.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "dyndict.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the configuration file for the one-shot commands.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.WrapConfigError(cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger. levelOverride wins over the
// configured level when set.
func newLogger(cfg config.LoggingConfig, w io.Writer, levelOverride string) (*logging.Logger, error) {
	level := cfg.Level
	if levelOverride != "" {
		level = levelOverride
	}
	if verbose {
		level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:      level,
		Format:     cfg.Format,
		AddSource:  cfg.AddSource,
		BufferSize: cfg.BufferSize,
		Writer:     w,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}
