package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/dyndict/pkg/cli"
	"mercator-hq/dyndict/pkg/config"
	"mercator-hq/dyndict/pkg/source"
)

var validateFlags struct {
	skipLoad bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and load every resource",
	Long: `Validate the configuration file, then load each configured resource once
to check that it exists and parses.

Nothing is served and no registry is started; each resource is loaded
directly with the same loader the run command uses.

Examples:
  # Validate the default configuration
  dyndict validate

  # Only check the configuration file
  dyndict validate --config /etc/dyndict/dyndict.yaml --skip-load`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.skipLoad, "skip-load", false, "only validate the configuration file")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Configuration valid (%d resources)\n", len(cfg.Resources))

	if validateFlags.skipLoad || len(cfg.Resources) == 0 {
		return nil
	}

	logger, err := newLogger(cfg.Telemetry.Logging, cmd.ErrOrStderr(), "warn")
	if err != nil {
		return err
	}
	defer logger.Shutdown()

	progress := cli.NewProgressReporter(out, "resources")
	progress.Start(len(cfg.Resources))
	for _, rc := range cfg.Resources {
		detail, err := loadOnce(cmd.Context(), rc, cfg.Registry)
		progress.Step(rc.Name, detail, err)
	}

	if failed := progress.Finish(); failed > 0 {
		return cli.NewCommandError("validate", fmt.Errorf("%d of %d resources failed to load", failed, len(cfg.Resources)))
	}
	return nil
}

// loadOnce loads a resource with its configured loader and describes the
// result.
func loadOnce(ctx context.Context, rc config.ResourceConfig, rcfg config.RegistryConfig) (string, error) {
	def, err := source.NewDefinition(rc, nil)
	if err != nil {
		return "", err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if rcfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rcfg.LoadTimeout)
		defer cancel()
	}

	value, err := def.Load(ctx, def.Args)
	if err != nil {
		return "", err
	}
	if dict, ok := value.(*source.Dictionary); ok {
		return fmt.Sprintf("%d entries, sha256 %.12s", dict.Len(), dict.Checksum), nil
	}
	return "", nil
}
