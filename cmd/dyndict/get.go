package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/dyndict/pkg/cli"
	"mercator-hq/dyndict/pkg/config"
	"mercator-hq/dyndict/pkg/registry"
	"mercator-hq/dyndict/pkg/source"
)

var getFlags struct {
	output string
}

var getCmd = &cobra.Command{
	Use:   "get RESOURCE [KEY...]",
	Short: "Look up keys in a configured resource",
	Long: `Load one configured resource into a private registry and look up keys in
it. Without keys every entry is printed.

The command exits non-zero if any key is missing.

Examples:
  # Look up two words
  dyndict get stopwords the zebra

  # Dump a resource as CSV
  dyndict get synonyms --output csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: getKeys,
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVarP(&getFlags.output, "output", "o", "text", "output format: text, json, csv")
}

// lookupResult is one row of get output.
type lookupResult struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Found bool   `json:"found"`
}

type lookupResults []lookupResult

// Table implements cli.Tabular.
func (r lookupResults) Table() cli.Table {
	t := cli.Table{Headers: []string{"KEY", "VALUE", "FOUND"}}
	for _, row := range r {
		t.Rows = append(t.Rows, []string{row.Key, row.Value, strconv.FormatBool(row.Found)})
	}
	return t
}

func getKeys(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(getFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	name, keys := args[0], args[1:]
	rc, ok := findResource(cfg, name)
	if !ok {
		return cli.NewCommandError("get", fmt.Errorf("resource %q is not configured", name))
	}

	logger, err := newLogger(cfg.Telemetry.Logging, cmd.ErrOrStderr(), "warn")
	if err != nil {
		return err
	}
	defer logger.Shutdown()

	def, err := source.NewDefinition(rc, logger.Slog())
	if err != nil {
		return cli.NewCommandError("get", err)
	}
	// The private registry loads once and never reloads.
	def.Interval, def.Schedule = 0, nil

	reg := registry.New(1,
		registry.WithLogger(logger.Slog()),
		registry.WithLoadTimeout(cfg.Registry.LoadTimeout),
	)
	defer reg.Shutdown(context.Background())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := reg.Add(ctx, def); err != nil {
		return cli.NewCommandError("get", err)
	}

	results, err := lookup(reg, name, keys)
	if err != nil {
		return cli.NewCommandError("get", err)
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), results); err != nil {
		return err
	}

	missing := 0
	for _, r := range results {
		if !r.Found {
			missing++
		}
	}
	if missing > 0 {
		return cli.NewCommandError("get", fmt.Errorf("%d of %d keys not found", missing, len(results)))
	}
	return nil
}

// lookup resolves keys in the named dictionary, or lists every entry when
// keys is empty. All keys are read from the same version.
func lookup(reg *registry.Registry, name string, keys []string) (lookupResults, error) {
	var results lookupResults
	err := source.View(reg, name, func(dict *source.Dictionary, _ uint64) {
		if len(keys) == 0 {
			keys = dict.Keys()
		}
		results = make(lookupResults, 0, len(keys))
		for _, key := range keys {
			value, found := dict.Lookup(key)
			results = append(results, lookupResult{Key: key, Value: value, Found: found})
		}
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func findResource(cfg *config.Config, name string) (config.ResourceConfig, bool) {
	for _, rc := range cfg.Resources {
		if rc.Name == name {
			return rc, true
		}
	}
	return config.ResourceConfig{}, false
}
