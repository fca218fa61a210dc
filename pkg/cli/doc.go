/*
Package cli provides command-line helpers for the dyndict command.

Output Formatting:

Commands render results as text, JSON, or CSV. Results that implement
Tabular are printed as aligned columns in text mode and are the only ones
CSV accepts:

	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, result); err != nil {
		return err
	}

Progress Reporting:

validate loads every configured resource and reports each one:

	progress := cli.NewProgressReporter(os.Stdout, "resources")
	progress.Start(len(resources))
	for _, r := range resources {
		progress.Step(r.Name, detail, err)
	}
	failed := progress.Finish()

Signal Handling:

run stops on SIGINT or SIGTERM and re-reads its configuration on SIGHUP:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	reload, stopReload := cli.ReloadSignals()
	defer stopReload()

Errors:

ConfigError and CommandError carry the failing field or command. ExitCode
maps them to process exit codes, with configuration problems exiting 2.
*/
package cli
