// Dyndict serves hot-reloadable dictionaries from a reference-counted
// registry.
//
// Each configured resource (a TSV, YAML or JSON file, or a SQLite table) is
// loaded into the registry and reloaded on its interval or cron schedule,
// when its file changes, or on demand. Readers borrow the active version and
// release it when done; a reload never disturbs a version still in use.
//
// Usage:
//
//	# Serve the configured resources and the admin API
//	dyndict run --config /etc/dyndict/dyndict.yaml
//
//	# Check the configuration and load every resource once
//	dyndict validate
//
//	# Look up keys without starting a server
//	dyndict get stopwords the a an
//
//	# Show version information
//	dyndict version
package main

import "os"

func main() {
	os.Exit(Execute())
}
