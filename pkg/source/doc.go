// Package source loads dictionaries into the registry and keeps them fresh.
//
// A dictionary is an immutable map of string keys to string values read
// from one of:
//
//   - a file in tsv (key<TAB>value lines), flat yaml, or flat json form
//   - two columns of a SQLite table, read through modernc.org/sqlite
//
// NewDefinition turns a config.ResourceConfig into a registry.Definition
// whose Loader returns a *Dictionary:
//
//	def, err := source.NewDefinition(rc, logger)
//	if err != nil {
//	    return err
//	}
//	if err := reg.Add(ctx, def); err != nil {
//	    return err
//	}
//	value, ok, err := source.Lookup(reg, rc.Name, "the")
//
// # Watching Files
//
// FileWatcher reloads an entry shortly after its file changes. Bursts of
// events are collapsed by a Debouncer, and each entry is rate limited so a
// file rewritten in a loop cannot keep the registry worker busy.
//
//	w, err := source.NewFileWatcher(nil, reg, collector, logger)
//	w.Add("stopwords", "/etc/dyndict/stopwords.tsv")
//	go w.Watch(ctx)
//	defer w.Stop()
package source
