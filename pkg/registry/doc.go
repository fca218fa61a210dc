// Package registry implements a registry of named, hot-reloadable resources
// shared by many concurrent readers.
//
// # Versions and references
//
// Every entry keeps at most two loaded versions of its resource. Readers call
// Borrow to get the active version and Release when they are done with it.
// A reload, triggered by the entry's schedule or by Reload, loads a fresh
// version into the slot not in use and makes it active. Readers still
// holding the previous version keep a valid handle; that version is unloaded
// only when the slot is needed again and nobody references it. If both
// versions are referenced when a reload comes due, the reload is deferred
// until a release frees the other slot.
//
// # Worker
//
// Reference counts are not updated in Borrow and Release. Instead both post a
// ref or unref notification to the entry's bounded queue, and a single worker
// goroutine applies them in order. The worker also runs loaders, timers and
// teardown, so loaders and unloaders never run concurrently with each other.
//
// # Lifecycle
//
// Add performs the initial load synchronously. Delete waits until every
// outstanding reference has been released before unloading. Shutdown deletes
// every entry the same way and stops the worker; Release keeps working while
// it waits.
//
//	reg := registry.New(100, registry.WithLogger(logger))
//	defer reg.Shutdown(context.Background())
//
//	err := reg.Add(ctx, registry.Definition{
//		Name:     "stopwords",
//		Load:     loadStopwords,
//		Interval: time.Minute,
//	})
//
//	res, err := reg.Borrow("stopwords")
//	if err != nil {
//		return err
//	}
//	defer reg.Release("stopwords", res)
//	words, _ := registry.Value[map[string]struct{}](res)
package registry
