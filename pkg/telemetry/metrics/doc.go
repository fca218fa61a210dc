// Package metrics exports registry activity as Prometheus metrics.
//
// # Overview
//
// Collector implements registry.Observer. Passing it to the registry with
// registry.WithObserver wires every add, delete, load, borrow, and release
// into the metrics below. The source watcher reports filesystem changes
// through the same collector.
//
// # Metrics Categories
//
//   - Entry Metrics: active entries, loads by kind and result, load
//     duration, last successful load, deferred reloads
//   - Reference Metrics: borrows, releases, outstanding handles, full
//     queues, protocol violations
//   - Source Metrics: watched file changes and throttled reloads
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	reg := registry.New(cfg.Registry.Capacity,
//		registry.WithObserver(collector),
//	)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler(logger.Slog()))
//
// # Prometheus Endpoint
//
//	# HELP dyndict_registry_borrows_total Total number of successful borrows
//	# TYPE dyndict_registry_borrows_total counter
//	dyndict_registry_borrows_total{entry="stopwords"} 1234
//
// # Cardinality Management
//
// Every per-entry series carries the entry name. Once DefaultMaxEntries
// distinct names have been seen, further names are reported as "other".
package metrics
