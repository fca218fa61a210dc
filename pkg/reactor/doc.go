// Package reactor implements the single-goroutine event loop that drives the
// registry worker.
//
// The loop multiplexes two kinds of events: readiness of registered sources
// (anything exposing a Ready channel, typically a notify.Queue) and expiry of
// timers kept in a min-heap. Callbacks always run on the loop goroutine, one
// at a time, so state touched only from callbacks needs no locking.
//
// Run returns once no sources are registered and no timers are pending, which
// is how the registry worker exits after its last entry is torn down.
package reactor
