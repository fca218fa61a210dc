package registry

import "time"

// Observer receives registry events, typically to export them as metrics.
// Methods are called from many goroutines, including the worker, and must not
// block.
type Observer interface {
	// EntryAdded is called once an entry becomes active.
	EntryAdded(name string)

	// EntryRemoved is called once a deleted entry has been torn down.
	EntryRemoved(name string)

	// LoadFinished is called after every Loader call. err is nil on success.
	LoadFinished(name string, initial bool, elapsed time.Duration, err error)

	// ReloadDeferred is called when a reload is postponed because both
	// versions are referenced.
	ReloadDeferred(name string)

	// Borrowed and Released are called for every successful Borrow and Release.
	Borrowed(name string)
	Released(name string)

	// QueueFull is called when a notification could not be enqueued.
	QueueFull(name string)

	// ProtocolViolation is called when a reference event is rejected.
	ProtocolViolation(name string)
}

type nopObserver struct{}

func (nopObserver) EntryAdded(string)                                {}
func (nopObserver) EntryRemoved(string)                              {}
func (nopObserver) LoadFinished(string, bool, time.Duration, error) {}
func (nopObserver) ReloadDeferred(string)                            {}
func (nopObserver) Borrowed(string)                                  {}
func (nopObserver) Released(string)                                  {}
func (nopObserver) QueueFull(string)                                 {}
func (nopObserver) ProtocolViolation(string)                         {}
