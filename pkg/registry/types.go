package registry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status is the registry-level state of an entry.
type Status int

const (
	// StatusEmpty marks a free table slot.
	StatusEmpty Status = iota
	// StatusAdding is set while the initial load is outstanding.
	StatusAdding
	// StatusActive entries can be borrowed.
	StatusActive
	// StatusDeleting entries accept releases only and disappear once every
	// outstanding reference is returned.
	StatusDeleting
	// StatusFailed is the transient state of an entry whose initial load
	// failed, before its table slot is freed.
	StatusFailed
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusAdding:
		return "adding"
	case StatusActive:
		return "active"
	case StatusDeleting:
		return "deleting"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so statuses render as names
// in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Lifecycle is the registry-wide state.
type Lifecycle int

const (
	// LifecycleLive registries accept every operation.
	LifecycleLive Lifecycle = iota
	// LifecycleDraining registries only accept Release while entries are
	// torn down.
	LifecycleDraining
	// LifecycleTerminated registries reject every operation.
	LifecycleTerminated
)

// String returns the lower-case lifecycle name.
func (l Lifecycle) String() string {
	switch l {
	case LifecycleLive:
		return "live"
	case LifecycleDraining:
		return "draining"
	case LifecycleTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Loader produces a new version of a resource from args. Returning a nil
// value, a non-nil error, or panicking all count as a failed load.
//
// Loaders run on the worker goroutine; a slow loader delays every other entry.
type Loader func(ctx context.Context, args any) (any, error)

// Unloader releases a value previously returned by the Loader. It is called
// exactly once per loaded value, on the worker goroutine.
type Unloader func(value any)

// Definition describes a resource to add to the registry.
type Definition struct {
	// Name uniquely identifies the entry.
	Name string

	// Load produces a version of the resource.
	Load Loader

	// Unload reclaims a version. Optional.
	Unload Unloader

	// Args is passed to every Load call.
	Args any

	// Interval is the delay between reloads. Ignored when Schedule is set.
	// With neither set the entry is loaded once and only reloaded on demand.
	Interval time.Duration

	// Schedule computes reload times, e.g. from a cron expression.
	Schedule Schedule
}

// schedule returns the effective reload schedule, or nil for on-demand
// entries.
func (d Definition) schedule() Schedule {
	if d.Schedule != nil {
		return d.Schedule
	}
	if d.Interval > 0 {
		return Every(d.Interval)
	}
	return nil
}

// Resource is one loaded version of an entry. The pointer returned by Borrow
// is the handle that must be passed back to Release.
type Resource struct {
	owner      *entry
	name       string
	id         uuid.UUID
	generation uint64
	value      any
	loadedAt   time.Time

	// outstanding counts borrows not yet released through this handle. It
	// lets Release reject a double release synchronously.
	outstanding atomic.Int64
}

// Name returns the name of the entry the resource belongs to.
func (r *Resource) Name() string { return r.name }

// ID returns the unique identifier of this version.
func (r *Resource) ID() uuid.UUID { return r.id }

// Generation returns the 1-based load sequence number of this version.
func (r *Resource) Generation() uint64 { return r.generation }

// Value returns the value produced by the Loader.
func (r *Resource) Value() any { return r.value }

// LoadedAt returns when the version was loaded.
func (r *Resource) LoadedAt() time.Time { return r.loadedAt }

// Value returns the resource value as T.
func Value[T any](r *Resource) (T, bool) {
	var zero T
	if r == nil {
		return zero, false
	}
	v, ok := r.value.(T)
	return v, ok
}

// SlotStats describes one of the two version slots of an entry.
type SlotStats struct {
	Loaded     bool      `json:"loaded"`
	Refs       int       `json:"refs"`
	Generation uint64    `json:"generation,omitempty"`
	VersionID  string    `json:"version_id,omitempty"`
	LoadedAt   time.Time `json:"loaded_at,omitempty"`
}

// EntryStats is a point-in-time snapshot of an entry taken by the worker.
type EntryStats struct {
	Name          string       `json:"name"`
	Status        Status       `json:"status"`
	ActiveSlot    int          `json:"active_slot"`
	Slots         [2]SlotStats `json:"slots"`
	ReloadPending bool         `json:"reload_pending"`
	LoadFailed    bool         `json:"load_failed"`
	LastError     string       `json:"last_error,omitempty"`
	Loads         uint64       `json:"loads"`
	Failures      uint64       `json:"failures"`
	NextReload    time.Time    `json:"next_reload,omitempty"`
	PendingEvents int          `json:"pending_events"`
}

// Outstanding returns the total number of references held on the entry.
func (s EntryStats) Outstanding() int {
	return s.Slots[0].Refs + s.Slots[1].Refs
}
