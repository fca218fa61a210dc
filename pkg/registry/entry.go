package registry

import (
	"sync"

	"mercator-hq/dyndict/pkg/notify"
	"mercator-hq/dyndict/pkg/reactor"
)

const slotCount = 2

type eventKind uint8

const (
	eventRef eventKind = iota
	eventUnref
)

func (k eventKind) String() string {
	if k == eventRef {
		return "ref"
	}
	return "unref"
}

// refEvent is a reference-count change posted by Borrow or Release and
// applied by the worker.
type refEvent struct {
	kind eventKind
	res  *Resource
}

// phase is the worker's view of an entry, which may lag the registry-level
// Status while commands are queued.
type phase uint8

const (
	phaseAdding phase = iota
	phaseActive
	phaseDeleting
	phaseGone
)

type slot struct {
	res  *Resource
	refs int
}

// entry is one named resource with two version slots.
//
// Ownership is split three ways. status belongs to the registry table and is
// guarded by Registry.mu. active is read by borrowers under mu and written by
// the worker under mu. Everything else below the marker is touched only by the
// worker goroutine.
type entry struct {
	name  string
	def   Definition
	sched Schedule

	status Status

	events *notify.Queue[refEvent]

	mu     sync.RWMutex
	active int

	// worker-owned
	phase         phase
	slots         [slotCount]slot
	generation    uint64
	loadFailed    bool
	reloadPending bool
	timer         *reactor.Timer
	deleteAck     chan<- error
	loads         uint64
	failures      uint64
	lastErr       error
}

func newEntry(def Definition, queueCapacity int) *entry {
	return &entry{
		name:   def.Name,
		def:    def,
		sched:  def.schedule(),
		status: StatusAdding,
		events: notify.New[refEvent](queueCapacity),
	}
}

// current returns the version new borrowers get. Callers must hold e.mu.
func (e *entry) current() *Resource {
	return e.slots[e.active].res
}

// findNext returns the slot a reload may load into: the non-active slot, if
// nobody references the version it holds.
func (e *entry) findNext() (int, bool) {
	next := (e.active + 1) % slotCount
	if e.slots[next].refs != 0 {
		return 0, false
	}
	return next, true
}

// slotOf returns the slot holding res, or -1.
func (e *entry) slotOf(res *Resource) int {
	for i := range e.slots {
		if e.slots[i].res != nil && e.slots[i].res == res {
			return i
		}
	}
	return -1
}

// empty reports whether no slot holds a version.
func (e *entry) empty() bool {
	for i := range e.slots {
		if e.slots[i].res != nil {
			return false
		}
	}
	return true
}

func (e *entry) snapshot() EntryStats {
	st := EntryStats{
		Name:          e.name,
		ActiveSlot:    e.active,
		ReloadPending: e.reloadPending,
		LoadFailed:    e.loadFailed,
		Loads:         e.loads,
		Failures:      e.failures,
		PendingEvents: e.events.Len(),
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	if e.timer != nil {
		st.NextReload = e.timer.When()
	}
	for i, s := range e.slots {
		st.Slots[i].Refs = s.refs
		if s.res != nil {
			st.Slots[i].Loaded = true
			st.Slots[i].Generation = s.res.generation
			st.Slots[i].VersionID = s.res.id.String()
			st.Slots[i].LoadedAt = s.res.loadedAt
		}
	}
	return st
}
