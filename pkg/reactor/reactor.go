package reactor

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"time"
)

// ErrAlreadyRegistered is returned when a source is registered twice.
var ErrAlreadyRegistered = errors.New("source already registered")

// Readable is anything that signals readiness through a channel, such as a
// notify.Queue.
type Readable interface {
	Ready() <-chan struct{}
}

type registration struct {
	src    Readable
	fn     func()
	active bool
}

// Reactor is a single-goroutine event loop dispatching callbacks for readable
// sources and expired timers.
//
// Reactor is not safe for concurrent use. Registration and timer methods must
// be called before Run or from callbacks running on the loop goroutine.
type Reactor struct {
	logger *slog.Logger

	sources map[Readable]*registration
	order   []*registration
	dirty   bool

	timers timerHeap
	seq    uint64

	now func() time.Time
}

// New creates an empty reactor. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Reactor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reactor{
		logger:  logger,
		sources: make(map[Readable]*registration),
		now:     time.Now,
	}
}

// RegisterReadable arranges for fn to run on the loop goroutine every time src
// signals readiness.
func (r *Reactor) RegisterReadable(src Readable, fn func()) error {
	if _, ok := r.sources[src]; ok {
		return ErrAlreadyRegistered
	}
	reg := &registration{src: src, fn: fn, active: true}
	r.sources[src] = reg
	r.order = append(r.order, reg)
	return nil
}

// UnregisterReadable stops dispatching for src. Unknown sources are ignored.
func (r *Reactor) UnregisterReadable(src Readable) {
	reg, ok := r.sources[src]
	if !ok {
		return
	}
	reg.active = false
	delete(r.sources, src)
	r.dirty = true
}

// Pending returns the number of registered sources and scheduled timers.
func (r *Reactor) Pending() (readables, timers int) {
	return len(r.sources), len(r.timers)
}

// Run dispatches callbacks until no sources and no timers remain, or ctx is
// done. It returns ctx.Err() in the latter case.
func (r *Reactor) Run(ctx context.Context) error {
	wait := time.NewTimer(time.Hour)
	wait.Stop()
	defer wait.Stop()

	for {
		r.runTimers(r.now())

		if len(r.sources) == 0 && len(r.timers) == 0 {
			return nil
		}

		if r.dirty {
			r.compact()
		}

		var timerC <-chan time.Time
		if when, ok := r.nextDeadline(); ok {
			wait.Reset(max(when.Sub(r.now()), 0))
			timerC = wait.C
		}

		regs := r.order
		cases := make([]reflect.SelectCase, 0, len(regs)+2)
		cases = append(cases,
			reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())},
			reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(timerC)},
		)
		for _, reg := range regs {
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(reg.src.Ready())})
		}

		chosen, _, _ := reflect.Select(cases)
		wait.Stop()

		switch chosen {
		case 0:
			return ctx.Err()
		case 1:
			// timers run at the top of the loop
		default:
			reg := regs[chosen-2]
			if reg.active {
				r.safeExecute("readable", reg.fn)
			}
		}
	}
}

// compact drops unregistered sources from the dispatch order.
func (r *Reactor) compact() {
	kept := r.order[:0]
	for _, reg := range r.order {
		if reg.active {
			kept = append(kept, reg)
		}
	}
	for i := len(kept); i < len(r.order); i++ {
		r.order[i] = nil
	}
	r.order = kept
	r.dirty = false
}

// safeExecute runs a callback, logging instead of propagating a panic so one
// faulty callback cannot stop the loop.
func (r *Reactor) safeExecute(kind string, fn func()) {
	if fn == nil {
		return
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Reactor callback panicked",
				"kind", kind,
				"panic", p,
			)
		}
	}()

	fn()
}
