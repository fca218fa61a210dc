package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/dyndict/pkg/notify"
	"mercator-hq/dyndict/pkg/reactor"
)

type commandKind uint8

const (
	cmdAdd commandKind = iota
	cmdDelete
	cmdReload
	cmdStats
	cmdExit
)

func (k commandKind) String() string {
	switch k {
	case cmdAdd:
		return "add"
	case cmdDelete:
		return "delete"
	case cmdReload:
		return "reload"
	case cmdStats:
		return "stats"
	case cmdExit:
		return "exit"
	default:
		return "unknown"
	}
}

// command is a control message for the worker. done, when set, receives
// exactly one value once the command has been carried out.
type command struct {
	kind    commandKind
	entry   *entry
	done    chan<- error
	entries []*entry
	stats   chan<- []EntryStats
}

// worker owns every entry's slots, counts and timers. All of its methods run
// on the reactor goroutine.
type worker struct {
	reactor  *reactor.Reactor
	commands *notify.Queue[command]

	logger      *slog.Logger
	observer    Observer
	tracer      trace.Tracer
	loadTimeout time.Duration
	now         func() time.Time

	done chan struct{}
}

func newWorker(o *options) *worker {
	logger := o.logger.With("component", "registry.worker")
	return &worker{
		reactor:     reactor.New(logger),
		commands:    notify.New[command](o.commandQueueCapacity),
		logger:      logger,
		observer:    o.observer,
		tracer:      o.tracer,
		loadTimeout: o.loadTimeout,
		now:         o.now,
		done:        make(chan struct{}),
	}
}

func (w *worker) start() {
	// The reactor is fresh, so registration cannot collide.
	_ = w.reactor.RegisterReadable(w.commands, w.onCommands)
	go w.run()
}

func (w *worker) run() {
	defer close(w.done)

	w.logger.Debug("Registry worker started")
	if err := w.reactor.Run(context.Background()); err != nil {
		w.logger.Error("Registry worker stopped unexpectedly", "error", err)
		return
	}
	w.logger.Debug("Registry worker stopped")
}

func (w *worker) onCommands() {
	for {
		cmd, ok := w.commands.Get()
		if !ok {
			return
		}
		w.dispatch(cmd)
	}
}

func (w *worker) dispatch(cmd command) {
	switch cmd.kind {
	case cmdAdd:
		w.addEntry(cmd.entry, cmd.done)
	case cmdDelete:
		w.deleteEntry(cmd.entry, cmd.done)
	case cmdReload:
		cmd.done <- w.reloadNow(cmd.entry)
	case cmdStats:
		out := make([]EntryStats, 0, len(cmd.entries))
		for _, e := range cmd.entries {
			out = append(out, e.snapshot())
		}
		cmd.stats <- out
	case cmdExit:
		w.reactor.UnregisterReadable(w.commands)
		if readables, timers := w.reactor.Pending(); readables > 0 || timers > 0 {
			w.logger.Warn("Registry worker exiting with live entries",
				"entries", readables,
				"timers", timers,
			)
		}
	default:
		w.logger.Error("Unknown registry command", "kind", cmd.kind)
	}
}

// addEntry performs the initial load into slot 0.
func (w *worker) addEntry(e *entry, done chan<- error) {
	e.phase = phaseAdding
	if err := w.reactor.RegisterReadable(e.events, func() { w.onEvents(e) }); err != nil {
		done <- err
		return
	}

	if err := w.loadInto(e, 0, true); err != nil {
		w.reactor.UnregisterReadable(e.events)
		e.phase = phaseGone
		done <- err
		return
	}

	e.phase = phaseActive
	w.scheduleNext(e)
	done <- nil
}

// deleteEntry stops reloads and tears the entry down once every reference is
// released. The ack is sent from teardown.
func (w *worker) deleteEntry(e *entry, done chan<- error) {
	if e.phase != phaseActive {
		done <- newError("delete", e.name, ErrNoSuchEntry)
		return
	}

	w.cancelTimer(e)
	e.phase = phaseDeleting
	e.reloadPending = false
	e.deleteAck = done

	w.applyEvents(e)
	w.teardown(e)
}

func (w *worker) reloadNow(e *entry) error {
	if e.phase != phaseActive {
		return newError("reload", e.name, ErrNoSuchEntry)
	}
	w.cancelTimer(e)
	return w.reload(e)
}

func (w *worker) onTimer(e *entry) {
	e.timer = nil
	_ = w.reload(e)
}

// onEvents applies queued reference changes and reacts to a count reaching
// zero: a deleting entry may now be torn down, and a deferred reload may now
// find a free slot.
func (w *worker) onEvents(e *entry) {
	if !w.applyEvents(e) {
		return
	}

	switch e.phase {
	case phaseDeleting:
		w.teardown(e)
	case phaseActive:
		if e.reloadPending {
			_ = w.reload(e)
		}
	}
}

// reload loads a new version into the free slot and makes it active. Pending
// reference events are applied first so that every borrow of the outgoing
// version is counted before it can be unloaded.
func (w *worker) reload(e *entry) error {
	if e.phase != phaseActive {
		return nil
	}

	w.applyEvents(e)

	next, ok := e.findNext()
	if !ok {
		if !e.reloadPending {
			e.reloadPending = true
			w.observer.ReloadDeferred(e.name)
			w.logger.Info("Reload deferred, both versions in use",
				"entry", e.name,
				"refs_active", e.slots[e.active].refs,
			)
		}
		return newError("reload", e.name, ErrReloadPending)
	}
	e.reloadPending = false

	err := w.loadInto(e, next, false)
	w.scheduleNext(e)
	if err != nil {
		return newError("reload", e.name, err)
	}
	return nil
}

// applyEvents folds pending reference events into the slot counts. It reports
// whether any count dropped to zero.
func (w *worker) applyEvents(e *entry) bool {
	zeroed := false
	for _, ev := range e.events.Drain() {
		i := e.slotOf(ev.res)
		if i < 0 {
			w.violation(e, ev, "handle does not belong to a loaded version")
			continue
		}

		switch ev.kind {
		case eventRef:
			e.slots[i].refs++
		case eventUnref:
			if e.slots[i].refs == 0 {
				w.violation(e, ev, "release without a matching borrow")
				continue
			}
			e.slots[i].refs--
			if e.slots[i].refs == 0 {
				zeroed = true
			}
		}
	}
	return zeroed
}

func (w *worker) violation(e *entry, ev refEvent, msg string) {
	w.observer.ProtocolViolation(e.name)
	w.logger.Error("Reference event rejected",
		"entry", e.name,
		"event", ev.kind.String(),
		"generation", ev.res.generation,
		"reason", msg,
	)
}

// teardown unloads every unreferenced version of a deleting entry and, once
// none remain, unregisters it and acknowledges the delete.
func (w *worker) teardown(e *entry) {
	for i := range e.slots {
		if e.slots[i].res != nil && e.slots[i].refs == 0 {
			w.unload(e, i)
		}
	}

	if !e.empty() {
		w.logger.Debug("Delete waiting for outstanding references",
			"entry", e.name,
			"refs", e.slots[0].refs+e.slots[1].refs,
		)
		return
	}

	w.reactor.UnregisterReadable(e.events)
	e.phase = phaseGone
	w.logger.Info("Entry torn down", "entry", e.name)

	if e.deleteAck != nil {
		e.deleteAck <- nil
		e.deleteAck = nil
	}
}

// loadInto replaces the version in slot i with a freshly loaded one and makes
// it active. On failure the previously active version stays current.
func (w *worker) loadInto(e *entry, i int, initial bool) error {
	if e.slots[i].res != nil {
		w.unload(e, i)
	}

	gen := e.generation + 1
	start := w.now()
	value, err := w.callLoader(e, gen)
	elapsed := w.now().Sub(start)

	e.loads++
	w.observer.LoadFinished(e.name, initial, elapsed, err)

	if err != nil {
		e.failures++
		e.loadFailed = true
		e.lastErr = err
		if initial {
			w.logger.Warn("Initial load failed",
				"entry", e.name,
				"duration_ms", elapsed.Milliseconds(),
				"error", err,
			)
		} else {
			w.logger.Warn("Reload failed, keeping current version",
				"entry", e.name,
				"generation", e.generation,
				"duration_ms", elapsed.Milliseconds(),
				"error", err,
			)
		}
		return err
	}

	e.generation = gen
	e.slots[i] = slot{res: &Resource{
		owner:      e,
		name:       e.name,
		id:         uuid.New(),
		generation: gen,
		value:      value,
		loadedAt:   start,
	}}

	e.mu.Lock()
	e.active = i
	e.mu.Unlock()

	e.loadFailed = false
	e.lastErr = nil

	w.logger.Info("Resource loaded",
		"entry", e.name,
		"generation", gen,
		"slot", i,
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}

func (w *worker) callLoader(e *entry, gen uint64) (value any, err error) {
	ctx := context.Background()
	if w.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.loadTimeout)
		defer cancel()
	}

	ctx, span := w.tracer.Start(ctx, "registry.load",
		trace.WithAttributes(
			attribute.String("dyndict.entry", e.name),
			attribute.Int64("dyndict.generation", int64(gen)),
		),
	)
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			value = nil
			err = &LoadError{Entry: e.name, Generation: gen, Cause: fmt.Errorf("loader panicked: %v", p)}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	v, lerr := e.def.Load(ctx, e.def.Args)
	if lerr != nil {
		return nil, &LoadError{Entry: e.name, Generation: gen, Cause: lerr}
	}
	if v == nil {
		return nil, &LoadError{Entry: e.name, Generation: gen, Cause: errors.New("loader returned a nil value")}
	}
	return v, nil
}

// unload empties slot i and hands its value to the Unloader.
func (w *worker) unload(e *entry, i int) {
	res := e.slots[i].res
	e.slots[i] = slot{}
	if res == nil || e.def.Unload == nil {
		return
	}

	defer func() {
		if p := recover(); p != nil {
			w.logger.Error("Unloader panicked",
				"entry", e.name,
				"generation", res.generation,
				"panic", p,
			)
		}
	}()

	e.def.Unload(res.value)
	w.logger.Debug("Resource unloaded", "entry", e.name, "generation", res.generation, "slot", i)
}

func (w *worker) scheduleNext(e *entry) {
	w.cancelTimer(e)
	if e.sched == nil || e.phase != phaseActive {
		return
	}

	next := e.sched.Next(w.now())
	if next.IsZero() {
		return
	}
	e.timer = w.reactor.ScheduleAt(next, func() { w.onTimer(e) })
}

func (w *worker) cancelTimer(e *entry) {
	if e.timer != nil {
		w.reactor.Cancel(e.timer)
		e.timer = nil
	}
}
