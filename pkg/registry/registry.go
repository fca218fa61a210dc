package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultCapacity is the table size used when New is given a
	// non-positive capacity.
	DefaultCapacity = 100

	// DefaultQueueCapacity is the per-entry notification queue size.
	DefaultQueueCapacity = 1024

	// DefaultEnqueueTimeout bounds how long Borrow and Release wait for room
	// in a full notification queue.
	DefaultEnqueueTimeout = 100 * time.Millisecond

	tracerName = "mercator-hq/dyndict/registry"
)

type options struct {
	logger               *slog.Logger
	observer             Observer
	tracer               trace.Tracer
	queueCapacity        int
	commandQueueCapacity int
	enqueueTimeout       time.Duration
	loadTimeout          time.Duration
	now                  func() time.Time
}

// Option configures a Registry.
type Option func(*options)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver installs an event observer, e.g. a metrics collector.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithTracer sets the tracer used for load spans. The default is the tracer
// of the global otel provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithQueueCapacity sets the per-entry notification queue capacity.
func WithQueueCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueCapacity = n
		}
	}
}

// WithEnqueueTimeout sets how long Borrow and Release wait for a full
// notification queue to drain before failing with ErrQueueFull. Zero fails
// immediately.
func WithEnqueueTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.enqueueTimeout = d
		}
	}
}

// WithLoadTimeout sets a deadline on the context passed to loaders.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.loadTimeout = d
		}
	}
}

// Registry is a fixed-size table of named, hot-reloadable resources.
//
// Each entry holds up to two versions of its resource. Borrow hands out the
// active version; a reload loads the next version into the other slot and
// flips to it, while holders of the previous version keep using it until they
// Release it. A version is unloaded only when no reference to it remains.
//
// Reference counts, reloads and teardown are owned by a single worker
// goroutine. Borrow and Release never block on a loader; they post a
// notification to the entry's queue and return.
type Registry struct {
	capacity int

	mu        sync.RWMutex
	entries   []*entry
	byName    map[string]*entry
	lifecycle Lifecycle

	// inflight counts Add and Delete calls between table update and worker
	// acknowledgement.
	inflight sync.WaitGroup

	worker *worker
	opts   options
	logger *slog.Logger

	shutdownOnce sync.Once
	terminated   chan struct{}
	shutdownErr  error
}

// New creates a registry with room for capacity entries and starts its worker.
func New(capacity int, opts ...Option) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	o := options{
		logger:               slog.Default(),
		observer:             nopObserver{},
		tracer:               otel.Tracer(tracerName),
		queueCapacity:        DefaultQueueCapacity,
		commandQueueCapacity: DefaultQueueCapacity,
		enqueueTimeout:       DefaultEnqueueTimeout,
		now:                  time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{
		capacity:   capacity,
		entries:    make([]*entry, capacity),
		byName:     make(map[string]*entry, capacity),
		opts:       o,
		logger:     o.logger.With("component", "registry"),
		terminated: make(chan struct{}),
	}
	r.worker = newWorker(&r.opts)
	r.worker.start()

	r.logger.Debug("Registry started", "capacity", capacity)
	return r
}

// Cap returns the table size.
func (r *Registry) Cap() int {
	return r.capacity
}

// Len returns the number of non-empty table slots.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// Lifecycle returns the registry-wide state.
func (r *Registry) Lifecycle() Lifecycle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lifecycle
}

// Names returns the sorted names of all active entries.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name, e := range r.byName {
		if e.status == StatusActive {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Status returns the registry-level status of the named entry, or StatusEmpty
// if there is none.
func (r *Registry) Status(name string) Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.byName[name]; ok {
		return e.status
	}
	return StatusEmpty
}

func validateDefinition(def Definition) error {
	switch {
	case def.Name == "":
		return errors.New("name is required")
	case def.Load == nil:
		return errors.New("loader is required")
	case def.Interval < 0:
		return fmt.Errorf("interval must not be negative, got %s", def.Interval)
	}
	return nil
}

// Add registers a new entry and performs its initial load. It returns once
// the load finished, with an error wrapping ErrLoadFailed if it did not
// succeed, in which case the entry is discarded.
//
// If ctx ends first Add returns ErrTimeout; the entry still becomes active
// or is discarded once the load completes.
func (r *Registry) Add(ctx context.Context, def Definition) error {
	if err := validateDefinition(def); err != nil {
		return &RegistryError{Entry: def.Name, Operation: "add", Message: err.Error(), Cause: ErrInvalidDefinition}
	}

	r.mu.Lock()
	if r.lifecycle != LifecycleLive {
		r.mu.Unlock()
		return newError("add", def.Name, ErrTerminating)
	}
	if _, ok := r.byName[def.Name]; ok {
		r.mu.Unlock()
		return newError("add", def.Name, ErrDuplicateName)
	}
	idx := -1
	for i, e := range r.entries {
		if e == nil {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return newError("add", def.Name, ErrRegistryFull)
	}

	e := newEntry(def, r.opts.queueCapacity)
	r.entries[idx] = e
	r.byName[def.Name] = e
	r.inflight.Add(1)
	r.mu.Unlock()

	done := make(chan error, 1)
	if err := r.worker.commands.PutWait(ctx, command{kind: cmdAdd, entry: e, done: done}); err != nil {
		r.finishAdd(e, err)
		return newError("add", def.Name, ErrQueueFull)
	}

	return r.await(ctx, "add", e, done, r.finishAdd)
}

func (r *Registry) finishAdd(e *entry, err error) {
	defer r.inflight.Done()

	r.mu.Lock()
	if err != nil {
		e.status = StatusFailed
		r.removeLocked(e)
	} else {
		e.status = StatusActive
	}
	r.mu.Unlock()

	if err == nil {
		r.opts.observer.EntryAdded(e.name)
		r.logger.Info("Entry added", "entry", e.name)
	}
}

// Delete removes the named active entry. New borrows fail immediately; the
// entry's versions are unloaded once every outstanding reference has been
// released, at which point Delete returns.
//
// If ctx ends first Delete returns ErrTimeout and the teardown completes in
// the background.
func (r *Registry) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	if r.lifecycle != LifecycleLive {
		r.mu.Unlock()
		return newError("delete", name, ErrTerminating)
	}
	e, ok := r.byName[name]
	if !ok || e.status != StatusActive {
		r.mu.Unlock()
		return newError("delete", name, ErrNoSuchEntry)
	}
	e.status = StatusDeleting
	r.inflight.Add(1)
	r.mu.Unlock()

	return r.deleteEntry(ctx, e)
}

// deleteEntry sends the delete command for an entry already marked deleting.
func (r *Registry) deleteEntry(ctx context.Context, e *entry) error {
	done := make(chan error, 1)
	// The command queue is only ever full if the worker is wedged; keep
	// trying so the entry does not stay half-deleted.
	if err := r.worker.commands.PutWait(context.Background(), command{kind: cmdDelete, entry: e, done: done}); err != nil {
		r.finishDelete(e, err)
		return newError("delete", e.name, err)
	}
	return r.await(ctx, "delete", e, done, r.finishDelete)
}

func (r *Registry) finishDelete(e *entry, err error) {
	defer r.inflight.Done()

	if err != nil {
		r.logger.Error("Delete failed", "entry", e.name, "error", err)
		return
	}

	r.mu.Lock()
	e.status = StatusEmpty
	r.removeLocked(e)
	r.mu.Unlock()

	r.opts.observer.EntryRemoved(e.name)
	r.logger.Info("Entry deleted", "entry", e.name)
}

// removeLocked frees the table slot of e. Callers must hold r.mu.
func (r *Registry) removeLocked(e *entry) {
	for i, cur := range r.entries {
		if cur == e {
			r.entries[i] = nil
			break
		}
	}
	if r.byName[e.name] == e {
		delete(r.byName, e.name)
	}
}

// await waits for the worker to acknowledge a command. If ctx ends first,
// finish runs in the background once the acknowledgement arrives.
func (r *Registry) await(ctx context.Context, op string, e *entry, done <-chan error, finish func(*entry, error)) error {
	select {
	case err := <-done:
		finish(e, err)
		if err != nil {
			var regErr *RegistryError
			if errors.As(err, &regErr) {
				return err
			}
			return newError(op, e.name, err)
		}
		return nil
	case <-ctx.Done():
		go func() {
			finish(e, <-done)
		}()
		return &RegistryError{
			Entry:     e.name,
			Operation: op,
			Message:   ctx.Err().Error(),
			Cause:     ErrTimeout,
		}
	}
}

// Borrow returns the active version of the named entry and takes a reference
// to it. Every successful Borrow must be paired with a Release of the same
// handle.
func (r *Registry) Borrow(name string) (*Resource, error) {
	var ctx context.Context

	for {
		res, e, err := r.tryBorrow(name)
		if err == nil {
			r.opts.observer.Borrowed(name)
			return res, nil
		}
		if !errors.Is(err, ErrQueueFull) {
			return nil, err
		}

		// The locks are released before waiting so the worker can drain
		// the queue.
		if ctx == nil {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(context.Background(), r.opts.enqueueTimeout)
			defer cancel()
		}
		if werr := e.events.WaitSpace(ctx); werr != nil {
			r.opts.observer.QueueFull(name)
			return nil, err
		}
	}
}

// tryBorrow reads the active version and posts the ref while holding both the
// table and entry read locks, so neither a delete nor a reload flip can slip
// in between.
func (r *Registry) tryBorrow(name string) (*Resource, *entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.lifecycle != LifecycleLive {
		return nil, nil, newError("borrow", name, ErrTerminating)
	}
	e, ok := r.byName[name]
	if !ok || e.status != StatusActive {
		return nil, nil, newError("borrow", name, ErrNoSuchEntry)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	res := e.current()
	if res == nil {
		return nil, nil, newError("borrow", name, ErrNoSuchEntry)
	}

	res.outstanding.Add(1)
	if err := e.events.Put(refEvent{kind: eventRef, res: res}); err != nil {
		res.outstanding.Add(-1)
		return nil, e, newError("borrow", name, ErrQueueFull)
	}
	return res, e, nil
}

// Release returns a reference taken by Borrow. Releasing is allowed while the
// registry drains, and for entries being deleted.
func (r *Registry) Release(name string, res *Resource) error {
	if res == nil {
		return &RegistryError{Entry: name, Operation: "release", Message: "nil handle", Cause: ErrProtocolViolation}
	}

	r.mu.RLock()
	if r.lifecycle == LifecycleTerminated {
		r.mu.RUnlock()
		return newError("release", name, ErrTerminating)
	}
	e, ok := r.byName[name]
	if !ok || (e.status != StatusActive && e.status != StatusDeleting) {
		r.mu.RUnlock()
		return newError("release", name, ErrNoSuchEntry)
	}
	r.mu.RUnlock()

	if res.owner != e {
		r.opts.observer.ProtocolViolation(name)
		return &RegistryError{Entry: name, Operation: "release", Message: "handle belongs to another entry", Cause: ErrProtocolViolation}
	}
	if res.outstanding.Add(-1) < 0 {
		res.outstanding.Add(1)
		r.opts.observer.ProtocolViolation(name)
		return &RegistryError{Entry: name, Operation: "release", Message: "handle released more often than borrowed", Cause: ErrProtocolViolation}
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.opts.enqueueTimeout)
	defer cancel()
	if err := e.events.PutWait(ctx, refEvent{kind: eventUnref, res: res}); err != nil {
		res.outstanding.Add(1)
		r.opts.observer.QueueFull(name)
		return newError("release", name, ErrQueueFull)
	}

	r.opts.observer.Released(name)
	return nil
}

// Reload loads a new version of the named entry now instead of waiting for
// its schedule. It returns an error wrapping ErrReloadPending if both versions
// are still referenced; the reload then happens as soon as one is released.
func (r *Registry) Reload(ctx context.Context, name string) error {
	r.mu.RLock()
	if r.lifecycle != LifecycleLive {
		r.mu.RUnlock()
		return newError("reload", name, ErrTerminating)
	}
	e, ok := r.byName[name]
	if !ok || e.status != StatusActive {
		r.mu.RUnlock()
		return newError("reload", name, ErrNoSuchEntry)
	}
	r.mu.RUnlock()

	done := make(chan error, 1)
	if err := r.send(ctx, "reload", name, command{kind: cmdReload, entry: e, done: done}); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-r.worker.done:
		return newError("reload", name, ErrTerminating)
	case <-ctx.Done():
		return &RegistryError{Entry: name, Operation: "reload", Message: ctx.Err().Error(), Cause: ErrTimeout}
	}
}

// send posts a command that expects a reply. It fails with ErrTerminating
// once the worker has exited, since nothing would answer.
func (r *Registry) send(ctx context.Context, op, name string, cmd command) error {
	select {
	case <-r.worker.done:
		return newError(op, name, ErrTerminating)
	default:
	}
	if err := r.worker.commands.PutWait(ctx, cmd); err != nil {
		return newError(op, name, ErrQueueFull)
	}
	return nil
}

// Stats returns a snapshot of every non-empty entry, sorted by name.
func (r *Registry) Stats(ctx context.Context) ([]EntryStats, error) {
	r.mu.RLock()
	if r.lifecycle == LifecycleTerminated {
		r.mu.RUnlock()
		return nil, newError("stats", "", ErrTerminating)
	}
	entries := make([]*entry, 0, len(r.byName))
	for _, e := range r.byName {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	reply := make(chan []EntryStats, 1)
	if err := r.send(ctx, "stats", "", command{kind: cmdStats, entries: entries, stats: reply}); err != nil {
		return nil, err
	}

	var stats []EntryStats
	select {
	case stats = <-reply:
	case <-r.worker.done:
		return nil, newError("stats", "", ErrTerminating)
	case <-ctx.Done():
		return nil, &RegistryError{Operation: "stats", Message: ctx.Err().Error(), Cause: ErrTimeout}
	}

	r.mu.RLock()
	for i := range stats {
		stats[i].Status = entries[i].status
	}
	r.mu.RUnlock()

	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats, nil
}

// Shutdown stops accepting Borrow, Add and Delete, waits for in-flight Add and
// Delete calls, deletes every active entry, and stops the worker. Deletes wait
// for outstanding references, so Shutdown returns only after every borrower
// has released.
//
// Shutdown may be called more than once; later calls wait for the first to
// finish. If ctx ends first Shutdown returns ErrTimeout and teardown continues
// in the background.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.shutdownOnce.Do(func() {
		r.mu.Lock()
		r.lifecycle = LifecycleDraining
		r.mu.Unlock()

		r.logger.Info("Registry shutting down")
		go r.drain()
	})

	select {
	case <-r.terminated:
		return r.shutdownErr
	case <-ctx.Done():
		return &RegistryError{Operation: "shutdown", Message: ctx.Err().Error(), Cause: ErrTimeout}
	}
}

// Done is closed once Shutdown has completed.
func (r *Registry) Done() <-chan struct{} {
	return r.terminated
}

func (r *Registry) drain() {
	start := time.Now()
	r.inflight.Wait()

	r.mu.Lock()
	var victims []*entry
	for _, e := range r.entries {
		if e != nil && e.status == StatusActive {
			e.status = StatusDeleting
			victims = append(victims, e)
		}
	}
	r.inflight.Add(len(victims))
	r.mu.Unlock()

	var (
		errs    ErrorList
		g       errgroup.Group
		results = make([]error, len(victims))
	)
	for i, e := range victims {
		g.Go(func() error {
			results[i] = r.deleteEntry(context.Background(), e)
			return results[i]
		})
	}
	if err := g.Wait(); err != nil {
		for _, err := range results {
			errs.Add(err)
		}
	}
	r.inflight.Wait()

	if err := r.worker.commands.PutWait(context.Background(), command{kind: cmdExit}); err != nil {
		errs.Add(newError("shutdown", "", err))
	}
	<-r.worker.done

	r.mu.Lock()
	r.lifecycle = LifecycleTerminated
	clear(r.entries)
	clear(r.byName)
	r.mu.Unlock()

	r.shutdownErr = errs.ToError()
	r.logger.Info("Registry shut down",
		"entries", len(victims),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	close(r.terminated)
}
