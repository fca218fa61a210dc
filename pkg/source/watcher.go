package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// Reloader is the part of *registry.Registry the watcher drives.
type Reloader interface {
	Reload(ctx context.Context, name string) error
}

// WatchObserver receives watcher events, typically to export them as
// metrics. *metrics.Collector implements it.
type WatchObserver interface {
	FileChanged(name string)
	ReloadThrottled(name string)
}

type nopWatchObserver struct{}

func (nopWatchObserver) FileChanged(string)     {}
func (nopWatchObserver) ReloadThrottled(string) {}

// FileWatcherConfig contains configuration for the file watcher.
type FileWatcherConfig struct {
	// DebounceInterval is the quiet period after the last change to a file
	// before its entry is reloaded (default: 100ms)
	DebounceInterval time.Duration

	// ReloadRate limits watch-triggered reloads per entry, in reloads per
	// second (default: 1)
	ReloadRate rate.Limit

	// ReloadBurst is the number of reloads allowed at once per entry
	// (default: 1)
	ReloadBurst int

	// ReloadTimeout bounds each Reload call (default: 30s)
	ReloadTimeout time.Duration
}

// DefaultFileWatcherConfig returns the default watcher configuration.
func DefaultFileWatcherConfig() *FileWatcherConfig {
	return &FileWatcherConfig{
		DebounceInterval: 100 * time.Millisecond,
		ReloadRate:       1,
		ReloadBurst:      1,
		ReloadTimeout:    30 * time.Second,
	}
}

// watched is one file tracked for an entry.
type watched struct {
	path    string
	limiter *rate.Limiter
}

// FileWatcher reloads registry entries when their files change. It watches
// the parent directory of every file so editors that replace a file by
// renaming a temporary one are still noticed.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	reloader Reloader
	observer WatchObserver
	logger   *slog.Logger
	config   *FileWatcherConfig
	debounce *Debouncer

	mu      sync.Mutex
	entries map[string]*watched // entry name -> file
	byPath  map[string][]string // cleaned file path -> entry names
	dirs    map[string]int      // directory -> number of files watched in it

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewFileWatcher creates a file watcher that calls reloader.Reload for
// changed entries. observer may be nil.
func NewFileWatcher(config *FileWatcherConfig, reloader Reloader, observer WatchObserver, logger *slog.Logger) (*FileWatcher, error) {
	if config == nil {
		config = DefaultFileWatcherConfig()
	}
	if observer == nil {
		observer = nopWatchObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  watcher,
		reloader: reloader,
		observer: observer,
		logger:   logger.With("component", "source.watcher"),
		config:   config,
		debounce: NewDebouncer(config.DebounceInterval),
		entries:  make(map[string]*watched),
		byPath:   make(map[string][]string),
		dirs:     make(map[string]int),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Add starts watching path on behalf of the named entry. Adding an entry
// that is already watched replaces its path.
func (fw *FileWatcher) Add(name, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	abs = filepath.Clean(abs)
	dir := filepath.Dir(abs)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if old, ok := fw.entries[name]; ok {
		if old.path == abs {
			return nil
		}
		fw.removeLocked(name)
	}

	if fw.dirs[dir] == 0 {
		if err := fw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", dir, err)
		}
		fw.logger.Debug("Watching directory", "path", dir)
	}
	fw.dirs[dir]++

	fw.entries[name] = &watched{
		path:    abs,
		limiter: rate.NewLimiter(fw.config.ReloadRate, fw.config.ReloadBurst),
	}
	fw.byPath[abs] = append(fw.byPath[abs], name)

	fw.logger.Info("Watching resource file", "entry", name, "path", abs)
	return nil
}

// Remove stops watching the named entry's file.
func (fw *FileWatcher) Remove(name string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.removeLocked(name)
}

func (fw *FileWatcher) removeLocked(name string) {
	w, ok := fw.entries[name]
	if !ok {
		return
	}
	delete(fw.entries, name)

	names := fw.byPath[w.path]
	for i, n := range names {
		if n == name {
			names = append(names[:i], names[i+1:]...)
			break
		}
	}
	if len(names) == 0 {
		delete(fw.byPath, w.path)
	} else {
		fw.byPath[w.path] = names
	}

	dir := filepath.Dir(w.path)
	fw.dirs[dir]--
	if fw.dirs[dir] <= 0 {
		delete(fw.dirs, dir)
		if err := fw.watcher.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			fw.logger.Warn("Failed to stop watching directory", "path", dir, "error", err)
		}
	}
	fw.debounce.Cancel(name)
}

// Watched returns the entries currently watched and their files.
func (fw *FileWatcher) Watched() map[string]string {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	out := make(map[string]string, len(fw.entries))
	for name, w := range fw.entries {
		out[name] = w.path
	}
	return out
}

// Watch processes filesystem events until ctx is cancelled or Stop is
// called. Reloads run with ctx, so cancelling it also abandons pending ones.
func (fw *FileWatcher) Watch(ctx context.Context) error {
	fw.runMu.Lock()
	if fw.running {
		fw.runMu.Unlock()
		return errors.New("watcher already running")
	}
	fw.running = true
	fw.runMu.Unlock()

	defer close(fw.doneCh)

	fw.logger.Info("File watcher started",
		"debounce_ms", fw.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("File watcher stopped (context cancelled)")
			return nil

		case <-fw.stopCh:
			fw.logger.Info("File watcher stopped")
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			fw.handle(ctx, event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			fw.logger.Error("File watcher error", "error", err)
		}
	}
}

// handle schedules a debounced reload for every entry backed by the file
// an event concerns.
func (fw *FileWatcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}

	path := filepath.Clean(event.Name)

	fw.mu.Lock()
	names := append([]string(nil), fw.byPath[path]...)
	fw.mu.Unlock()

	for _, name := range names {
		fw.observer.FileChanged(name)
		fw.logger.Debug("File event detected",
			"entry", name,
			"path", path,
			"op", event.Op.String(),
		)

		fw.debounce.Trigger(name, func() {
			fw.reload(ctx, name)
		})
	}
}

// reload asks the registry for a new version, subject to the entry's rate
// limit.
func (fw *FileWatcher) reload(ctx context.Context, name string) {
	fw.mu.Lock()
	w, ok := fw.entries[name]
	fw.mu.Unlock()
	if !ok {
		return
	}

	if !w.limiter.Allow() {
		fw.observer.ReloadThrottled(name)
		fw.logger.Warn("Reload throttled", "entry", name, "path", w.path)
		return
	}

	reloadCtx, cancel := context.WithTimeout(ctx, fw.config.ReloadTimeout)
	defer cancel()

	fw.logger.Info("Triggering resource reload", "entry", name, "path", w.path)
	if err := fw.reloader.Reload(reloadCtx, name); err != nil {
		fw.logger.Error("Resource reload failed", "entry", name, "error", err)
	}
}

// Stop stops the watcher, cancels pending reloads, and releases the
// underlying fsnotify watcher. It is safe to call whether or not Watch is
// running.
func (fw *FileWatcher) Stop() error {
	fw.runMu.Lock()
	running := fw.running
	select {
	case <-fw.stopCh:
	default:
		close(fw.stopCh)
	}
	fw.runMu.Unlock()

	if running {
		<-fw.doneCh
	}
	fw.debounce.Stop()

	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Debouncer collapses bursts of events per key, running the latest
// callback for a key only after a quiet period.
type Debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		timers:   make(map[string]*time.Timer),
	}
}

// Trigger (re)starts the quiet period for key. callback runs once the
// period passes without another Trigger for the same key.
func (d *Debouncer) Trigger(key string, callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		if d.stopped || d.timers[key] != t {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()

		callback()
	})
	d.timers[key] = t
}

// Cancel drops any pending callback for key.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

// Pending returns the number of keys waiting for their quiet period.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Stop cancels every pending callback. Later Triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
