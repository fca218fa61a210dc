package main

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"mercator-hq/dyndict/pkg/config"
	"mercator-hq/dyndict/pkg/registry"
	"mercator-hq/dyndict/pkg/source"
)

// resourceSet keeps the registry and the file watcher in line with the
// configured resources.
type resourceSet struct {
	reg     *registry.Registry
	watcher *source.FileWatcher
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	current map[string]config.ResourceConfig
}

func newResourceSet(reg *registry.Registry, watcher *source.FileWatcher, logger *slog.Logger, timeout time.Duration) *resourceSet {
	if logger == nil {
		logger = slog.Default()
	}
	return &resourceSet{
		reg:     reg,
		watcher: watcher,
		logger:  logger,
		timeout: timeout,
		current: make(map[string]config.ResourceConfig),
	}
}

// Sync deletes resources no longer configured, replaces changed ones, and
// adds new ones. A resource whose definition changed is deleted and added
// again, since its loader is bound to the old settings. A resource whose
// delete times out is not re-added until a later Sync. Sync keeps going after
// a failure and returns every error.
func (s *resourceSet) Sync(ctx context.Context, resources []config.ResourceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]config.ResourceConfig, len(resources))
	for _, rc := range resources {
		wanted[rc.Name] = rc
	}

	var errs registry.ErrorList

	for _, name := range sortedNames(s.current) {
		rc, ok := wanted[name]
		if ok && rc == s.current[name] {
			continue
		}
		if err := s.remove(ctx, name); err != nil {
			errs.Add(err)
		}
	}

	for _, rc := range resources {
		if _, ok := s.current[rc.Name]; ok {
			continue
		}
		if err := s.add(ctx, rc); err != nil {
			errs.Add(err)
		}
	}

	return errs.ToError()
}

func (s *resourceSet) add(ctx context.Context, rc config.ResourceConfig) error {
	def, err := source.NewDefinition(rc, s.logger)
	if err != nil {
		return err
	}

	addCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.reg.Add(addCtx, def); err != nil {
		return err
	}
	s.current[rc.Name] = rc

	if rc.Watch && s.watcher != nil {
		if err := s.watcher.Add(rc.Name, rc.Path); err != nil {
			s.logger.Warn("Failed to watch resource file", "entry", rc.Name, "path", rc.Path, "error", err)
		}
	}

	s.logger.Info("Resource added", "entry", rc.Name, "type", rc.Type, "path", rc.Path)
	return nil
}

func (s *resourceSet) remove(ctx context.Context, name string) error {
	if s.watcher != nil {
		s.watcher.Remove(name)
	}

	delCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err := s.reg.Delete(delCtx, name)
	switch {
	case err == nil:
		s.logger.Info("Resource removed", "entry", name)
	case errors.Is(err, registry.ErrNoSuchEntry):
		// Gone already, e.g. a delete that timed out earlier has finished.
	default:
		// Readers still hold it. The name stays current so Sync does not
		// re-add over the draining entry; the next Sync retries.
		return err
	}
	delete(s.current, name)
	return nil
}

// Names returns the configured resources that were added successfully.
func (s *resourceSet) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedNames(s.current)
}

func sortedNames(m map[string]config.ResourceConfig) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
