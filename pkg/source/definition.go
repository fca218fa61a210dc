package source

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/dyndict/pkg/config"
	"mercator-hq/dyndict/pkg/registry"
)

// Resource types accepted by NewDefinition.
const (
	TypeFile   = "file"
	TypeSQLite = "sqlite"
)

// NewDefinition builds the registry definition for a configured resource.
// cfg is expected to have passed config.Validate.
func NewDefinition(cfg config.ResourceConfig, logger *slog.Logger) (registry.Definition, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("entry", cfg.Name)

	def := registry.Definition{
		Name:     cfg.Name,
		Interval: cfg.Interval,
	}

	if cfg.Schedule != "" {
		sched, err := registry.ParseSchedule(cfg.Schedule)
		if err != nil {
			return registry.Definition{}, fmt.Errorf("resource %q: %w", cfg.Name, err)
		}
		def.Schedule = sched
	}

	switch cfg.Type {
	case TypeFile, "":
		loader, err := NewFileLoader(cfg.Path, cfg.Format, cfg.MaxSize, logger)
		if err != nil {
			return registry.Definition{}, fmt.Errorf("resource %q: %w", cfg.Name, err)
		}
		def.Load = loader.Load

	case TypeSQLite:
		loader, err := NewSQLiteLoader(cfg.Path, cfg.Table, cfg.KeyColumn, cfg.ValueColumn, logger)
		if err != nil {
			return registry.Definition{}, fmt.Errorf("resource %q: %w", cfg.Name, err)
		}
		def.Load = loader.Load

	default:
		return registry.Definition{}, fmt.Errorf("resource %q: %w: type %q", cfg.Name, ErrUnsupported, cfg.Type)
	}

	return def, nil
}

// releaseRetryDelay spaces out Release attempts while an entry queue is full.
const releaseRetryDelay = 5 * time.Millisecond

// View borrows the named dictionary, passes it and its generation to fn, and
// releases it. It returns ErrNotDictionary if the entry holds another type.
func View(r *registry.Registry, name string, fn func(dict *Dictionary, generation uint64)) (err error) {
	res, err := r.Borrow(name)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := release(r, name, res); rerr != nil && err == nil {
			err = rerr
		}
	}()

	dict, ok := registry.Value[*Dictionary](res)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotDictionary, name)
	}
	fn(dict, res.Generation())
	return nil
}

// release retries while the entry queue is full. A reference that is never
// returned pins its version and keeps Delete from completing.
func release(r *registry.Registry, name string, res *registry.Resource) error {
	for {
		err := r.Release(name, res)
		if !errors.Is(err, registry.ErrQueueFull) {
			return err
		}
		time.Sleep(releaseRetryDelay)
	}
}

// Lookup borrows the named dictionary, reads key, and releases it.
func Lookup(r *registry.Registry, name, key string) (value string, found bool, err error) {
	err = View(r, name, func(dict *Dictionary, _ uint64) {
		value, found = dict.Lookup(key)
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}
