package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/dyndict/pkg/config"
	"mercator-hq/dyndict/pkg/registry"
)

func TestNewDefinition(t *testing.T) {
	tsv := writeFile(t, "words.tsv", "hello\tworld\n")
	db := createDB(t,
		`CREATE TABLE kv (key TEXT, value TEXT)`,
		`INSERT INTO kv VALUES ('k', 'v')`,
	)

	tests := []struct {
		name    string
		cfg     config.ResourceConfig
		wantErr error
		check   func(t *testing.T, def registry.Definition)
	}{
		{
			name: "file with interval",
			cfg:  config.ResourceConfig{Name: "words", Type: "file", Path: tsv, Format: "tsv", Interval: time.Minute},
			check: func(t *testing.T, def registry.Definition) {
				if def.Interval != time.Minute || def.Schedule != nil {
					t.Errorf("Interval = %v, Schedule = %v", def.Interval, def.Schedule)
				}
			},
		},
		{
			name: "sqlite with schedule",
			cfg: config.ResourceConfig{
				Name: "kv", Type: "sqlite", Path: db, Table: "kv",
				KeyColumn: "key", ValueColumn: "value", Schedule: "*/5 * * * *",
			},
			check: func(t *testing.T, def registry.Definition) {
				if def.Schedule == nil {
					t.Error("Schedule = nil")
				}
			},
		},
		{
			name:    "unknown type",
			cfg:     config.ResourceConfig{Name: "x", Type: "redis"},
			wantErr: ErrUnsupported,
		},
		{
			name:    "unknown format",
			cfg:     config.ResourceConfig{Name: "x", Type: "file", Path: tsv, Format: "csv"},
			wantErr: ErrUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := NewDefinition(tt.cfg, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewDefinition() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewDefinition() error = %v", err)
			}
			if def.Name != tt.cfg.Name || def.Load == nil {
				t.Errorf("definition = %+v", def)
			}
			if _, err := def.Load(context.Background(), def.Args); err != nil {
				t.Errorf("Load() error = %v", err)
			}
			tt.check(t, def)
		})
	}

	if _, err := NewDefinition(config.ResourceConfig{Name: "x", Path: tsv, Format: "tsv", Schedule: "every day"}, nil); err == nil {
		t.Error("NewDefinition() with bad schedule error = nil")
	}
}

func TestLookup(t *testing.T) {
	reg := registry.New(4)
	t.Cleanup(func() { _ = reg.Shutdown(context.Background()) })

	def, err := NewDefinition(config.ResourceConfig{
		Name:   "words",
		Type:   "file",
		Path:   writeFile(t, "words.tsv", "hello\tworld\n"),
		Format: "tsv",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Add(context.Background(), def); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	value, found, err := Lookup(reg, "words", "hello")
	if err != nil || !found || value != "world" {
		t.Errorf("Lookup(hello) = %q, %v, %v", value, found, err)
	}

	_, found, err = Lookup(reg, "words", "absent")
	if err != nil || found {
		t.Errorf("Lookup(absent) found = %v, err = %v", found, err)
	}

	if _, _, err := Lookup(reg, "nope", "hello"); !errors.Is(err, registry.ErrNoSuchEntry) {
		t.Errorf("Lookup() on unknown entry error = %v", err)
	}

	if err := reg.Add(context.Background(), registry.Definition{
		Name: "raw",
		Load: func(context.Context, any) (any, error) { return 42, nil },
	}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Lookup(reg, "raw", "k"); err == nil {
		t.Error("Lookup() on a non-dictionary entry error = nil")
	}

	// Every borrow was released, so the entry can be deleted promptly.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := reg.Delete(ctx, "words"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestLookup_ReleaseWaitsForQueueSpace(t *testing.T) {
	reg := registry.New(4, registry.WithQueueCapacity(2), registry.WithEnqueueTimeout(0))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = reg.Shutdown(ctx)
	})

	def, err := NewDefinition(config.ResourceConfig{
		Name:   "words",
		Type:   "file",
		Path:   writeFile(t, "words.tsv", "hello\tworld\n"),
		Format: "tsv",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Add(context.Background(), def); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// Park the worker inside a load so nothing drains the entry queue.
	loading := make(chan struct{})
	unblock := make(chan struct{})
	added := make(chan error, 1)
	go func() {
		added <- reg.Add(context.Background(), registry.Definition{
			Name: "slow",
			Load: func(context.Context, any) (any, error) {
				close(loading)
				<-unblock
				return 1, nil
			},
		})
	}()
	<-loading

	held, err := reg.Borrow("words")
	if err != nil {
		t.Fatalf("Borrow() error = %v", err)
	}

	type result struct {
		value string
		found bool
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, found, err := Lookup(reg, "words", "hello")
		done <- result{value, found, err}
	}()

	select {
	case res := <-done:
		t.Fatalf("Lookup() = %+v before the queue had room for its release", res)
	case <-time.After(50 * time.Millisecond):
	}

	close(unblock)
	if err := <-added; err != nil {
		t.Fatalf("Add(slow) error = %v", err)
	}

	select {
	case res := <-done:
		if res.err != nil || !res.found || res.value != "world" {
			t.Errorf("Lookup() = %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Lookup() did not return after the worker resumed")
	}

	if err := reg.Release("words", held); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	// The lookup's reference was returned, so no borrow pins the entry.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := reg.Delete(ctx, "words"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestView(t *testing.T) {
	reg := registry.New(2)
	t.Cleanup(func() { _ = reg.Shutdown(context.Background()) })

	def, err := NewDefinition(config.ResourceConfig{
		Name:   "words",
		Type:   "file",
		Path:   writeFile(t, "words.tsv", "a\t1\nb\t2\n"),
		Format: "tsv",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Add(context.Background(), def); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	var (
		size int
		gen  uint64
	)
	if err := View(reg, "words", func(dict *Dictionary, generation uint64) {
		size, gen = dict.Len(), generation
	}); err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if size != 2 || gen != 1 {
		t.Errorf("View() saw %d entries at generation %d, want 2 at 1", size, gen)
	}

	if err := reg.Add(context.Background(), registry.Definition{
		Name: "raw",
		Load: func(context.Context, any) (any, error) { return "text", nil },
	}); err != nil {
		t.Fatal(err)
	}
	called := false
	err = View(reg, "raw", func(*Dictionary, uint64) { called = true })
	if !errors.Is(err, ErrNotDictionary) || called {
		t.Errorf("View(raw) error = %v, called = %v", err, called)
	}
}
