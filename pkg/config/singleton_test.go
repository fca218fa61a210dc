package config

import (
	"os"
	"sync"
	"testing"
)

func resetGlobal() {
	configMutex.Lock()
	globalConfig = nil
	configPath = ""
	configMutex.Unlock()
	initOnce = sync.Once{}
}

func TestInitialize(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	path := writeConfig(t, sampleConfig)
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("GetConfig() = nil after Initialize")
	}
	if cfg.Registry.Capacity != 10 {
		t.Errorf("Registry.Capacity = %d, want 10", cfg.Registry.Capacity)
	}

	// A second Initialize is ignored.
	if err := Initialize(writeConfig(t, "registry:\n  capacity: 5\n")); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}
	if GetConfig() != cfg {
		t.Error("second Initialize() replaced the configuration")
	}
}

func TestInitialize_Error(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	if err := Initialize(writeConfig(t, "registry: [")); err == nil {
		t.Fatal("Initialize() error = nil, want parse error")
	}
	if GetConfig() != nil {
		t.Error("GetConfig() != nil after failed Initialize")
	}
}

func TestReload(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	if _, _, err := Reload(); err == nil {
		t.Error("Reload() before Initialize error = nil, want error")
	}

	path := writeConfig(t, sampleConfig)
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	first := GetConfig()

	updated := "resources:\n  - name: only\n    path: only.json\n"
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	prev, cur, err := Reload()
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if prev != first {
		t.Error("Reload() previous is not the initial configuration")
	}
	if GetConfig() != cur || len(cur.Resources) != 1 || cur.Resources[0].Format != "json" {
		t.Errorf("Reload() current = %+v", cur)
	}

	// A broken file leaves the current configuration in place.
	if err := os.WriteFile(path, []byte("registry: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Reload(); err == nil {
		t.Error("Reload() of broken file error = nil")
	}
	if GetConfig() != cur {
		t.Error("failed Reload() replaced the configuration")
	}
}

func TestMustGetConfig(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	defer func() {
		if recover() == nil {
			t.Error("MustGetConfig() did not panic before Initialize")
		}
	}()
	_ = MustGetConfig()
}

func TestSetConfig(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	cfg := NewDefaultConfig()
	SetConfig(cfg)
	if MustGetConfig() != cfg {
		t.Error("MustGetConfig() did not return the config set by SetConfig")
	}
}
