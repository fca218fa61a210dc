package config

import (
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Registry.Capacity != DefaultRegistryCapacity {
		t.Errorf("Registry.Capacity = %d, want %d", cfg.Registry.Capacity, DefaultRegistryCapacity)
	}
	if cfg.Registry.EnqueueTimeout != 100*time.Millisecond {
		t.Errorf("Registry.EnqueueTimeout = %v, want 100ms", cfg.Registry.EnqueueTimeout)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("Server.ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Telemetry.Logging.Level != "info" || cfg.Telemetry.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Telemetry.Logging)
	}
	if cfg.Telemetry.Health.LivenessPath != "/health" {
		t.Errorf("Health.LivenessPath = %q", cfg.Telemetry.Health.LivenessPath)
	}
	if len(cfg.Telemetry.Metrics.LoadDurationBuckets) != len(DefaultLoadDurationBuckets) {
		t.Errorf("LoadDurationBuckets = %v", cfg.Telemetry.Metrics.LoadDurationBuckets)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate(NewDefaultConfig()) error = %v", err)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Registry: RegistryConfig{Capacity: 7},
		Server:   ServerConfig{ListenAddress: ":1234"},
	}
	ApplyDefaults(cfg)

	if cfg.Registry.Capacity != 7 {
		t.Errorf("Registry.Capacity = %d, want 7", cfg.Registry.Capacity)
	}
	if cfg.Server.ListenAddress != ":1234" {
		t.Errorf("Server.ListenAddress = %q", cfg.Server.ListenAddress)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"words.tsv":    "tsv",
		"words.txt":    "tsv",
		"labels.YAML":  "yaml",
		"labels.yml":   "yaml",
		"map.json":     "json",
		"no-extension": "tsv",
	}
	for path, want := range tests {
		if got := formatFromPath(path); got != want {
			t.Errorf("formatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
