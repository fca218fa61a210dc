package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dyndict.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

const sampleConfig = `
registry:
  capacity: 10
  enqueue_timeout: 250ms

resources:
  - name: stopwords
    path: /etc/dyndict/stopwords.tsv
    interval: 5m
    watch: true
  - name: synonyms
    type: sqlite
    path: /var/lib/dyndict/synonyms.db
    table: synonyms
    schedule: "0 * * * *"
  - name: labels
    path: /etc/dyndict/labels.yml

server:
  listen_address: "0.0.0.0:9191"

telemetry:
  logging:
    level: debug
    format: text
  metrics:
    enabled: true
`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Registry.Capacity != 10 {
		t.Errorf("Registry.Capacity = %d, want 10", cfg.Registry.Capacity)
	}
	if cfg.Registry.EnqueueTimeout != 250*time.Millisecond {
		t.Errorf("Registry.EnqueueTimeout = %v, want 250ms", cfg.Registry.EnqueueTimeout)
	}
	if cfg.Registry.QueueCapacity != DefaultRegistryQueueCapacity {
		t.Errorf("Registry.QueueCapacity = %d, want default", cfg.Registry.QueueCapacity)
	}

	if len(cfg.Resources) != 3 {
		t.Fatalf("len(Resources) = %d, want 3", len(cfg.Resources))
	}

	stop := cfg.Resources[0]
	if stop.Type != "file" || stop.Format != "tsv" || !stop.Watch || stop.Interval != 5*time.Minute {
		t.Errorf("Resources[0] = %+v", stop)
	}
	if stop.MaxSize != DefaultResourceMaxSize {
		t.Errorf("Resources[0].MaxSize = %d, want default", stop.MaxSize)
	}

	syn := cfg.Resources[1]
	if syn.Type != "sqlite" || syn.KeyColumn != "key" || syn.ValueColumn != "value" {
		t.Errorf("Resources[1] = %+v", syn)
	}

	if cfg.Resources[2].Format != "yaml" {
		t.Errorf("Resources[2].Format = %q, want yaml from extension", cfg.Resources[2].Format)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9191" {
		t.Errorf("Server.ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Telemetry.Logging)
	}
	if !cfg.Telemetry.Metrics.Enabled || cfg.Telemetry.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v", cfg.Telemetry.Metrics)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			content: "registry: [",
			wantErr: "failed to parse configuration file",
		},
		{
			name: "validation failure",
			content: `
resources:
  - name: a
    type: redis
    path: x
`,
			wantErr: "resources[0].type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("LoadConfig() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		if err == nil || !strings.Contains(err.Error(), "failed to read configuration file") {
			t.Errorf("LoadConfig() error = %v", err)
		}
	})
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Setenv("DYNDICT_REGISTRY_CAPACITY", "42")
	t.Setenv("DYNDICT_REGISTRY_ENQUEUE_TIMEOUT", "1s")
	t.Setenv("DYNDICT_SERVER_LISTEN_ADDRESS", "127.0.0.1:7000")
	t.Setenv("DYNDICT_TELEMETRY_LOGGING_LEVEL", "warn")
	t.Setenv("DYNDICT_TELEMETRY_METRICS_ENABLED", "false")
	t.Setenv("DYNDICT_RESOURCES_STOPWORDS_PATH", "/tmp/other.tsv")
	t.Setenv("DYNDICT_RESOURCES_STOPWORDS_INTERVAL", "not-a-duration")
	t.Setenv("DYNDICT_RESOURCES_SYNONYMS_TABLE", "syn_v2")

	cfg, err := LoadConfigWithEnvOverrides(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Registry.Capacity != 42 {
		t.Errorf("Registry.Capacity = %d, want 42", cfg.Registry.Capacity)
	}
	if cfg.Registry.EnqueueTimeout != time.Second {
		t.Errorf("Registry.EnqueueTimeout = %v, want 1s", cfg.Registry.EnqueueTimeout)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:7000" {
		t.Errorf("Server.ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
	if cfg.Resources[0].Path != "/tmp/other.tsv" {
		t.Errorf("Resources[0].Path = %q", cfg.Resources[0].Path)
	}
	if cfg.Resources[0].Interval != 5*time.Minute {
		t.Errorf("Resources[0].Interval = %v, want unparseable override ignored", cfg.Resources[0].Interval)
	}
	if cfg.Resources[1].Table != "syn_v2" {
		t.Errorf("Resources[1].Table = %q", cfg.Resources[1].Table)
	}
}

func TestLoadConfigWithEnvOverrides_Revalidates(t *testing.T) {
	t.Setenv("DYNDICT_TELEMETRY_LOGGING_LEVEL", "verbose")

	_, err := LoadConfigWithEnvOverrides(writeConfig(t, sampleConfig))
	if err == nil || !strings.Contains(err.Error(), "after environment overrides") {
		t.Errorf("LoadConfigWithEnvOverrides() error = %v", err)
	}
}

func TestEnvName(t *testing.T) {
	tests := map[string]string{
		"stopwords":   "STOPWORDS",
		"geo-ip.v4":   "GEO_IP_V4",
		"Mixed_Case9": "MIXED_CASE9",
	}
	for in, want := range tests {
		if got := envName(in); got != want {
			t.Errorf("envName(%q) = %q, want %q", in, got, want)
		}
	}
}
