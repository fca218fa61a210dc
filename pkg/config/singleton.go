package config

import (
	"fmt"
	"sync"
)

var (
	// globalConfig holds the singleton configuration instance.
	globalConfig *Config

	// configMutex protects access to globalConfig and configPath.
	configMutex sync.RWMutex

	// configPath is the file Initialize loaded, reused by Reload.
	configPath string

	// initOnce ensures configuration is initialized only once.
	initOnce sync.Once
)

// Initialize loads configuration from the specified path with environment
// variable overrides and stores it as the global singleton configuration.
// Subsequent calls are ignored.
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}

		configMutex.Lock()
		globalConfig = cfg
		configPath = path
		configMutex.Unlock()
	})

	return initErr
}

// GetConfig returns the global configuration instance, or nil if Initialize
// has not been called successfully.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig sets the global configuration instance. Intended for tests.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// Reload re-reads the file passed to Initialize. The new configuration
// replaces the global instance only if loading and validation succeed; the
// previous instance is returned alongside it so callers can reconcile the
// difference.
func Reload() (previous, current *Config, err error) {
	configMutex.RLock()
	path := configPath
	configMutex.RUnlock()

	if path == "" {
		return nil, nil, fmt.Errorf("failed to reload configuration: not initialized from a file")
	}

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload configuration: %w", err)
	}

	configMutex.Lock()
	previous = globalConfig
	globalConfig = cfg
	configMutex.Unlock()

	return previous, cfg, nil
}

// MustGetConfig returns the global configuration instance.
// It panics if the configuration has not been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
