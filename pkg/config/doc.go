// Package config provides configuration management for dyndict.
//
// Configuration is read from a YAML file, completed with defaults, optionally
// overridden from the environment, and validated as a whole.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("dyndict.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("dyndict.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention DYNDICT_SECTION_FIELD:
//
//   - DYNDICT_REGISTRY_CAPACITY overrides registry.capacity
//   - DYNDICT_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - DYNDICT_RESOURCES_STOPWORDS_PATH overrides the path of resource "stopwords"
//
// # Singleton
//
// The CLI keeps the loaded configuration in a process-wide singleton:
//
//	if err := config.Initialize("dyndict.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// Reload re-reads the same file and returns both the previous and the new
// configuration, which the run command uses to add and remove resources on
// SIGHUP.
//
// # Example Configuration
//
//	registry:
//	  capacity: 100
//
//	resources:
//	  - name: stopwords
//	    path: /etc/dyndict/stopwords.tsv
//	    interval: 5m
//	    watch: true
//	  - name: synonyms
//	    type: sqlite
//	    path: /var/lib/dyndict/synonyms.db
//	    table: synonyms
//	    schedule: "0 * * * *"
//
//	telemetry:
//	  logging:
//	    level: info
//	  metrics:
//	    enabled: true
package config
