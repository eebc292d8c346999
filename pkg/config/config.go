// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package config loads the service configuration of the orchestration
// server from a YAML file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	// ListenAddr is the address the HTTP API listener binds to.
	ListenAddr string `yaml:"listen_addr"`

	// DevMode relaxes backend resolution: jobs can target backends that
	// are not configured. Never enable it in production.
	DevMode bool `yaml:"dev_mode"`

	// DefaultBackend is the backend used by submissions that do not name
	// one.
	DefaultBackend string `yaml:"default_backend"`

	Backends []BackendConfig `yaml:"backends"`

	Storage StorageConfig `yaml:"storage"`

	Artifacts ArtifactsConfig `yaml:"artifacts"`

	// EventTimeout bounds how long an API request may wait for the server
	// event loop, e.g. "3s". Empty means the built-in default.
	EventTimeout string `yaml:"event_timeout,omitempty"`

	MachineTypes []MachineTypeConfig `yaml:"machine_types,omitempty"`

	Applications []ApplicationConfig `yaml:"applications"`
}

// BackendConfig declares a compute backend the server accepts callbacks
// from.
type BackendConfig struct {
	Name string `yaml:"name"`

	// Trusted marks backends allowed to push result artifacts.
	Trusted bool `yaml:"trusted,omitempty"`
}

// StorageConfig selects and configures the storage engine.
type StorageConfig struct {
	// Engine is either "memory" or "rdbms".
	Engine string `yaml:"engine"`

	// DBURI is the database connection string, required for the rdbms
	// engine.
	DBURI string `yaml:"dburi,omitempty"`
}

// ArtifactsConfig configures where result artifacts submitted by backends
// are stored.
type ArtifactsConfig struct {
	Directory string `yaml:"directory"`
}

// MachineTypeConfig is a machine reservation class offered to users.
type MachineTypeConfig struct {
	Name     string `yaml:"name"`
	Cores    int    `yaml:"cores"`
	MemoryGB int    `yaml:"memory_gb"`
	GPUs     int    `yaml:"gpus,omitempty"`
}

// ApplicationConfig is one entry of the static application catalog.
type ApplicationConfig struct {
	Name       string   `yaml:"name"`
	Version    string   `yaml:"version"`
	Invocation []string `yaml:"invocation"`
}

// Load reads, parses and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates raw YAML configuration data. Unknown fields
// are rejected so that a typo cannot silently disable a setting.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8000"
	}
	if cfg.Storage.Engine == "" {
		cfg.Storage.Engine = "memory"
	}
	if cfg.DefaultBackend == "" && len(cfg.Backends) == 1 {
		cfg.DefaultBackend = cfg.Backends[0].Name
	}
}

func (cfg *Config) validate() error {
	if len(cfg.Backends) == 0 && !cfg.DevMode {
		return fmt.Errorf("at least one backend must be configured")
	}
	seen := make(map[string]bool)
	for _, b := range cfg.Backends {
		if b.Name == "" {
			return fmt.Errorf("backend name cannot be empty")
		}
		if seen[b.Name] {
			return fmt.Errorf("backend %q is configured twice", b.Name)
		}
		seen[b.Name] = true
	}
	if cfg.DefaultBackend != "" && !seen[cfg.DefaultBackend] && !cfg.DevMode {
		return fmt.Errorf("default backend %q is not configured", cfg.DefaultBackend)
	}
	switch cfg.Storage.Engine {
	case "memory":
	case "rdbms":
		if cfg.Storage.DBURI == "" {
			return fmt.Errorf("storage engine rdbms requires a dburi")
		}
	default:
		return fmt.Errorf("unknown storage engine %q", cfg.Storage.Engine)
	}
	if cfg.EventTimeout != "" {
		if _, err := time.ParseDuration(cfg.EventTimeout); err != nil {
			return fmt.Errorf("invalid event_timeout: %w", err)
		}
	}
	for _, mt := range cfg.MachineTypes {
		if mt.Name == "" {
			return fmt.Errorf("machine type name cannot be empty")
		}
		if mt.Cores <= 0 || mt.MemoryGB <= 0 {
			return fmt.Errorf("machine type %q must have positive cores and memory", mt.Name)
		}
	}
	for _, app := range cfg.Applications {
		if app.Name == "" || app.Version == "" {
			return fmt.Errorf("application entries must have a name and a version")
		}
		if len(app.Invocation) == 0 {
			return fmt.Errorf("application %s@%s has an empty invocation", app.Name, app.Version)
		}
	}
	return nil
}

// ParsedEventTimeout returns the configured event timeout, or ok == false
// when the default should be used.
func (cfg *Config) ParsedEventTimeout() (time.Duration, bool) {
	if cfg.EventTimeout == "" {
		return 0, false
	}
	d, err := time.ParseDuration(cfg.EventTimeout)
	if err != nil {
		return 0, false
	}
	return d, true
}
