// Package config loads simula.yaml and exposes the runtime switches the
// engine consults on every statement.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/elvis2workspace/pg-simula/internal/model"
)

// Config holds all configurable parameters.
type Config struct {
	// Enabled turns fault injection on. Off by default: rules may sit in
	// storage without firing.
	Enabled bool `yaml:"enabled"`
	// RefuseConnections makes the gate reject every new session.
	RefuseConnections bool `yaml:"refuse_connections"`
	// MaxNameLength bounds operation/action names loaded from storage.
	MaxNameLength int `yaml:"max_name_length"`
	// Database is the path to the sqlite database file.
	Database string `yaml:"database"`
}

// Default returns the built-in configuration: both switches off.
func Default() *Config {
	return &Config{
		Enabled:           false,
		RefuseConnections: false,
		MaxNameLength:     model.MaxNameLength,
		Database:          DefaultDatabase(),
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "simula", "simula.yaml")
	}
	return filepath.Join(home, ".simula", "simula.yaml")
}

// DefaultDatabase returns the default database location.
func DefaultDatabase() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "simula", "simula.db")
	}
	return filepath.Join(home, ".simula", "simula.db")
}

// Load reads configuration from a YAML file. Empty path falls back to
// DefaultPath. Missing file returns defaults. Invalid YAML is an error.
// The file overlays defaults, so partial configs are fine.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.MaxNameLength <= 0 {
		cfg.MaxNameLength = model.MaxNameLength
	}
	return cfg, nil
}

// Runtime holds the two boolean switches behind atomics so a config
// watcher can flip them while sessions are processing statements.
// MaxNameLength is fixed at construction.
type Runtime struct {
	enabled       atomic.Bool
	refuse        atomic.Bool
	MaxNameLength int
}

// NewRuntime derives the runtime switches from a loaded Config.
func NewRuntime(cfg *Config) *Runtime {
	rt := &Runtime{MaxNameLength: cfg.MaxNameLength}
	rt.Apply(cfg)
	return rt
}

// Apply flips both switches to the values in cfg.
func (rt *Runtime) Apply(cfg *Config) {
	rt.enabled.Store(cfg.Enabled)
	rt.refuse.Store(cfg.RefuseConnections)
}

// Enabled reports whether fault injection is on.
func (rt *Runtime) Enabled() bool { return rt.enabled.Load() }

// SetEnabled flips the fault-injection switch.
func (rt *Runtime) SetEnabled(v bool) { rt.enabled.Store(v) }

// RefuseConnections reports whether new sessions are being refused.
func (rt *Runtime) RefuseConnections() bool { return rt.refuse.Load() }

// SetRefuseConnections flips the connection-refusal switch.
func (rt *Runtime) SetRefuseConnections(v bool) { rt.refuse.Store(v) }
