// Package config loads workspace configuration for the symbol-graph engine:
// workspace/external roots and the framework root name used for addon
// discovery (spec.md §6), plus the ambient logging knobs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the engine's workspace configuration.
type Config struct {
	// WorkspaceRoots are source trees treated as non-external.
	WorkspaceRoots []string `yaml:"workspace_roots"`

	// ExternalRoots are source trees scanned but whose diagnostics are
	// suppressed.
	ExternalRoots []string `yaml:"external_roots"`

	// FrameworkRootName is the qualified name treated as the framework root
	// for addon discovery (default matches the standard framework: "odoo").
	FrameworkRootName string `yaml:"framework_root_name"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		FrameworkRootName: "odoo",
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads configuration from path (expected at <workspace>/.odools/config.yaml).
// A missing file is not an error — Default() is returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromWorkspace is a convenience wrapper over Load for the conventional
// per-workspace config location.
func LoadFromWorkspace(workspaceRoot string) (*Config, error) {
	return Load(filepath.Join(workspaceRoot, ".odools", "config.yaml"))
}
