// Package config loads planforge configuration from
// <workspace>/.planforge/config.yaml, falling back to sensible defaults when
// the file is absent.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all planforge configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Session store configuration
	Store StoreConfig `yaml:"store"`

	// Sync planner/applier configuration
	Sync SyncConfig `yaml:"sync"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the SQLite session store.
type StoreConfig struct {
	// DatabasePath is relative to the workspace unless absolute.
	DatabasePath string `yaml:"database_path"`
}

// SyncConfig configures plan computation.
type SyncConfig struct {
	// SyncRework includes rework-status sections in sync plans alongside
	// approved/rejected ones. Off by default: a reworked section is expected
	// to be re-approved before it syncs.
	SyncRework bool `yaml:"sync_rework"`
}

// LoggingConfig configures the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "planforge",
		Version: "0.3.0",

		Store: StoreConfig{
			DatabasePath: filepath.Join(".planforge", "sessions.db"),
		},

		Sync: SyncConfig{
			SyncRework: false,
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load loads configuration from a YAML file.
// Returns defaults if the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// LoadFromWorkspace loads the config from <workspace>/.planforge/config.yaml.
func LoadFromWorkspace(workspace string) (*Config, error) {
	return Load(filepath.Join(workspace, ".planforge", "config.yaml"))
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DatabasePath resolves the session store path against the workspace.
func (c *Config) DatabasePath(workspace string) string {
	if filepath.IsAbs(c.Store.DatabasePath) {
		return c.Store.DatabasePath
	}
	return filepath.Join(workspace, c.Store.DatabasePath)
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PLANFORGE_DB_PATH"); v != "" {
		c.Store.DatabasePath = v
	}
	if v := os.Getenv("PLANFORGE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if os.Getenv("PLANFORGE_DEBUG") == "1" {
		c.Logging.DebugMode = true
	}
}
