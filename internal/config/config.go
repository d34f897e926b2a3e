package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "graphlite.yaml"

// Config holds all graphlite configuration.
type Config struct {
	// Database settings
	Database DatabaseConfig `yaml:"database"`

	// Native extension settings
	Extension ExtensionConfig `yaml:"extension"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DatabaseConfig configures the embedded database handle.
type DatabaseConfig struct {
	// Path to the database file; ":memory:" opens an in-memory instance.
	Path string `yaml:"path"`
}

// ExtensionConfig configures graph extension loading.
type ExtensionConfig struct {
	// Path to the extension library. Empty means resolve from the
	// GRAPHLITE_EXTENSION_PATH environment variable, then the conventional
	// search directories.
	Path string `yaml:"path"`

	// Load gates extension loading entirely. Defaults to true.
	Load bool `yaml:"load"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "data/graphlite.db",
		},
		Extension: ExtensionConfig{
			Load: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, layered over the defaults.
// A missing file returns the defaults.
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

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("GRAPHLITE_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if path := os.Getenv("GRAPHLITE_EXTENSION_PATH"); path != "" {
		c.Extension.Path = path
	}
	if level := os.Getenv("GRAPHLITE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}
