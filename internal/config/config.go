// Package config provides unified configuration loading for promptedit.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/nvandessel/promptedit/internal/prompt"
	"gopkg.in/yaml.v3"
)

// DirName is the name of promptedit's data directory, created under the
// user's home for config and under the project root for history.
const DirName = ".promptedit"

// FileName is the config file name inside DirName.
const FileName = "config.yaml"

// Config contains all promptedit configuration settings.
type Config struct {
	// Logging contains settings for operational logging and edit tracing.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Batch contains settings for loading many images at once.
	Batch BatchConfig `json:"batch" yaml:"batch"`

	// History contains settings for the edit history store.
	History HistoryConfig `json:"history" yaml:"history"`

	// Presets are named edit sets selectable with --preset.
	Presets map[string]prompt.EditSet `json:"presets,omitempty" yaml:"presets,omitempty"`
}

// LoggingConfig configures promptedit's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the edit trace at .promptedit/edits.jsonl.
	// "trace" additionally includes full prompt text in trace events.
	Level string `json:"level" yaml:"level"`
}

// BatchConfig configures batch image loading.
type BatchConfig struct {
	// Jobs is the number of files read concurrently. 0 means GOMAXPROCS.
	Jobs int `json:"jobs" yaml:"jobs"`
}

// HistoryConfig configures the edit history store.
type HistoryConfig struct {
	// Enabled records every edit in .promptedit/history.db under the project root.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Batch: BatchConfig{
			Jobs: 0,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// Path returns the default config file location, ~/.promptedit/config.yaml.
func Path() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName, FileName), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.promptedit/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	if configPath, err := Path(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Batch.Jobs < 0 {
		return fmt.Errorf("batch.jobs must be non-negative, got %d", c.Batch.Jobs)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	for name, preset := range c.Presets {
		if name == "" {
			return fmt.Errorf("preset with empty name")
		}
		if preset.Empty() {
			return fmt.Errorf("preset %q has no edits", name)
		}
	}

	return nil
}

// Preset returns the named preset.
func (c *Config) Preset(name string) (prompt.EditSet, error) {
	preset, ok := c.Presets[name]
	if !ok {
		return prompt.EditSet{}, fmt.Errorf("unknown preset %q (available: %v)", name, c.PresetNames())
	}
	return preset, nil
}

// PresetNames returns the configured preset names in sorted order.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PROMPTEDIT_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("PROMPTEDIT_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Batch.Jobs = n
		}
	}

	if v := os.Getenv("PROMPTEDIT_HISTORY"); v != "" {
		config.History.Enabled = v == "true" || v == "1"
	}
}
