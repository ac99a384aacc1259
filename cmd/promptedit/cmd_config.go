package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/promptedit/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage promptedit configuration",
		Long: `View and modify promptedit configuration settings.

Configuration is stored in ~/.promptedit/config.yaml. Presets are edited
in that file directly:

  presets:
    clean:
      positive:
        remove: watermark, signature
        add: masterpiece
      negative:
        add: lowres, bad hands

Examples:
  promptedit config list                  # Show all settings
  promptedit config get batch.jobs        # Get a specific setting
  promptedit config get presets.clean     # Show one preset
  promptedit config set logging.level debug
  promptedit config path                  # Print the config file location`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
		newConfigPathCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Configuration (~/.promptedit/config.yaml):")
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  logging.level:    %s\n", valueOrDefault(cfg.Logging.Level, "info"))
			fmt.Fprintf(w, "  batch.jobs:       %d\n", cfg.Batch.Jobs)
			fmt.Fprintf(w, "  history.enabled:  %v\n", cfg.History.Enabled)
			fmt.Fprintln(w)
			names := cfg.PresetNames()
			if len(names) == 0 {
				fmt.Fprintln(w, "Presets: (none)")
				return nil
			}
			fmt.Fprintln(w, "Presets:")
			for _, name := range names {
				fmt.Fprintf(w, "  %s\n", name)
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"key":   key,
					"value": value,
				})
			}

			if !strings.HasPrefix(key, "presets") {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
				return nil
			}
			// Presets are structured; print them the way they are written in the file.
			data, err := yaml.Marshal(value)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", key, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			path, err := config.Path()
			if err != nil {
				return err
			}
			// Start from the file alone so environment overrides are not persisted.
			cfg := config.Default()
			if _, statErr := os.Stat(path); statErr == nil {
				if cfg, err = config.LoadFromFile(path); err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := saveConfig(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (any, bool) {
	switch key {
	case "logging.level":
		return valueOrDefault(cfg.Logging.Level, "info"), true
	case "batch.jobs":
		return cfg.Batch.Jobs, true
	case "history.enabled":
		return cfg.History.Enabled, true
	case "presets":
		return cfg.Presets, true
	}
	if name, ok := strings.CutPrefix(key, "presets."); ok {
		preset, found := cfg.Presets[name]
		return preset, found
	}
	return nil, false
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "logging.level":
		cfg.Logging.Level = value
	case "batch.jobs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid jobs: %s (must be an integer)", value)
		}
		cfg.Batch.Jobs = n
	case "history.enabled":
		cfg.History.Enabled = value == "true" || value == "1"
	default:
		return fmt.Errorf("unknown or read-only configuration key: %s", key)
	}
	return nil
}

// saveConfig writes the configuration to path.
func saveConfig(cfg *config.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
