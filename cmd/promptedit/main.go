package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/nvandessel/promptedit/internal/config"
	"github.com/nvandessel/promptedit/internal/logging"
	"github.com/nvandessel/promptedit/internal/store"
	"github.com/spf13/cobra"
)

// Set at build time via -ldflags.
var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "promptedit",
		Short: "Edit Stable Diffusion prompts tag by tag",
		Long: `promptedit splits Stable Diffusion prompts into tags, matches tags by
their core (ignoring weights and emphasis brackets), and removes or adds
tags across one prompt or a whole batch of generated images.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory (history and trace live in <root>/.promptedit)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newTokenizeCmd(),
		newCoreCmd(),
		newEditCmd(),
		newCommonCmd(),
		newHistoryCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

// env is the per-invocation state shared by commands.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	trace   *logging.EditTrace
	dataDir string
}

// loadEnv loads and validates the configuration and sets up logging.
// Callers must call Close.
func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	root, _ := cmd.Flags().GetString("root")
	dataDir := filepath.Join(root, config.DirName)

	return &env{
		cfg:     cfg,
		logger:  logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
		trace:   logging.NewEditTrace(dataDir, cfg.Logging.Level),
		dataDir: dataDir,
	}, nil
}

// openHistory opens the SQLite history store, or an in-memory one when
// history is disabled.
func (e *env) openHistory(disabled bool) (store.HistoryStore, error) {
	if disabled || !e.cfg.History.Enabled {
		e.logger.Debug("edit history disabled")
		return store.NewInMemoryHistoryStore(), nil
	}
	s, err := store.NewSQLiteHistoryStore(e.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	e.logger.Debug("opened edit history", "path", s.Path())
	return s, nil
}

func (e *env) Close() {
	e.trace.Close()
}

// cmdContext returns the command's context, or Background when it runs
// outside Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// signalContext returns a context cancelled on SIGINT (and SIGTERM where
// supported).
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, shutdownSignals...)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
