// Package mcp provides an MCP (Model Context Protocol) server exposing the
// promptedit prompt tools.
package mcp

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/promptedit/internal/config"
	"github.com/nvandessel/promptedit/internal/logging"
	"github.com/nvandessel/promptedit/internal/ratelimit"
	"github.com/nvandessel/promptedit/internal/store"
)

// Server wraps the MCP SDK server and provides promptedit-specific functionality.
type Server struct {
	server       *sdk.Server
	cfg          *config.Config
	history      store.HistoryStore
	trace        *logging.EditTrace
	logger       *slog.Logger
	toolLimiters ratelimit.ToolLimiters
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "promptedit")
	Version string // Server version

	// Settings supplies presets. Defaults are used when nil.
	Settings *config.Config

	// History receives one entry per prompt_apply_edits call.
	// An in-memory store is used when nil.
	History store.HistoryStore

	// Trace records every tool call. May be nil.
	Trace *logging.EditTrace

	Logger *slog.Logger
}

// NewServer creates a new MCP server with the prompt tools registered.
func NewServer(cfg *Config) (*Server, error) {
	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			// Client initialized, ready to serve
		},
	})

	s := &Server{
		server:       mcpServer,
		cfg:          cfg.Settings,
		history:      cfg.History,
		trace:        cfg.Trace,
		logger:       cfg.Logger,
		toolLimiters: ratelimit.NewToolLimiters(),
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	if s.history == nil {
		s.history = store.NewInMemoryHistoryStore()
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, shutdownSignals...)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			s.logger.Info("shutting down MCP server")
			cancel()
		case <-ctx.Done():
		}
	}()

	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// Close releases the history store.
func (s *Server) Close() error {
	return s.history.Close()
}
