package main

import (
	"fmt"

	"github.com/nvandessel/promptedit/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Run a Model Context Protocol server over stdin/stdout.

Tools: prompt_tokenize, prompt_extract_core, prompt_apply_edits,
prompt_common_tags, prompt_diff, prompt_parse_infotext.
Resource: promptedit://presets

Edits made through prompt_apply_edits are recorded in the history of
--root unless history is disabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			noHistory, _ := cmd.Flags().GetBool("no-history")
			history, err := e.openHistory(noHistory)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "promptedit",
				Version:  version,
				Settings: e.cfg,
				History:  history,
				Trace:    e.trace,
				Logger:   e.logger,
			})
			if err != nil {
				history.Close()
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			e.logger.Info("MCP server listening on stdio", "version", version)
			return server.Run(cmdContext(cmd))
		},
	}

	cmd.Flags().Bool("no-history", false, "Do not record edits in the history")

	return cmd
}
