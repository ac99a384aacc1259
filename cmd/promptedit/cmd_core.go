package main

import (
	"fmt"

	"github.com/nvandessel/promptedit/internal/prompt"
	"github.com/spf13/cobra"
)

type coreResult struct {
	Tag  string `json:"tag"`
	Core string `json:"core"`
	Key  string `json:"key"`
}

func newCoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "core <tag>...",
		Short: "Show the core of each tag",
		Long: `Show the core of each tag: the tag with weights and emphasis brackets
removed. Tags that compare equal share the same key (the lowercased core).

Examples:
  promptedit core "((masterpiece:1.2):0.9)" "[Blue Eyes]"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]coreResult, 0, len(args))
			for _, tag := range args {
				results = append(results, coreResult{
					Tag:  tag,
					Core: prompt.ExtractCore(tag),
					Key:  prompt.Key(tag),
				})
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.Tag, r.Core)
			}
			return nil
		},
	}
}
