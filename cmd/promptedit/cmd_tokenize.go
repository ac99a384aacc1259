package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/nvandessel/promptedit/internal/prompt"
	"github.com/spf13/cobra"
)

func newTokenizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokenize [prompt]",
		Short: "Split a prompt into tags",
		Long: `Split a prompt into tags, one per line.

Commas and newlines only separate tags outside (), [] and <>. With no
argument, or with "-", the prompt is read from stdin.

Examples:
  promptedit tokenize "masterpiece, (red hair, blue eyes:1.2), <lora:x:0.8>"
  cat prompt.txt | promptedit tokenize --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := promptArg(cmd, args)
			if err != nil {
				return err
			}

			tags := prompt.Tokenize(text)

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), tags)
			}
			for _, tag := range tags {
				fmt.Fprintln(cmd.OutOrStdout(), tag)
			}
			return nil
		},
	}
}

// promptArg returns the single prompt argument, reading stdin when it is
// missing or "-".
func promptArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
