package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/nvandessel/promptedit/internal/batch"
	"github.com/nvandessel/promptedit/internal/prompt"
	"github.com/spf13/cobra"
)

func newCommonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "common [files...]",
		Short: "Show the tags shared by every prompt",
		Long: `Show the tags present in every prompt, matched by core.

Tags are listed in the order of the first prompt, in the form they have
there with weights and brackets removed. For image files the positive
and negative prompts are compared separately.

Examples:
  promptedit common *.png
  promptedit common --prompt "(cat:1.1), dog" --prompt "cat, bird"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompts, _ := cmd.Flags().GetStringArray("prompt")
			jsonOut, _ := cmd.Flags().GetBool("json")
			w := cmd.OutOrStdout()

			if len(prompts) > 0 {
				if len(args) > 0 {
					return fmt.Errorf("--prompt cannot be combined with files")
				}
				tags := prompt.FindCommonTags(prompts)
				if jsonOut {
					return writeJSON(w, tags)
				}
				for _, tag := range tags {
					fmt.Fprintln(w, tag)
				}
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("no files given: pass image files or use --prompt")
			}

			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, cancel := signalContext(cmdContext(cmd))
			defer cancel()

			jobs := e.cfg.Batch.Jobs
			if cmd.Flags().Changed("jobs") {
				jobs, _ = cmd.Flags().GetInt("jobs")
			}
			loader := batch.NewLoader(jobs)
			loader.SetLogger(e.logger)
			loaded, err := loader.Load(ctx, args)
			if err != nil {
				return fmt.Errorf("failed to load images: %w", err)
			}

			common := batch.CommonTags(loaded.Images)
			if jsonOut {
				return writeJSON(w, common)
			}
			fmt.Fprintf(w, "%d images\n", len(loaded.Images))
			printTagList(w, "positive", common.Positive)
			printTagList(w, "negative", common.Negative)
			return nil
		},
	}

	cmd.Flags().StringArray("prompt", nil, "Prompt to compare (repeatable)")
	cmd.Flags().Int("jobs", 0, "Files read concurrently (default from config, 0 = number of CPUs)")

	return cmd
}

func printTagList(w io.Writer, label string, tags []string) {
	if len(tags) == 0 {
		fmt.Fprintf(w, "%s: (none)\n", label)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", label, strings.Join(tags, prompt.Separator))
}
