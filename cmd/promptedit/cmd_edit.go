package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/nvandessel/promptedit/internal/batch"
	"github.com/nvandessel/promptedit/internal/logging"
	"github.com/nvandessel/promptedit/internal/pngmeta"
	"github.com/nvandessel/promptedit/internal/prompt"
	"github.com/nvandessel/promptedit/internal/store"
	"github.com/spf13/cobra"
)

var (
	removedColor = color.New(color.FgRed)
	addedColor   = color.New(color.FgGreen)
	headerColor  = color.New(color.Bold)
)

// editOutput is the JSON shape of an edit run over files.
type editOutput struct {
	Results []batch.Result `json:"results"`
	Skipped []batch.Skip   `json:"skipped,omitempty"`
	Written []string       `json:"written,omitempty"`
}

// promptEditOutput is the JSON shape of an edit of a literal prompt.
type promptEditOutput struct {
	Original  string         `json:"original"`
	Result    string         `json:"result"`
	Diff      prompt.TagDiff `json:"diff"`
	HistoryID string         `json:"history_id,omitempty"`
}

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [files...]",
		Short: "Remove and add tags in prompts",
		Long: `Remove tags from prompts by core and append new tags.

Removal matches tags case-insensitively after stripping weights and
emphasis brackets, so --remove "red hair" also drops "(Red Hair:1.2)".
Additions are appended verbatim.

With --prompt a literal prompt is edited. Otherwise each file is read
(PNG images with Stable Diffusion parameters, or .txt files) and its
edited parameters are printed. Use --out to write edited copies.

Examples:
  promptedit edit --prompt "1girl, (red hair:1.2)" --remove "red hair" --add "blue hair"
  promptedit edit *.png --remove "watermark" --add-neg "lowres" --diff
  promptedit edit *.png --preset clean --out edited/`,
		RunE: runEdit,
	}

	cmd.Flags().String("remove", "", "Comma separated tags to remove from the positive prompt")
	cmd.Flags().String("add", "", "Text to append to the positive prompt")
	cmd.Flags().String("remove-neg", "", "Comma separated tags to remove from the negative prompt")
	cmd.Flags().String("add-neg", "", "Text to append to the negative prompt")
	cmd.Flags().String("preset", "", "Named preset from the config, applied before the other edit flags")
	cmd.Flags().String("prompt", "", "Edit this prompt instead of files")
	cmd.Flags().Bool("diff", false, "Show removed and added tags")
	cmd.Flags().Bool("no-history", false, "Do not record the edits in the history")
	cmd.Flags().Int("jobs", 0, "Files read concurrently (default from config, 0 = number of CPUs)")
	cmd.Flags().String("out", "", "Directory to write edited copies of the files to")

	return cmd
}

func runEdit(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	edits, err := editsFromFlags(cmd, e)
	if err != nil {
		return err
	}
	if edits.Empty() {
		return batch.ErrNoEdits
	}

	noHistory, _ := cmd.Flags().GetBool("no-history")
	history, err := e.openHistory(noHistory)
	if err != nil {
		return err
	}
	defer history.Close()

	if cmd.Flags().Changed("prompt") {
		if len(args) > 0 {
			return fmt.Errorf("--prompt cannot be combined with files")
		}
		if !edits.Negative.Empty() {
			return fmt.Errorf("--remove-neg and --add-neg need image files")
		}
		text, _ := cmd.Flags().GetString("prompt")
		return editPrompt(cmd, e, history, text, edits.Positive)
	}

	if len(args) == 0 {
		return fmt.Errorf("no files given: pass image files or use --prompt")
	}
	return editFiles(cmd, e, history, args, edits)
}

// editsFromFlags builds the edit set from the preset (if any) followed by
// the explicit flags.
func editsFromFlags(cmd *cobra.Command, e *env) (prompt.EditSet, error) {
	remove, _ := cmd.Flags().GetString("remove")
	add, _ := cmd.Flags().GetString("add")
	removeNeg, _ := cmd.Flags().GetString("remove-neg")
	addNeg, _ := cmd.Flags().GetString("add-neg")
	flags := prompt.EditSet{
		Positive: prompt.Edit{Remove: remove, Add: add},
		Negative: prompt.Edit{Remove: removeNeg, Add: addNeg},
	}

	name, _ := cmd.Flags().GetString("preset")
	if name == "" {
		return flags, nil
	}
	preset, err := e.cfg.Preset(name)
	if err != nil {
		return prompt.EditSet{}, err
	}
	e.logger.Debug("using preset", "name", name)
	return preset.Merge(flags), nil
}

func editPrompt(cmd *cobra.Command, e *env, history store.HistoryStore, text string, edit prompt.Edit) error {
	ctx := cmdContext(cmd)

	out := promptEditOutput{Original: text, Result: edit.Apply(text)}
	out.Diff = prompt.Diff(out.Original, out.Result)

	id, err := history.Record(ctx, store.HistoryEntry{
		Source:   "-",
		Side:     store.SidePrompt,
		Original: out.Original,
		Edited:   out.Result,
		Remove:   edit.Remove,
		Add:      edit.Add,
	})
	if err != nil {
		return fmt.Errorf("failed to record edit: %w", err)
	}
	out.HistoryID = id
	traceEdit(e, "-", store.SidePrompt, out.Original, out.Result, out.Diff)

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		return writeJSON(cmd.OutOrStdout(), out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, out.Result)
	if showDiff, _ := cmd.Flags().GetBool("diff"); showDiff {
		printDiff(w, "prompt", out.Diff)
	}
	return nil
}

func editFiles(cmd *cobra.Command, e *env, history store.HistoryStore, paths []string, edits prompt.EditSet) error {
	ctx, cancel := signalContext(cmdContext(cmd))
	defer cancel()

	jobs := e.cfg.Batch.Jobs
	if cmd.Flags().Changed("jobs") {
		jobs, _ = cmd.Flags().GetInt("jobs")
	}

	loader := batch.NewLoader(jobs)
	loader.SetLogger(e.logger)
	loaded, err := loader.Load(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to load images: %w", err)
	}
	if len(loaded.Images) == 0 {
		return fmt.Errorf("none of the %d files hold a Stable Diffusion prompt", len(paths))
	}

	results, err := batch.Preview(loaded.Images, edits)
	if err != nil {
		return err
	}

	// Resolve output names first so a collision fails before anything is
	// recorded or written.
	dir, _ := cmd.Flags().GetString("out")
	var dsts []string
	if dir != "" {
		if dsts, err = outputPaths(dir, results); err != nil {
			return err
		}
	}

	for _, r := range results {
		if err := recordResult(ctx, e, history, r, edits); err != nil {
			return err
		}
	}

	out := editOutput{Results: results, Skipped: loaded.Skipped}
	if dir != "" {
		out.Written, err = writeResults(dir, dsts, results)
		if err != nil {
			return err
		}
		e.logger.Info("wrote edited files", "dir", dir, "count", len(out.Written))
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		return writeJSON(cmd.OutOrStdout(), out)
	}

	w := cmd.OutOrStdout()
	showDiff, _ := cmd.Flags().GetBool("diff")
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		headerColor.Fprintf(w, "== %s ==\n", r.Image.Name)
		fmt.Fprintln(w, r.Infotext)
		if showDiff {
			printDiff(w, "positive", r.PositiveDiff)
			printDiff(w, "negative", r.NegativeDiff)
		}
	}
	for _, path := range out.Written {
		fmt.Fprintf(w, "wrote %s\n", path)
	}
	return nil
}

// recordResult stores one history entry per prompt side whose text changed.
func recordResult(ctx context.Context, e *env, history store.HistoryStore, r batch.Result, edits prompt.EditSet) error {
	sides := []struct {
		side             store.Side
		original, edited string
		edit             prompt.Edit
		diff             prompt.TagDiff
	}{
		{store.SidePositive, r.Image.Params.Positive, r.Positive, edits.Positive, r.PositiveDiff},
		{store.SideNegative, r.Image.Params.Negative, r.Negative, edits.Negative, r.NegativeDiff},
	}
	for _, s := range sides {
		if s.original == s.edited {
			continue
		}
		_, err := history.Record(ctx, store.HistoryEntry{
			Source:   r.Image.Path,
			Side:     s.side,
			Original: s.original,
			Edited:   s.edited,
			Remove:   s.edit.Remove,
			Add:      s.edit.Add,
		})
		if err != nil {
			return fmt.Errorf("failed to record edit of %s: %w", r.Image.Path, err)
		}
		traceEdit(e, r.Image.Path, s.side, s.original, s.edited, s.diff)
	}
	return nil
}

// outputPaths maps every result to its file in dir. Inputs from different
// directories that share a base name would overwrite each other, so that is
// an error. Names are compared case-insensitively for case-folding
// filesystems.
func outputPaths(dir string, results []batch.Result) ([]string, error) {
	seen := make(map[string]string, len(results))
	dsts := make([]string, 0, len(results))
	for _, r := range results {
		key := strings.ToLower(r.Image.Name)
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("--out: %s and %s would both be written to %s", prev, r.Image.Path, filepath.Join(dir, r.Image.Name))
		}
		seen[key] = r.Image.Path
		dsts = append(dsts, filepath.Join(dir, r.Image.Name))
	}
	return dsts, nil
}

// writeResults writes an edited copy of every result to the matching path
// in dsts. PNG files get a new parameters chunk; text files get the new
// infotext.
func writeResults(dir string, dsts []string, results []batch.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	written := make([]string, 0, len(results))
	for i, r := range results {
		dst := dsts[i]
		if strings.EqualFold(filepath.Ext(r.Image.Path), ".txt") {
			if err := os.WriteFile(dst, []byte(r.Infotext+"\n"), 0644); err != nil {
				return written, fmt.Errorf("failed to write %s: %w", dst, err)
			}
		} else if err := pngmeta.WriteFile(dst, r.Image.Path, r.Infotext); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", dst, err)
		}
		written = append(written, dst)
	}
	return written, nil
}

func traceEdit(e *env, source string, side store.Side, original, edited string, d prompt.TagDiff) {
	e.trace.LogEdit(logging.Edit{
		Source:   source,
		Side:     string(side),
		Removed:  d.Removed,
		Added:    d.Added,
		Original: original,
		Edited:   edited,
	})
	e.logger.Log(context.Background(), logging.LevelTrace, "edited prompt", "source", source, "side", side, "edited", edited)
}

func printDiff(w io.Writer, label string, d prompt.TagDiff) {
	if d.Empty() {
		return
	}
	fmt.Fprintf(w, "%s:\n", label)
	for _, tag := range d.Removed {
		removedColor.Fprintf(w, "  - %s\n", tag)
	}
	for _, tag := range d.Added {
		addedColor.Fprintf(w, "  + %s\n", tag)
	}
}
