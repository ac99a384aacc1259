package main

import (
	"fmt"

	"github.com/nvandessel/promptedit/internal/backup"
	"github.com/nvandessel/promptedit/internal/prompt"
	"github.com/nvandessel/promptedit/internal/store"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show, clear, export or import the edit history",
		Long: `Show or manage the edits recorded by "promptedit edit".

History is stored in <root>/.promptedit/history.db. Archives written by
"history export" and by "history clear" are kept in
<root>/.promptedit/backups/.`,
	}

	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryClearCmd(),
		newHistoryExportCmd(),
		newHistoryImportCmd(),
	)

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded edits, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			source, _ := cmd.Flags().GetString("source")
			sideName, _ := cmd.Flags().GetString("side")
			limit, _ := cmd.Flags().GetInt("limit")
			side, err := store.ParseSide(sideName)
			if err != nil {
				return err
			}

			s, err := store.NewSQLiteHistoryStore(e.dataDir)
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer s.Close()

			ctx := cmdContext(cmd)
			entries, err := s.List(ctx, store.Filter{Source: source, Side: side, Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to list history: %w", err)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), entries)
			}

			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(w, "No edits recorded.")
				return nil
			}
			showDiff, _ := cmd.Flags().GetBool("diff")
			for _, entry := range entries {
				fmt.Fprintf(w, "%s  %s  %s [%s]\n", entry.CreatedAt.Local().Format("2006-01-02 15:04:05"), entry.ID[:min(8, len(entry.ID))], entry.Source, entry.Side)
				if showDiff {
					printDiff(w, "  tags", prompt.Diff(entry.Original, entry.Edited))
				} else {
					fmt.Fprintf(w, "  %s\n", entry.Edited)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("source", "", "Only show edits of this file")
	cmd.Flags().String("side", "", "Only show edits of this side: positive, negative or prompt")
	cmd.Flags().Int("limit", 20, "Maximum number of edits to show (0 = all)")
	cmd.Flags().Bool("diff", false, "Show removed and added tags instead of the edited prompt")

	return cmd
}

// keepArchives is how many archives "history clear" leaves in the backup
// directory.
const keepArchives = 10

func newHistoryClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded edits",
		Long: `Delete all recorded edits.

The history is exported to the backup directory first unless --no-backup
is given. Only the newest 10 archives are kept there.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			s, err := store.NewSQLiteHistoryStore(e.dataDir)
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer s.Close()

			ctx := cmdContext(cmd)
			var archive string
			if noBackup, _ := cmd.Flags().GetBool("no-backup"); !noBackup {
				dir := backup.DefaultDir(e.dataDir)
				archive = backup.GeneratePath(dir)
				if _, err := backup.Export(ctx, s, archive); err != nil {
					return fmt.Errorf("failed to back up history: %w", err)
				}
				deleted, err := backup.Rotate(dir, keepArchives)
				if err != nil {
					e.logger.Warn("failed to rotate history archives", "dir", dir, "error", err)
				}
				e.logger.Debug("backed up history", "path", archive, "rotated", len(deleted))
			}

			n, err := s.Clear(ctx)
			if err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"deleted": n, "backup": archive})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d edits.\n", n)
			if archive != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Backup: %s\n", archive)
			}
			return nil
		},
	}

	cmd.Flags().Bool("no-backup", false, "Do not export the history before clearing it")

	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export the edit history to a compressed archive",
		Long: `Export every recorded edit to a gzip-compressed archive with a
checksummed header. Without a file argument the archive is written to the
backup directory under a timestamped name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			s, err := store.NewSQLiteHistoryStore(e.dataDir)
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer s.Close()

			path := backup.GeneratePath(backup.DefaultDir(e.dataDir))
			if len(args) > 0 {
				path = args[0]
			}

			a, err := backup.Export(cmdContext(cmd), s, path)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"path": path, "entries": len(a.Entries)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d edits to %s\n", len(a.Entries), path)
			return nil
		},
	}
}

func newHistoryImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import edits from an archive",
		Long: `Import edits from an archive written by "history export".

In merge mode (the default) edits whose ID is already recorded are
skipped. In replace mode the history is cleared first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			modeName, _ := cmd.Flags().GetString("mode")
			mode, err := backup.ParseImportMode(modeName)
			if err != nil {
				return err
			}

			s, err := store.NewSQLiteHistoryStore(e.dataDir)
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer s.Close()

			result, err := backup.Import(cmdContext(cmd), s, args[0], mode)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d edits, skipped %d.\n", result.Imported, result.Skipped)
			return nil
		},
	}

	cmd.Flags().String("mode", string(backup.ImportMerge), "Import mode: merge or replace")

	return cmd
}
