// Package backup exports the edit history to a compressed archive and
// imports it back.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nvandessel/promptedit/internal/store"
)

// Archive is the payload of a history archive.
type Archive struct {
	Version   int                  `json:"version"`
	CreatedAt time.Time            `json:"created_at"`
	Entries   []store.HistoryEntry `json:"entries"`
}

// Export writes every history entry to outputPath.
func Export(ctx context.Context, history store.HistoryStore, outputPath string) (*Archive, error) {
	entries, err := history.List(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	a := &Archive{
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
		Entries:   entries,
	}
	if err := Write(outputPath, a); err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}
	return a, nil
}

// ImportMode controls how Import handles existing history.
type ImportMode string

const (
	// ImportMerge skips entries whose ID is already recorded (default).
	ImportMerge ImportMode = "merge"
	// ImportReplace clears the history before importing.
	ImportReplace ImportMode = "replace"
)

// ParseImportMode validates a mode name. The empty string means merge.
func ParseImportMode(s string) (ImportMode, error) {
	switch mode := ImportMode(s); mode {
	case "", ImportMerge:
		return ImportMerge, nil
	case ImportReplace:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid import mode %q: must be merge or replace", s)
	}
}

// ImportResult counts what an import did.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Cleared  int `json:"cleared,omitempty"`
}

// Import records the entries of the archive at inputPath into history.
func Import(ctx context.Context, history store.HistoryStore, inputPath string, mode ImportMode) (*ImportResult, error) {
	a, err := Read(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	result := &ImportResult{}
	seen := make(map[string]bool)

	switch mode {
	case ImportReplace:
		if result.Cleared, err = history.Clear(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear history: %w", err)
		}
	default:
		existing, err := history.List(ctx, store.Filter{})
		if err != nil {
			return nil, fmt.Errorf("failed to list history: %w", err)
		}
		for _, e := range existing {
			seen[e.ID] = true
		}
	}

	for _, entry := range a.Entries {
		if entry.ID != "" && seen[entry.ID] {
			result.Skipped++
			continue
		}
		if _, err := history.Record(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to import edit %s: %w", entry.ID, err)
		}
		seen[entry.ID] = true
		result.Imported++
	}
	return result, nil
}

// ArchiveExt is the file extension of history archives.
const ArchiveExt = ".history.gz"

// DefaultDir returns the archive directory under a data directory.
func DefaultDir(dataDir string) string {
	return filepath.Join(dataDir, "backups")
}

// GeneratePath creates a timestamped archive filename in dir.
func GeneratePath(dir string) string {
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, "promptedit-"+ts+ArchiveExt)
}

// Rotate keeps only the most recent keepN archives in dir, deleting older
// ones. It returns the deleted paths.
func Rotate(dir string, keepN int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ArchiveExt) {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keepN {
		return nil, nil
	}

	// Newest first since the timestamp is in the name.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var deleted []string
	for _, name := range names[keepN:] {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			return deleted, fmt.Errorf("failed to remove old backup %s: %w", name, err)
		}
		deleted = append(deleted, path)
	}
	return deleted, nil
}
