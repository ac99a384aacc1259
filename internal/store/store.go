// Package store defines the HistoryStore interface for recording prompt
// edits and querying them later.
package store

import (
	"context"
	"fmt"
	"time"
)

// Side names which prompt of an image an edit applied to.
type Side string

const (
	SidePositive Side = "positive" // Positive prompt
	SideNegative Side = "negative" // Negative prompt
	SidePrompt   Side = "prompt"   // A bare prompt with no image behind it
)

// ParseSide validates a side name. The empty string is returned as-is.
func ParseSide(s string) (Side, error) {
	switch side := Side(s); side {
	case "", SidePositive, SideNegative, SidePrompt:
		return side, nil
	default:
		return "", fmt.Errorf("invalid side %q: must be positive, negative or prompt", s)
	}
}

// HistoryEntry is one recorded prompt edit.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"` // file path, or "-" for literal prompts
	Side      Side      `json:"side"`
	Original  string    `json:"original"`
	Edited    string    `json:"edited"`
	Remove    string    `json:"remove,omitempty"`
	Add       string    `json:"add,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows a history listing. Zero values match everything.
type Filter struct {
	Source string
	Side   Side
	Limit  int
}

// HistoryStore records prompt edits.
type HistoryStore interface {
	// Record stores an entry and returns its ID. An ID is generated when the
	// entry has none; CreatedAt defaults to now.
	Record(ctx context.Context, entry HistoryEntry) (string, error)

	// List returns matching entries, newest first.
	List(ctx context.Context, filter Filter) ([]HistoryEntry, error)

	// Clear deletes every entry and returns how many were removed.
	Clear(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

func (f Filter) matches(e HistoryEntry) bool {
	if f.Source != "" && e.Source != f.Source {
		return false
	}
	if f.Side != "" && e.Side != f.Side {
		return false
	}
	return true
}
