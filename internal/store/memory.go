package store

import (
	"context"
	"sort"
	"sync"
)

// InMemoryHistoryStore implements HistoryStore for testing and for runs
// with history disabled.
type InMemoryHistoryStore struct {
	mu      sync.RWMutex
	entries []HistoryEntry
}

// NewInMemoryHistoryStore creates a new in-memory store.
func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{}
}

// Record stores an edit.
func (s *InMemoryHistoryStore) Record(ctx context.Context, entry HistoryEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry = withDefaults(entry)
	s.entries = append(s.entries, entry)
	return entry.ID, nil
}

// List returns matching edits, newest first.
func (s *InMemoryHistoryStore) List(ctx context.Context, filter Filter) ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []HistoryEntry{}
	// Walk backwards so equal timestamps keep newest-recorded first.
	for i := len(s.entries) - 1; i >= 0; i-- {
		if filter.matches(s.entries[i]) {
			result = append(result, s.entries[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Clear deletes all edits.
func (s *InMemoryHistoryStore) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	s.entries = nil
	return n, nil
}

// Close is a no-op.
func (s *InMemoryHistoryStore) Close() error {
	return nil
}
