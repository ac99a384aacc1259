package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// DBFile is the history database file name inside the data directory.
const DBFile = "history.db"

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteHistoryStore implements HistoryStore using SQLite for persistence.
type SQLiteHistoryStore struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteHistoryStore creates a new SQLiteHistoryStore in dataDir,
// creating the directory and database at dataDir/history.db as needed.
func NewSQLiteHistoryStore(dataDir string) (*SQLiteHistoryStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteHistoryStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteHistoryStore) Path() string {
	return s.dbPath
}

// Record stores an edit.
func (s *SQLiteHistoryStore) Record(ctx context.Context, entry HistoryEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry = withDefaults(entry)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO edits (id, source, side, original, edited, remove_list, add_list, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Source, string(entry.Side), entry.Original, entry.Edited,
		entry.Remove, entry.Add, entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert edit %s: %w", entry.ID, err)
	}
	return entry.ID, nil
}

// List returns matching edits, newest first.
func (s *SQLiteHistoryStore) List(ctx context.Context, filter Filter) ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var where []string
	var args []any
	if filter.Source != "" {
		where = append(where, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Side != "" {
		where = append(where, "side = ?")
		args = append(args, string(filter.Side))
	}

	query := `SELECT id, source, side, original, edited, remove_list, add_list, created_at FROM edits`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edits: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var (
			e               HistoryEntry
			side, createdAt string
			remove, add     sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Source, &side, &e.Original, &e.Edited, &remove, &add, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan edit: %w", err)
		}
		e.Side = Side(side)
		e.Remove = remove.String
		e.Add = add.String
		if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("edit %s: bad timestamp %q: %w", e.ID, createdAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate edits: %w", err)
	}
	return entries, nil
}

// Clear deletes all edits.
func (s *SQLiteHistoryStore) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM edits`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear edits: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared edits: %w", err)
	}
	return int(n), nil
}

// Close closes the database.
func (s *SQLiteHistoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func withDefaults(e HistoryEntry) HistoryEntry {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return e
}
