package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSQLiteHistoryStore(t *testing.T) {
	runHistoryStoreTests(t, func(t *testing.T) HistoryStore {
		s, err := NewSQLiteHistoryStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewSQLiteHistoryStore() error = %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestNewSQLiteHistoryStore(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), ".promptedit")

	s, err := NewSQLiteHistoryStore(dataDir)
	if err != nil {
		t.Fatalf("NewSQLiteHistoryStore() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dataDir, DBFile)); os.IsNotExist(err) {
		t.Error("history.db was not created")
	}
	if s.Path() != filepath.Join(dataDir, DBFile) {
		t.Errorf("Path() = %q", s.Path())
	}
}

func TestSQLiteHistoryStore_Persists(t *testing.T) {
	dataDir := t.TempDir()
	ctx := context.Background()

	s, err := NewSQLiteHistoryStore(dataDir)
	if err != nil {
		t.Fatalf("NewSQLiteHistoryStore() error = %v", err)
	}
	id, err := s.Record(ctx, HistoryEntry{Source: "a.png", Side: SidePositive, Original: "a, b", Edited: "a", Remove: "b"})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteHistoryStore(dataDir)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != id || got[0].Remove != "b" {
		t.Errorf("List() after reopen = %+v", got)
	}
}

func TestSQLiteHistoryStore_CloseTwice(t *testing.T) {
	s, err := NewSQLiteHistoryStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteHistoryStore() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestInitSchema_RejectsNewerVersion(t *testing.T) {
	dataDir := t.TempDir()
	s, err := NewSQLiteHistoryStore(dataDir)
	if err != nil {
		t.Fatalf("NewSQLiteHistoryStore() error = %v", err)
	}
	s.Close()

	db, err := sql.Open("sqlite", filepath.Join(dataDir, DBFile))
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatalf("bumping schema version: %v", err)
	}

	err = InitSchema(ctx, db)
	if err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Errorf("InitSchema() error = %v, want newer-version error", err)
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := InitSchema(ctx, db); err != nil {
			t.Fatalf("InitSchema() call %d error = %v", i+1, err)
		}
	}

	version, err := getSchemaVersion(ctx, db)
	if err != nil {
		t.Fatalf("getSchemaVersion() error = %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("schema version = %d, want %d", version, SchemaVersion)
	}
}
