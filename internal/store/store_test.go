package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if err := s1.WriteRun(t.Context(), Run{ID: "run-1", Scenario: "s", SyncMode: "full_refresh", Seq: 1}); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	run, err := s2.ReadRun(t.Context(), "run-1")
	if err != nil {
		t.Fatalf("ReadRun() after reopen failed: %v", err)
	}
	if run.Scenario != "s" {
		t.Errorf("Scenario = %q, want %q", run.Scenario, "s")
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer s.Close()

	if err := s.WriteRun(t.Context(), Run{ID: "r", Scenario: "s", SyncMode: "incremental"}); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
}

func TestOpen_InMemorySkipsWAL(t *testing.T) {
	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open(MemoryPath) failed: %v", err)
	}
	defer s.Close()

	if err := s.verifyPragma("journal_mode", "memory"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestOpen_MigrationIndex(t *testing.T) {
	s := createTestStore(t)

	var name string
	err := s.DB().QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type = 'index' AND name = 'idx_messages_type'
	`).Scan(&name)
	if err != nil {
		t.Fatalf("index idx_messages_type missing: %v", err)
	}
}

// createUnmigratedLog writes a run log with the base tables at the given
// user_version.
func createUnmigratedLog(t *testing.T, version int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() failed: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("schema failed: %v", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		t.Fatalf("set user_version failed: %v", err)
	}
	return path
}

func TestOpen_MigratesUnversionedLog(t *testing.T) {
	path := createUnmigratedLog(t, 0)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
	var name string
	if err := s.DB().QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type = 'index' AND name = 'idx_messages_type'
	`).Scan(&name); err != nil {
		t.Fatalf("index idx_messages_type missing after migration: %v", err)
	}
}

func TestOpen_RejectsNewerLog(t *testing.T) {
	path := createUnmigratedLog(t, 9)

	s, err := Open(path)
	if err == nil {
		s.Close()
		t.Fatal("Open() on a newer run log succeeded, want error")
	}
	if !strings.Contains(err.Error(), "newer than supported version 1") {
		t.Errorf("Open() error = %v, want schema version error", err)
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on empty store = %v, want nil", err)
	}
}
