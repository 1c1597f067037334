package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a store that lives only as long as its connection.
const MemoryPath = ":memory:"

// migration upgrades a run log created by an older binary. Migrations run
// in order and each one bumps user_version to its position in the list.
type migration struct {
	name  string
	apply func(tx *sql.Tx) error
}

// migrations lists every upgrade since the first released schema, which
// had runs and messages but no per-type message index.
var migrations = []migration{
	{name: "index messages by type", apply: addMessagesTypeIndex},
}

// currentSchemaVersion is the user_version of a fully migrated run log.
var currentSchemaVersion = len(migrations)

// Store holds the message logs of scenario runs. A single connection
// serializes writers, so a run and its messages are never interleaved
// with another run's.
type Store struct {
	db *sql.DB
}

// Open opens the run log at path, creating it when missing. Pass MemoryPath
// for a log discarded on Close. Reopening an existing log keeps its runs
// and applies any pending migrations.
//
// File-backed logs use WAL journaling so `fbscenario test --db` can be
// inspected while a suite is writing. Every log waits up to five seconds
// on a locked database and enforces the messages to runs foreign key.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to run log: %w", err)
	}

	// A second connection to MemoryPath would see an empty database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, path == MemoryPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the run log. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying handle for ad hoc queries against runs and
// messages.
func (s *Store) DB() *sql.DB {
	return s.db
}

func applyPragmas(db *sql.DB, inMemory bool) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if !inMemory {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates the runs and messages tables when missing, then
// brings an older log up to currentSchemaVersion.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("run log schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	for i := version; i < len(migrations); i++ {
		if err := runMigration(db, i+1, migrations[i]); err != nil {
			return err
		}
	}
	return nil
}

// runMigration applies m and records version in the same transaction, so
// a failed upgrade leaves the log at the previous version.
func runMigration(db *sql.DB, version int, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d (%s): begin: %w", version, m.name, err)
	}
	defer tx.Rollback()

	if err := m.apply(tx); err != nil {
		return fmt.Errorf("migration %d (%s): %w", version, m.name, err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("migration %d (%s): set user_version: %w", version, m.name, err)
	}
	return tx.Commit()
}

// addMessagesTypeIndex backs the per-type reads such as ReadRecords and
// ReadLogs.
func addMessagesTypeIndex(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_messages_type
		ON messages(run_id, type, seq)
	`)
	return err
}

// verifyPragma reports an error unless pragma name reads back as expected.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
