package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store owns the SQLite connection and hands out repositories.
type Store struct {
	db  *sql.DB
	seq *sequenceCounter
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ProgressRepo returns a ProgressRepo backed by this store.
func (s *Store) ProgressRepo() ProgressRepo {
	return &progressRepo{db: s.db}
}

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{db: s.db, seq: s.seq}
}

// NotesRepo returns a NotesRepo backed by this store.
func (s *Store) NotesRepo() NotesRepo {
	return &notesRepo{db: s.db}
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS progress (
		learner_id  TEXT    NOT NULL,
		module_id   TEXT    NOT NULL,
		level       INTEGER NOT NULL,
		at_level    INTEGER NOT NULL DEFAULT 0,
		total       INTEGER NOT NULL DEFAULT 0,
		correct     INTEGER NOT NULL DEFAULT 0,
		streak      INTEGER NOT NULL DEFAULT 0,
		points      INTEGER NOT NULL DEFAULT 0,
		outstanding TEXT    NOT NULL DEFAULT '',
		recent      TEXT    NOT NULL DEFAULT '[]',
		updated_at  INTEGER NOT NULL,
		version     INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (learner_id, module_id)
	)`,
	`CREATE TABLE IF NOT EXISTS grading_events (
		id             TEXT    PRIMARY KEY,
		sequence       INTEGER NOT NULL UNIQUE,
		timestamp      INTEGER NOT NULL,
		learner_id     TEXT    NOT NULL,
		module_id      TEXT    NOT NULL,
		question_id    TEXT    NOT NULL,
		verdict        TEXT    NOT NULL,
		correct        INTEGER NOT NULL,
		level_before   INTEGER NOT NULL,
		level_after    INTEGER NOT NULL,
		points_awarded INTEGER NOT NULL,
		answers        TEXT    NOT NULL,
		similarities   TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS grading_events_learner ON grading_events (learner_id, sequence)`,
	`CREATE TABLE IF NOT EXISTS llm_events (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence      INTEGER NOT NULL UNIQUE,
		timestamp     INTEGER NOT NULL,
		provider      TEXT    NOT NULL,
		model         TEXT    NOT NULL,
		purpose       TEXT    NOT NULL,
		input_tokens  INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		latency_ms    INTEGER NOT NULL,
		success       INTEGER NOT NULL,
		error_message TEXT    NOT NULL DEFAULT '',
		request_body  TEXT    NOT NULL DEFAULT '',
		response_body TEXT    NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS module_notes (
		module_id  TEXT    PRIMARY KEY,
		content    TEXT    NOT NULL,
		model      TEXT    NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
}

// addedColumns are columns introduced after their table first shipped.
var addedColumns = []struct {
	table, column, decl string
}{
	{"progress", "version", "INTEGER NOT NULL DEFAULT 1"},
}

// migrate creates every table the repositories use and adds columns missing
// from older databases. Statements are idempotent so it runs on every Open.
func migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	for _, c := range addedColumns {
		var n int
		err := db.QueryRow(
			"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", c.table, c.column,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", c.table, err)
		}
		if n > 0 {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.decl)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("add %s.%s: %w", c.table, c.column, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. CYBERGUARD_DB environment variable
// 2. $XDG_DATA_HOME/cyberguard/cyberguard.db
// 3. ~/.local/share/cyberguard/cyberguard.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("CYBERGUARD_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "cyberguard", "cyberguard.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
