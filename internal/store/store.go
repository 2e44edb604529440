package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store holds the database handle and provides access to repositories.
// Each repository owns a disjoint table namespace, so callers never need
// cross-repository locking.
type Store struct {
	db *sql.DB
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

	return &Store{db: db}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordedWords returns the recorded-word repository backed by this store.
func (s *Store) RecordedWords() RecordedWordRepo {
	return &recordedWordRepo{db: s.db}
}

// Ledger returns the pending-change ledger backed by this store.
func (s *Store) Ledger() LedgerRepo {
	return &ledgerRepo{db: s.db}
}

// Caches returns the mastery/stats cache repository backed by this store.
func (s *Store) Caches() CacheRepo {
	return &cacheRepo{db: s.db}
}

// Streaks returns the verse-streak repository backed by this store.
func (s *Store) Streaks() StreakRepo {
	return &streakRepo{db: s.db}
}

// Achievements returns the achievement repository backed by this store.
func (s *Store) Achievements() AchievementRepo {
	return &achievementRepo{db: s.db}
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

// migrate creates the schema. Every statement is idempotent so reopening an
// existing database is safe.
func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recorded_words (
			verse_reference TEXT    NOT NULL,
			word_index      INTEGER NOT NULL,
			recorded_at     TIMESTAMP NOT NULL,
			PRIMARY KEY (verse_reference, word_index)
		)`,
		`CREATE TABLE IF NOT EXISTS pending_changes (
			id              TEXT PRIMARY KEY,
			change_type     TEXT NOT NULL,
			verse_reference TEXT NOT NULL,
			payload         TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMP NOT NULL,
			synced          INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS mastery_cache (
			verse_reference TEXT PRIMARY KEY,
			payload         TEXT NOT NULL,
			fetched_at      TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stats_cache (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			payload    TEXT NOT NULL,
			fetched_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS verse_streaks (
			verse_reference      TEXT PRIMARY KEY,
			current_guess_streak INTEGER NOT NULL DEFAULT 0,
			longest_guess_streak INTEGER NOT NULL DEFAULT 0,
			last_guess_date      TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS achievement (
			id          INTEGER PRIMARY KEY CHECK (id = 1),
			streak      INTEGER NOT NULL,
			achieved_at TIMESTAMP NOT NULL,
			shared      INTEGER NOT NULL DEFAULT 0,
			share_count INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. VERSEKEEP_DB environment variable
// 2. $XDG_DATA_HOME/versekeep/versekeep.db
// 3. ~/.local/share/versekeep/versekeep.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("VERSEKEEP_DB"); p != "" {
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

	p := filepath.Join(dataHome, "versekeep", "versekeep.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
