// Package pins persists the per-profile pin overlay. A pinned
// generation can never be targeted for deletion.
//
// Pins are nixmate bookkeeping, layered on top of discovery: the Nix
// store and profile tooling never see them. They live in a small
// sqlite database so they survive restarts.
package pins

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nixmate/nixmate/internal/nix"
)

// ErrNotInitialized is returned when the database schema has not been
// created yet.
var ErrNotInitialized = errors.New("pin store not initialized")

const schema = `
CREATE TABLE IF NOT EXISTS pins (
    profile TEXT NOT NULL,
    generation_id INTEGER NOT NULL,
    pinned_at TIMESTAMP NOT NULL,
    PRIMARY KEY (profile, generation_id)
);
`

// Store provides sqlite-backed pin persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the pin database at the given path.
// Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pin database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &Store{db: db}, nil
}

// DefaultPath returns the per-user pin database location, creating its
// directory if needed.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(home, ".local", "share")
	}
	dataDir := filepath.Join(dir, "nixmate")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dataDir, "nixmate.db"), nil
}

// Open opens the default per-user pin store with its schema in place.
func Open() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	s, err := New(path)
	if err != nil {
		return nil, err
	}
	if err := s.CreateSchema(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateSchema creates the pins table.
func (s *Store) CreateSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Toggle flips the pin state of a generation and reports the new
// state.
func (s *Store) Toggle(profile nix.ProfileType, id int) (pinned bool, err error) {
	set, err := s.Pinned(profile)
	if err != nil {
		return false, err
	}

	if set[id] {
		_, err = s.db.Exec(
			`DELETE FROM pins WHERE profile = ? AND generation_id = ?`,
			profile.String(), id)
		if err != nil {
			return false, fmt.Errorf("failed to unpin generation %d: %w", id, mapError(err))
		}
		return false, nil
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO pins (profile, generation_id, pinned_at) VALUES (?, ?, ?)`,
		profile.String(), id, time.Now().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("failed to pin generation %d: %w", id, mapError(err))
	}
	return true, nil
}

// Unpin removes a generation's pin. Unpinning a generation that was
// never pinned is a no-op.
func (s *Store) Unpin(profile nix.ProfileType, id int) error {
	_, err := s.db.Exec(
		`DELETE FROM pins WHERE profile = ? AND generation_id = ?`,
		profile.String(), id)
	if err != nil {
		return fmt.Errorf("failed to unpin generation %d: %w", id, mapError(err))
	}
	return nil
}

// Pinned returns the set of pinned generation ids for a profile.
func (s *Store) Pinned(profile nix.ProfileType) (map[int]bool, error) {
	rows, err := s.db.Query(
		`SELECT generation_id FROM pins WHERE profile = ?`, profile.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query pins: %w", mapError(err))
	}
	defer rows.Close()

	set := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan pin: %w", err)
		}
		set[id] = true
	}
	return set, rows.Err()
}

// Apply overlays the pin state onto a discovered generation list.
func (s *Store) Apply(profile nix.ProfileType, gens []nix.Generation) error {
	set, err := s.Pinned(profile)
	if err != nil {
		return err
	}
	for i := range gens {
		gens[i].Pinned = set[gens[i].ID]
	}
	return nil
}

// mapError turns sqlite's missing-table error into the package
// sentinel so callers can distinguish "never initialized" from real
// failures.
func mapError(err error) error {
	if err != nil && strings.Contains(err.Error(), "no such table") {
		return ErrNotInitialized
	}
	return err
}
