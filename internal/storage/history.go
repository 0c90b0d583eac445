package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// maxHistoryEntries caps the persisted cleanup log.
const maxHistoryEntries = 100

// HistoryEntry records one completed cleanup action. The JSON field
// names match the on-disk format written by earlier versions.
type HistoryEntry struct {
	Timestamp    string `json:"timestamp"`
	Action       string `json:"action"`
	FreedBytes   int64  `json:"freed_bytes"`
	PathsRemoved int    `json:"paths_removed"`
}

// Ledger persists a bounded cleanup history as a single JSON array,
// most recent first. The file is read fully and rewritten fully on
// every append; the content is advisory, so no partial-write protocol
// is needed.
type Ledger struct {
	path string
}

// NewLedger returns a ledger at an explicit file path.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// DefaultLedger returns the per-user ledger under the XDG data dir.
func DefaultLedger() (*Ledger, error) {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("no data directory: %w", err)
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return NewLedger(filepath.Join(dir, "nixmate", "storage-history.json")), nil
}

// Load reads all history entries. A missing or unreadable file is an
// empty history, never an error.
func (l *Ledger) Load() []HistoryEntry {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	return entries
}

// Append prepends an entry and rewrites the file, keeping at most
// maxHistoryEntries.
func (l *Ledger) Append(entry HistoryEntry) error {
	entries := append([]HistoryEntry{entry}, l.Load()...)
	if len(entries) > maxHistoryEntries {
		entries = entries[:maxHistoryEntries]
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// Summarize returns the most recent cleanup timestamp (empty when the
// history is empty) and the total bytes freed across all entries.
func Summarize(entries []HistoryEntry) (lastCleanup string, totalFreed int64) {
	if len(entries) > 0 {
		lastCleanup = entries[0].Timestamp
	}
	for _, e := range entries {
		totalFreed += e.FreedBytes
	}
	return lastCleanup, totalFreed
}
