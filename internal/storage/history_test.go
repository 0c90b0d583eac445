package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func tempLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger(filepath.Join(t.TempDir(), "nixmate", "storage-history.json"))
}

func TestLedger_MissingFileIsEmpty(t *testing.T) {
	if entries := tempLedger(t).Load(); len(entries) != 0 {
		t.Errorf("Load() = %+v, want empty", entries)
	}
}

func TestLedger_AppendPrepends(t *testing.T) {
	l := tempLedger(t)

	for i := 1; i <= 3; i++ {
		err := l.Append(HistoryEntry{
			Timestamp:    "2024-01-0" + strconv.Itoa(i),
			Action:       "Garbage collection",
			FreedBytes:   int64(i * 100),
			PathsRemoved: i,
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries := l.Load()
	if len(entries) != 3 {
		t.Fatalf("Load() returned %d entries, want 3", len(entries))
	}
	// Most recent first.
	if entries[0].Timestamp != "2024-01-03" || entries[2].Timestamp != "2024-01-01" {
		t.Errorf("order = %s..%s, want newest first", entries[0].Timestamp, entries[2].Timestamp)
	}
}

func TestLedger_CapsAtLimit(t *testing.T) {
	l := tempLedger(t)

	for i := 0; i < maxHistoryEntries+10; i++ {
		if err := l.Append(HistoryEntry{Timestamp: strconv.Itoa(i)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries := l.Load()
	if len(entries) != maxHistoryEntries {
		t.Errorf("Load() returned %d entries, want %d", len(entries), maxHistoryEntries)
	}
	// The newest entry survives, the oldest are dropped.
	if entries[0].Timestamp != strconv.Itoa(maxHistoryEntries+9) {
		t.Errorf("newest = %s", entries[0].Timestamp)
	}
}

func TestLedger_CorruptFileReadsAsEmpty(t *testing.T) {
	l := tempLedger(t)
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(l.path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if entries := l.Load(); len(entries) != 0 {
		t.Errorf("Load() = %+v, want empty for corrupt file", entries)
	}

	// And an append recovers the file.
	if err := l.Append(HistoryEntry{Timestamp: "now"}); err != nil {
		t.Fatalf("Append after corruption: %v", err)
	}
	if entries := l.Load(); len(entries) != 1 {
		t.Errorf("Load() after recovery = %+v", entries)
	}
}

func TestLedger_JSONFieldNames(t *testing.T) {
	l := tempLedger(t)
	if err := l.Append(HistoryEntry{Timestamp: "t", Action: "a", FreedBytes: 1, PathsRemoved: 2}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		t.Fatal(err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("ledger file is not a JSON array: %v", err)
	}
	for _, key := range []string{"timestamp", "action", "freed_bytes", "paths_removed"} {
		if _, ok := raw[0][key]; !ok {
			t.Errorf("ledger entry missing %q field: %v", key, raw[0])
		}
	}
}

func TestSummarize(t *testing.T) {
	entries := []HistoryEntry{
		{Timestamp: "2024-03-01", FreedBytes: 500},
		{Timestamp: "2024-02-01", FreedBytes: 300},
	}
	last, total := Summarize(entries)
	if last != "2024-03-01" || total != 800 {
		t.Errorf("Summarize = (%s, %d), want (2024-03-01, 800)", last, total)
	}

	last, total = Summarize(nil)
	if last != "" || total != 0 {
		t.Errorf("Summarize(nil) = (%s, %d)", last, total)
	}
}
