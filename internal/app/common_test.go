package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nixmate/nixmate/internal/actions"
	"github.com/nixmate/nixmate/internal/nix"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"38", "39"})
	if err != nil {
		t.Fatalf("parseIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != 38 || ids[1] != 39 {
		t.Errorf("parseIDs = %v", ids)
	}

	if _, err := parseIDs([]string{"38", "latest"}); err == nil {
		t.Error("parseIDs accepted a non-numeric id")
	}
}

func TestFindByID(t *testing.T) {
	gens := []nix.Generation{{ID: 40}, {ID: 39}}

	if g, ok := findByID(gens, 39); !ok || g.ID != 39 {
		t.Errorf("findByID(39) = (%+v, %v)", g, ok)
	}
	if _, ok := findByID(gens, 7); ok {
		t.Error("findByID found a missing generation")
	}
}

func TestConfirmPrompt(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"Y\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got := confirmPrompt(strings.NewReader(tt.input), &out, "Delete 1 generation(s)", "sudo nix-env --delete-generations 38")
		if got != tt.want {
			t.Errorf("confirmPrompt(%q) = %v, want %v", tt.input, got, tt.want)
		}
		// The prompt always shows the exact command that will run.
		if !strings.Contains(out.String(), "sudo nix-env --delete-generations 38") {
			t.Errorf("prompt does not show the command: %q", out.String())
		}
	}
}

func TestCleanKind(t *testing.T) {
	tests := []struct {
		name string
		want actions.Kind
	}{
		{"gc", actions.KindGC},
		{"full", actions.KindFullClean},
		{"optimise", actions.KindOptimise},
	}
	for _, tt := range tests {
		got, err := cleanKind(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("cleanKind(%s) = (%v, %v)", tt.name, got, err)
		}
	}

	if _, err := cleanKind("purge"); err == nil {
		t.Error("cleanKind accepted an unknown action")
	}
}
