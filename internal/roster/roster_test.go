package roster

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xonecas/zoea-tower/internal/config"
	"github.com/xonecas/zoea-tower/internal/core"
	"github.com/xonecas/zoea-tower/internal/store"
)

const sampleRoster = `
agents:
  - id: ceo
    floor: 0
    division: management
    title: Chief Executive
  - id: analyst
    floor: 5
    division: security
    title: Security Analyst
  - id: drifter
    division: legal
    title: Contractor
  - id: intern
    floor: 2
`

func setupRosterTest(t *testing.T) (*store.Store, func()) {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	return s, func() { s.Close() }
}

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return path
}

func TestParse(t *testing.T) {
	entries, err := Parse([]byte(sampleRoster))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	if entries[0].Floor != 0 || entries[0].Division != core.DivisionManagement {
		t.Errorf("unexpected ceo entry: %+v", entries[0])
	}
	if entries[2].Floor != core.NoFloor {
		t.Errorf("expected missing floor to be NoFloor, got %d", entries[2].Floor)
	}
	if entries[3].Division != "" || entries[3].Floor != 2 {
		t.Errorf("expected intern without division on floor 2, got %+v", entries[3])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"empty", "agents: []\n", ErrEmptyRoster},
		{"missing id", "agents:\n  - floor: 1\n", ErrMissingID},
		{"duplicate id", "agents:\n  - id: a\n  - id: a\n", ErrDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.content)); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := Parse([]byte("agents: [")); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestGenerate(t *testing.T) {
	cfg := config.DefaultConfig()
	entries := Generate(cfg.Building, 2)

	divisions := 0
	for _, f := range cfg.Building.Floors {
		divisions += len(f.Divisions)
	}
	if len(entries) != divisions*2 {
		t.Fatalf("expected %d agents, got %d", divisions*2, len(entries))
	}

	first := entries[0]
	if first.ID != "f0-management-01" || first.Floor != 0 || first.Title != "Chief Executive" {
		t.Errorf("unexpected first agent: %+v", first)
	}

	seen := make(map[string]bool)
	for _, e := range entries {
		if seen[e.ID] {
			t.Errorf("duplicate generated id %s", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestLoadPrefersFile(t *testing.T) {
	s, cleanup := setupRosterTest(t)
	defer cleanup()

	cfg := config.DefaultConfig()
	cfg.Roster.Path = writeRoster(t, sampleRoster)

	entries, source, err := Load(cfg, s)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if source != SourceFile || len(entries) != 4 {
		t.Errorf("expected 4 agents from file, got %d from %s", len(entries), source)
	}

	count, _ := s.CountRoster()
	if count != 4 {
		t.Errorf("expected file roster cached, got %d", count)
	}
}

func TestLoadFallsBackToStoreThenGenerated(t *testing.T) {
	s, cleanup := setupRosterTest(t)
	defer cleanup()

	cfg := config.DefaultConfig()
	cfg.Roster.AgentsPerDivision = 1

	entries, source, err := Load(cfg, s)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if source != SourceGenerated {
		t.Fatalf("expected generated roster, got %s", source)
	}

	cached, source, err := Load(cfg, s)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if source != SourceStore {
		t.Fatalf("expected cached roster on second load, got %s", source)
	}
	if len(cached) != len(entries) || cached[0] != entries[0] {
		t.Errorf("expected cached roster to match generated one")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Roster.Path = filepath.Join(t.TempDir(), "missing.yaml")

	if _, _, err := Load(cfg, nil); err == nil {
		t.Error("expected error for missing roster file")
	}
}

func TestStoreConversionKeepsNoFloor(t *testing.T) {
	in := []core.RosterEntry{
		{ID: "a", Floor: 3, Division: core.DivisionTesting, Title: "QA"},
		{ID: "b", Floor: core.NoFloor, Division: core.DivisionLegal},
	}
	out := FromStore(ToStore(in))

	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Errorf("expected round trip to preserve entries, got %+v", out)
	}
}
