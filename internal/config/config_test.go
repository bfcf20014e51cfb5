package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Simulation.ProgressSteps != 10 {
		t.Errorf("expected progress_steps=10, got %d", cfg.Simulation.ProgressSteps)
	}
	if cfg.Building.Specialties["security"] != 5 {
		t.Errorf("expected security specialty floor 5, got %d", cfg.Building.Specialties["security"])
	}
	if len(cfg.Building.Floors) != 9 {
		t.Errorf("expected 9 floors, got %d", len(cfg.Building.Floors))
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
[simulation]
seed = 42
tick_interval_ms = 20
progress_steps = 4

[behavior.working]
min_seconds = 1.0
max_seconds = 2.0

[behavior.working.weights]
idle = 3.0
meeting = 1.0

[building.specialties]
security = 9

[[building.floors]]
index = 1
name = "Only"
divisions = ["security"]

[store]
path = "/tmp/tower.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Simulation.Seed != 42 {
		t.Errorf("expected seed=42, got %d", cfg.Simulation.Seed)
	}
	if cfg.Simulation.TickInterval() != 20*time.Millisecond {
		t.Errorf("expected tick interval 20ms, got %s", cfg.Simulation.TickInterval())
	}
	if cfg.Simulation.ProgressSteps != 4 {
		t.Errorf("expected progress_steps=4, got %d", cfg.Simulation.ProgressSteps)
	}
	working, ok := cfg.Behavior["working"]
	if !ok {
		t.Fatal("expected behavior.working section")
	}
	if working.Weights["idle"] != 3.0 {
		t.Errorf("expected idle weight 3.0, got %v", working.Weights["idle"])
	}
	if cfg.Building.Specialties["security"] != 9 {
		t.Errorf("expected security specialty 9, got %d", cfg.Building.Specialties["security"])
	}
	if len(cfg.Building.Floors) != 1 || cfg.Building.Floors[0].Name != "Only" {
		t.Errorf("expected floors replaced by file, got %+v", cfg.Building.Floors)
	}
	if cfg.Store.Path != "/tmp/tower.db" {
		t.Errorf("expected store path override, got %s", cfg.Store.Path)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("TOWER_SEED", "7")
	t.Setenv("TOWER_WORKLOAD_ENABLED", "false")
	t.Setenv("TOWER_WORKLOAD_RATE", "3.5")
	t.Setenv("TOWER_ROSTER_PATH", "/srv/roster.yaml")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Simulation.Seed != 7 {
		t.Errorf("expected env override seed=7, got %d", cfg.Simulation.Seed)
	}
	if cfg.Workload.Enabled {
		t.Error("expected workload disabled by env")
	}
	if cfg.Workload.RatePerSecond != 3.5 {
		t.Errorf("expected workload rate 3.5, got %v", cfg.Workload.RatePerSecond)
	}
	if cfg.Roster.Path != "/srv/roster.yaml" {
		t.Errorf("expected roster path override, got %s", cfg.Roster.Path)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("Load() should not error for non-existent file: %v", err)
	}

	if cfg.Simulation.TickIntervalMS != 50 {
		t.Errorf("expected tick_interval_ms=50, got %d", cfg.Simulation.TickIntervalMS)
	}
}

func TestFloorIndexes(t *testing.T) {
	b := BuildingConfig{Floors: []FloorConfig{{Index: 3}, {Index: 1}}}
	got := b.FloorIndexes()
	if len(got) != 2 || got[0] != 3 || got[1] != 1 {
		t.Errorf("expected [3 1], got %v", got)
	}
}

func TestEnsureDataDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir, err := EnsureDataDir()
	if err != nil {
		t.Fatalf("EnsureDataDir() error: %v", err)
	}
	if filepath.Base(dir) != ".zoea-tower" {
		t.Errorf("expected .zoea-tower dir, got %s", dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected data dir to exist: %v", err)
	}
}
