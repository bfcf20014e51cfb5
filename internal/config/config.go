// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Simulation SimulationConfig       `toml:"simulation"`
	Behavior   map[string]StateConfig `toml:"behavior"`
	Building   BuildingConfig         `toml:"building"`
	Roster     RosterConfig           `toml:"roster"`
	Workload   WorkloadConfig         `toml:"workload"`
	Store      StoreConfig            `toml:"store"`
}

// SimulationConfig holds clock and delegation timing settings.
type SimulationConfig struct {
	Seed                      uint64  `toml:"seed"`
	TickIntervalMS            int     `toml:"tick_interval_ms"`
	MaxDeltaMS                int     `toml:"max_delta_ms"`
	MoveSpeed                 float64 `toml:"move_speed"`
	ProgressSteps             int     `toml:"progress_steps"`
	SingleTaskMS              int     `toml:"single_task_ms"`
	MultiPerDivisionMS        int     `toml:"multi_per_division_ms"`
	MultiJitterMS             int     `toml:"multi_jitter_ms"`
	SwarmOverheadMS           int     `toml:"swarm_overhead_ms"`
	ReinforcementsPerDivision int     `toml:"reinforcements_per_division"`
}

// StateConfig overrides one behavioral state's duration range and outgoing weights.
// Zero values leave the built-in setting untouched.
type StateConfig struct {
	MinSeconds float64            `toml:"min_seconds"`
	MaxSeconds float64            `toml:"max_seconds"`
	Weights    map[string]float64 `toml:"weights"`
}

// BuildingConfig describes the tower's floors and specialty mapping.
type BuildingConfig struct {
	Floors []FloorConfig `toml:"floors"`
	// Specialties maps a division to the enterprise floor that reinforces swarms needing it.
	Specialties map[string]int `toml:"specialties"`
}

// FloorConfig describes one floor.
type FloorConfig struct {
	Index     int      `toml:"index"`
	Name      string   `toml:"name"`
	Divisions []string `toml:"divisions"`
}

// RosterConfig controls where the agent roster comes from.
type RosterConfig struct {
	Path              string `toml:"path"`
	AgentsPerDivision int    `toml:"agents_per_division"`
}

// WorkloadConfig controls the synthetic task generator.
type WorkloadConfig struct {
	Enabled       bool    `toml:"enabled"`
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// StoreConfig holds the task audit database settings.
type StoreConfig struct {
	Path string `toml:"path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Seed:                      0,
			TickIntervalMS:            50,
			MaxDeltaMS:                250,
			MoveSpeed:                 2.5,
			ProgressSteps:             10,
			SingleTaskMS:              5000,
			MultiPerDivisionMS:        4000,
			MultiJitterMS:             2000,
			SwarmOverheadMS:           5000,
			ReinforcementsPerDivision: 2,
		},
		Behavior: map[string]StateConfig{},
		Building: BuildingConfig{
			Floors: []FloorConfig{
				{Index: 0, Name: "Executive", Divisions: []string{"management"}},
				{Index: 1, Name: "Growth", Divisions: []string{"marketing", "production"}},
				{Index: 2, Name: "Product", Divisions: []string{"research", "testing", "production"}},
				{Index: 3, Name: "Operations", Divisions: []string{"production", "testing", "accounting"}},
				{Index: 4, Name: "Studio", Divisions: []string{"marketing", "research"}},
				{Index: 5, Name: "Security Enterprise", Divisions: []string{"security"}},
				{Index: 6, Name: "Legal Enterprise", Divisions: []string{"legal"}},
				{Index: 7, Name: "Research Enterprise", Divisions: []string{"research"}},
				{Index: 8, Name: "Accounting Enterprise", Divisions: []string{"accounting"}},
			},
			Specialties: map[string]int{
				"security":   5,
				"legal":      6,
				"research":   7,
				"accounting": 8,
			},
		},
		Roster: RosterConfig{
			AgentsPerDivision: 6,
		},
		Workload: WorkloadConfig{
			Enabled:       true,
			RatePerSecond: 0.5,
			Burst:         2,
		},
	}
}

// Load reads configuration from a TOML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, err
			}
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TOWER_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Simulation.Seed = n
		}
	}

	if v := os.Getenv("TOWER_TICK_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Simulation.TickIntervalMS = n
		}
	}

	if v := os.Getenv("TOWER_ROSTER_PATH"); v != "" {
		cfg.Roster.Path = v
	}

	if v := os.Getenv("TOWER_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}

	if v := os.Getenv("TOWER_WORKLOAD_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Workload.Enabled = b
		}
	}

	if v := os.Getenv("TOWER_WORKLOAD_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Workload.RatePerSecond = f
		}
	}
}

// TickInterval returns the configured tick interval.
func (s SimulationConfig) TickInterval() time.Duration {
	return time.Duration(s.TickIntervalMS) * time.Millisecond
}

// MaxDelta returns the configured per-tick delta cap.
func (s SimulationConfig) MaxDelta() time.Duration {
	return time.Duration(s.MaxDeltaMS) * time.Millisecond
}

// FloorIndexes returns the index of every configured floor.
func (b BuildingConfig) FloorIndexes() []int {
	out := make([]int, 0, len(b.Floors))
	for _, f := range b.Floors {
		out = append(out, f.Index)
	}
	return out
}

// DataDir returns the path to the tower data directory (~/.zoea-tower).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".zoea-tower"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
