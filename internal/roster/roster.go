// Package roster loads the tower's agent population from a YAML file, the
// store, or a generated default.
package roster

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/xonecas/zoea-tower/internal/config"
	"github.com/xonecas/zoea-tower/internal/core"
	"github.com/xonecas/zoea-tower/internal/store"
	"gopkg.in/yaml.v3"
)

var (
	ErrEmptyRoster = errors.New("roster has no agents")
	ErrMissingID   = errors.New("roster entry has no id")
	ErrDuplicateID = errors.New("duplicate roster id")
)

// Source says where a roster came from.
type Source string

const (
	SourceFile      Source = "file"
	SourceStore     Source = "store"
	SourceGenerated Source = "generated"
)

// File is the YAML roster document.
type File struct {
	Agents []Entry `yaml:"agents"`
}

// Entry is one agent in a roster file. Floor and division may be omitted.
type Entry struct {
	ID       string `yaml:"id"`
	Floor    *int   `yaml:"floor"`
	Division string `yaml:"division"`
	Title    string `yaml:"title"`
}

// LoadFile reads a YAML roster from path.
func LoadFile(path string) ([]core.RosterEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Parse decodes a YAML roster. Entries without a floor get core.NoFloor.
func Parse(data []byte) ([]core.RosterEntry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(f.Agents) == 0 {
		return nil, ErrEmptyRoster
	}

	seen := make(map[string]bool, len(f.Agents))
	out := make([]core.RosterEntry, 0, len(f.Agents))
	for i, e := range f.Agents {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrMissingID, i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}
		seen[e.ID] = true

		floor := core.NoFloor
		if e.Floor != nil {
			floor = *e.Floor
		}
		out = append(out, core.RosterEntry{
			ID:       e.ID,
			Floor:    floor,
			Division: core.Division(e.Division),
			Title:    e.Title,
		})
	}
	return out, nil
}

var divisionTitles = map[core.Division][]string{
	core.DivisionMarketing:  {"Brand Strategist", "Content Lead", "Growth Marketer"},
	core.DivisionResearch:   {"Research Scientist", "Data Analyst", "UX Researcher"},
	core.DivisionTesting:    {"QA Engineer", "Test Automation Engineer"},
	core.DivisionProduction: {"Software Engineer", "Platform Engineer", "Release Manager"},
	core.DivisionSecurity:   {"Security Analyst", "Penetration Tester"},
	core.DivisionLegal:      {"Counsel", "Compliance Officer"},
	core.DivisionAccounting: {"Accountant", "Financial Analyst"},
	core.DivisionManagement: {"Chief Executive", "Chief of Staff", "Operations Director"},
}

// Generate builds perDivision agents for every division of every floor.
func Generate(b config.BuildingConfig, perDivision int) []core.RosterEntry {
	if perDivision <= 0 {
		perDivision = 1
	}
	var out []core.RosterEntry
	for _, f := range b.Floors {
		for _, d := range f.Divisions {
			div := core.Division(d)
			titles := divisionTitles[div]
			for i := 0; i < perDivision; i++ {
				title := string(div)
				if len(titles) > 0 {
					title = titles[i%len(titles)]
				}
				out = append(out, core.RosterEntry{
					ID:       fmt.Sprintf("f%d-%s-%02d", f.Index, div, i+1),
					Floor:    f.Index,
					Division: div,
					Title:    title,
				})
			}
		}
	}
	return out
}

// Load resolves the roster: the configured YAML file first, then the roster
// cached in the store, then a generated one. File and generated rosters are
// written back to the store. s may be nil.
func Load(cfg *config.Config, s *store.Store) ([]core.RosterEntry, Source, error) {
	if cfg.Roster.Path != "" {
		entries, err := LoadFile(cfg.Roster.Path)
		if err != nil {
			return nil, "", err
		}
		save(s, entries)
		return entries, SourceFile, nil
	}

	if s != nil {
		cached, err := s.ListRoster()
		if err != nil {
			return nil, "", fmt.Errorf("load cached roster: %w", err)
		}
		if len(cached) > 0 {
			return FromStore(cached), SourceStore, nil
		}
	}

	entries := Generate(cfg.Building, cfg.Roster.AgentsPerDivision)
	if len(entries) == 0 {
		return nil, "", ErrEmptyRoster
	}
	save(s, entries)
	return entries, SourceGenerated, nil
}

func save(s *store.Store, entries []core.RosterEntry) {
	if s == nil {
		return
	}
	if err := s.SaveRoster(ToStore(entries)); err != nil {
		log.Warn().Err(err).Msg("Failed to cache roster")
	}
}

// ToStore converts roster entries to their stored form.
func ToStore(entries []core.RosterEntry) []store.RosterAgent {
	out := make([]store.RosterAgent, len(entries))
	for i, e := range entries {
		out[i] = store.RosterAgent{ID: e.ID, Division: string(e.Division), Title: e.Title}
		if e.Floor != core.NoFloor {
			f := e.Floor
			out[i].Floor = &f
		}
	}
	return out
}

// FromStore converts stored agents to roster entries.
func FromStore(agents []store.RosterAgent) []core.RosterEntry {
	out := make([]core.RosterEntry, len(agents))
	for i, a := range agents {
		out[i] = core.RosterEntry{ID: a.ID, Floor: core.NoFloor, Division: core.Division(a.Division), Title: a.Title}
		if a.Floor != nil {
			out[i].Floor = *a.Floor
		}
	}
	return out
}
