package main

import (
	"fmt"
	"os"

	"github.com/shipcore/shipcore/internal/parser"
	"github.com/shipcore/shipcore/pkg/core"
	"gopkg.in/yaml.v3"
)

// Scenario is a YAML mission file: the vessels present at start and a
// script run against them.
type Scenario struct {
	Name   string      `yaml:"name"`
	Ships  []ShipEntry `yaml:"ships"`
	Script []string    `yaml:"script"`
	Ticks  int         `yaml:"ticks"`
}

// ShipEntry is one vessel of a scenario. Team is a team name or index; when
// omitted the faction's configured team is used, else friendly.
type ShipEntry struct {
	Class      string       `yaml:"class"`
	Name       string       `yaml:"name"`
	Team       string       `yaml:"team"`
	Position   core.Vector3 `yaml:"position"`
	Faction    string       `yaml:"faction"`
	IFF        string       `yaml:"iff"`
	HullPct    float64      `yaml:"hull_pct"`
	ShieldsPct float64      `yaml:"shields_pct"`
}

// LoadScenario reads and decodes a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	for i, s := range sc.Ships {
		if s.Class == "" || s.Name == "" {
			return nil, fmt.Errorf("scenario ship %d: class and name are required", i+1)
		}
	}
	if sc.Ticks < 0 {
		return nil, fmt.Errorf("scenario ticks must not be negative")
	}
	return &sc, nil
}

// SpawnData converts the entry, resolving the team.
func (e ShipEntry) SpawnData() (core.SpawnData, error) {
	team := core.TeamFriendly
	if e.Team != "" {
		t, err := parser.ParseTeam(e.Team)
		if err != nil {
			return core.SpawnData{}, fmt.Errorf("ship %s: %w", e.Name, err)
		}
		team = t
	}
	return core.SpawnData{
		TeamFromFaction:   e.Team == "",
		ShipClass:         e.Class,
		Name:              e.Name,
		Position:          e.Position,
		Team:              team,
		Faction:           e.Faction,
		IFF:               e.IFF,
		InitialHullPct:    e.HullPct,
		InitialShieldsPct: e.ShieldsPct,
	}, nil
}
