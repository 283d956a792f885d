// pkg/core/ship.go
package core

import "time"

// SpawnData is the mission data consumed once when a vessel is instantiated.
type SpawnData struct {
	ShipClass         string  `json:"shipClass" yaml:"class"`
	Name              string  `json:"name" yaml:"name"`
	Position          Vector3 `json:"position" yaml:"position"`
	Team              Team    `json:"team" yaml:"team"`
	Faction           string  `json:"faction,omitempty" yaml:"faction"`
	IFF               string  `json:"iff,omitempty" yaml:"iff"`
	InitialHullPct    float64 `json:"initialHullPct" yaml:"hull_pct"`
	InitialShieldsPct float64 `json:"initialShieldsPct" yaml:"shields_pct"`
	// TeamFromFaction replaces Team with the faction's configured team, if
	// the faction has one.
	TeamFromFaction bool `json:"teamFromFaction,omitempty" yaml:"team_from_faction"`
}

// ShipPayload is the save/restore record of one vessel.
// Runtime flags are session-only and not part of it.
type ShipPayload struct {
	Name            string                   `json:"name"`
	Class           string                   `json:"class"`
	State           string                   `json:"state"`
	CombatState     string                   `json:"combatState"`
	MissionFlags    uint8                    `json:"missionFlags"`
	Team            Team                     `json:"team"`
	ObservedTeam    Team                     `json:"observedTeam"`
	Faction         string                   `json:"faction"`
	IFF             string                   `json:"iff"`
	Hull            float64                  `json:"hull"`
	MaxHull         float64                  `json:"maxHull"`
	Shield          float64                  `json:"shield"`
	MaxShield       float64                  `json:"maxShield"`
	WeaponEnergy    float64                  `json:"weaponEnergy"`
	MaxWeaponEnergy float64                  `json:"maxWeaponEnergy"`
	Fuel            float64                  `json:"afterburnerFuel"`
	MaxFuel         float64                  `json:"maxAfterburnerFuel"`
	Allocation      Allocation               `json:"allocation"`
	Position        Vector3                  `json:"position"`
	PendingTimers   map[string]time.Duration `json:"pendingTimers,omitempty"`
}

// ShipSnapshot is a read-only view of a vessel used by monitoring sinks.
type ShipSnapshot struct {
	ID                 ShipID
	Name               string
	Class              string
	Team               Team
	State              string
	CombatState        string
	Hull               float64
	MaxHull            float64
	Shield             float64
	MaxShield          float64
	WeaponEnergy       float64
	Fuel               float64
	Allocation         Allocation
	OverallPerformance float64
	Speed              float64
	AfterburnerActive  bool
}
