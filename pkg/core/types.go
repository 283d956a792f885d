// pkg/core/types.go
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// ShipID is the mission-scoped handle of a vessel. IDs are never reused within a mission.
type ShipID uint32

// Vector3 is a position or velocity in mission space.
type Vector3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Team is an IFF team index.
type Team int

const (
	TeamFriendly Team = iota
	TeamHostile
	TeamNeutral
	TeamUnknown

	// NumTeams is the size of the default relationship matrix.
	NumTeams = 4
)

var teamNames = [NumTeams]string{"friendly", "hostile", "neutral", "unknown"}

func (t Team) String() string {
	if t.Valid() {
		return teamNames[t]
	}
	return fmt.Sprintf("team(%d)", int(t))
}

// Valid reports whether t is one of the known teams.
func (t Team) Valid() bool {
	return t >= 0 && t < NumTeams
}

// ParseTeam resolves a team name (case-insensitive) or its numeric index.
func ParseTeam(s string) (Team, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range teamNames {
		if s == name {
			return Team(i), nil
		}
	}
	if idx, err := strconv.Atoi(s); err == nil && Team(idx).Valid() {
		return Team(idx), nil
	}
	return 0, fmt.Errorf("unknown team %q", s)
}

// Allocation is a shield/weapon/engine power split.
type Allocation struct {
	Shield float64 `json:"shield"`
	Weapon float64 `json:"weapon"`
	Engine float64 `json:"engine"`
}

// Sum returns the total of the three fractions.
func (a Allocation) Sum() float64 {
	return a.Shield + a.Weapon + a.Engine
}
