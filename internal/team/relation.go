// Package team tracks which side every vessel is on and decides who may
// engage whom.
package team

import (
	"fmt"
	"strings"

	"github.com/shipcore/shipcore/pkg/core"
)

// Relation is how one side regards another.
type Relation int

const (
	Friendly Relation = iota
	Hostile
	Neutral
)

var relationNames = [...]string{"friendly", "hostile", "neutral"}

func (r Relation) String() string {
	if r.Valid() {
		return relationNames[r]
	}
	return fmt.Sprintf("relation(%d)", int(r))
}

// Valid reports whether r is a known relation.
func (r Relation) Valid() bool {
	return r >= Friendly && r <= Neutral
}

// ParseRelation resolves a relation name.
func ParseRelation(s string) (Relation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range relationNames {
		if name == s {
			return Relation(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRelation, s)
}

// defaultMatrix is indexed [a][b] over friendly, hostile, neutral, unknown.
// It is symmetric.
var defaultMatrix = [core.NumTeams][core.NumTeams]Relation{
	core.TeamFriendly: {Friendly, Hostile, Neutral, Hostile},
	core.TeamHostile:  {Hostile, Friendly, Neutral, Hostile},
	core.TeamNeutral:  {Neutral, Neutral, Friendly, Neutral},
	core.TeamUnknown:  {Hostile, Hostile, Neutral, Friendly},
}

// Relationship returns how team a regards team b. Unknown team values are
// treated as neutral.
func Relationship(a, b core.Team) Relation {
	if a == b {
		return Friendly
	}
	if !a.Valid() || !b.Valid() {
		return Neutral
	}
	return defaultMatrix[a][b]
}

type factionPair struct{ a, b string }

func pairOf(fa, fb string) factionPair {
	fa, fb = normalizeFaction(fa), normalizeFaction(fb)
	if fb < fa {
		fa, fb = fb, fa
	}
	return factionPair{fa, fb}
}

func normalizeFaction(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type factionOverride struct {
	rel       Relation
	permanent bool
}
