package team

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []core.Event
}

func (r *recorder) Emit(e core.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func newTestRegistry(t *testing.T) (*Registry, *recorder) {
	t.Helper()
	rec := &recorder{}
	r := NewRegistry(Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sink:   rec,
		Config: config.TeamConfig{
			FriendlyFireAvoidance: true,
			Factions: map[string]string{
				"terran":   "friendly",
				"vasudan":  "friendly",
				"shivan":   "hostile",
				"civilian": "neutral",
				"pirates":  "scallywags",
			},
		},
	})
	return r, rec
}

func TestRelationship_DefaultMatrixSymmetric(t *testing.T) {
	for a := core.Team(0); a < core.NumTeams; a++ {
		for b := core.Team(0); b < core.NumTeams; b++ {
			assert.Equal(t, Relationship(a, b), Relationship(b, a), "%s/%s", a, b)
		}
		assert.Equal(t, Friendly, Relationship(a, a))
	}
	assert.Equal(t, Hostile, Relationship(core.TeamFriendly, core.TeamHostile))
	assert.Equal(t, Neutral, Relationship(core.TeamFriendly, core.TeamNeutral))
	assert.Equal(t, Hostile, Relationship(core.TeamUnknown, core.TeamFriendly))
	assert.Equal(t, Neutral, Relationship(core.Team(9), core.TeamHostile))
}

func TestTerranVersusShivan(t *testing.T) {
	r, _ := newTestRegistry(t)
	terran, ok := r.TeamForFaction("Terran")
	require.True(t, ok)
	shivan, ok := r.TeamForFaction("SHIVAN")
	require.True(t, ok)

	require.NoError(t, r.Register(1, "Alpha 1", terran, "Terran", "TF"))
	require.NoError(t, r.Register(2, "Dragon 1", shivan, "Shivan", "SH"))

	rel, err := r.ShipRelationship(1, 2)
	require.NoError(t, err)
	assert.Equal(t, Hostile, rel)
	rel, err = r.ShipRelationship(2, 1)
	require.NoError(t, err)
	assert.Equal(t, Hostile, rel)

	assert.True(t, r.CanTarget(1, 2))
	assert.True(t, r.CanTarget(2, 1))
}

func TestFactionDefaults_SkipInvalid(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, ok := r.TeamForFaction("pirates")
	assert.False(t, ok)
}

func TestRegister(t *testing.T) {
	r, _ := newTestRegistry(t)

	require.NoError(t, r.Register(1, "Alpha 1", core.TeamFriendly, "Terran", "TF"))
	err := r.Register(1, "Alpha 1", core.TeamFriendly, "Terran", "TF")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	err = r.Register(2, "Ghost", core.Team(7), "", "")
	assert.ErrorIs(t, err, ErrInvalidTeam)

	assert.Equal(t, []ID{1}, r.Members(core.TeamFriendly))
	assert.Equal(t, []ID{1}, r.ByIFF("TF"))
	assert.Equal(t, 1, r.Len())
}

func TestUnregister_RemovesReferences(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Register(1, "Alpha 1", core.TeamFriendly, "", "TF"))
	require.NoError(t, r.Register(2, "Dragon 1", core.TeamHostile, "", "SH"))
	require.NoError(t, r.Ignore(1, 2))

	require.NoError(t, r.Unregister(2))
	assert.Empty(t, r.Members(core.TeamHostile))
	assert.Empty(t, r.ByIFF("SH"))
	e, ok := r.Entry(1)
	require.True(t, ok)
	assert.Empty(t, e.Ignored)

	assert.ErrorIs(t, r.Unregister(2), ErrUnknownShip)
}

func TestSetTeam(t *testing.T) {
	r, rec := newTestRegistry(t)
	require.NoError(t, r.Register(1, "Alpha 1", core.TeamFriendly, "", ""))

	require.NoError(t, r.SetTeam(1, core.TeamHostile, "traitor"))
	e, _ := r.Entry(1)
	assert.Equal(t, core.TeamHostile, e.Team)
	assert.Equal(t, core.TeamHostile, e.ObservedTeam)
	assert.Empty(t, r.Members(core.TeamFriendly))
	assert.Equal(t, []ID{1}, r.Members(core.TeamHostile))

	require.Len(t, rec.events, 1)
	assert.Equal(t, core.Event{
		Kind:   core.EventTeamChanged,
		Ship:   "Alpha 1",
		From:   "friendly",
		To:     "hostile",
		Reason: "traitor",
	}, rec.events[0])

	assert.ErrorIs(t, r.SetTeam(1, core.Team(-1), ""), ErrInvalidTeam)
	assert.ErrorIs(t, r.SetTeam(9, core.TeamHostile, ""), ErrUnknownShip)
	require.NoError(t, r.SetTeam(1, core.TeamHostile, "again"))
	assert.Len(t, rec.events, 1, "no event when the team does not change")
}

func TestSetTeam_KeepsObservedOverride(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Register(1, "Spy", core.TeamHostile, "", ""))
	require.NoError(t, r.SetObservedTeam(1, core.TeamFriendly))

	require.NoError(t, r.SetTeam(1, core.TeamNeutral, "defect"))
	e, _ := r.Entry(1)
	assert.Equal(t, core.TeamNeutral, e.Team)
	assert.Equal(t, core.TeamFriendly, e.ObservedTeam)

	require.NoError(t, r.ClearObservedTeam(1))
	e, _ = r.Entry(1)
	assert.Equal(t, core.TeamNeutral, e.ObservedTeam)
	assert.False(t, e.ObservedOverride)
}

func TestObservedTeam_Deception(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Register(1, "Alpha 1", core.TeamFriendly, "", ""))
	require.NoError(t, r.Register(2, "Disguised", core.TeamHostile, "", ""))
	require.NoError(t, r.SetObservedTeam(2, core.TeamFriendly))

	rel, err := r.ShipRelationship(1, 2)
	require.NoError(t, err)
	assert.Equal(t, Friendly, rel)
	assert.False(t, r.CanTarget(1, 2))

	rel, err = r.ShipRelationship(2, 1)
	require.NoError(t, err)
	assert.Equal(t, Hostile, rel, "the disguised ship still sees its real enemies")
}

func TestFactionRelationship(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Register(1, "Alpha 1", core.TeamFriendly, "Terran", ""))
	require.NoError(t, r.Register(2, "Seth 1", core.TeamHostile, "Vasudan", ""))

	rel, _ := r.ShipRelationship(1, 2)
	assert.Equal(t, Hostile, rel)

	require.NoError(t, r.SetFactionRelationship("Vasudan", "terran", Friendly, false))
	rel, _ = r.ShipRelationship(1, 2)
	assert.Equal(t, Friendly, rel)
	rel, _ = r.ShipRelationship(2, 1)
	assert.Equal(t, Friendly, rel, "overrides are symmetric")

	require.NoError(t, r.SetFactionRelationship("Terran", "Vasudan", Neutral, true))
	err := r.SetFactionRelationship("Terran", "Vasudan", Hostile, false)
	assert.ErrorIs(t, err, ErrPermanentRelationship)
	got, ok := r.FactionRelationship("vasudan", "TERRAN")
	assert.True(t, ok)
	assert.Equal(t, Neutral, got)

	assert.ErrorIs(t, r.SetFactionRelationship("a", "b", Relation(7), false), ErrInvalidRelation)
}

func TestFactionOverride_SameTeamStaysFriendly(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Register(1, "Alpha 1", core.TeamFriendly, "Terran", ""))
	require.NoError(t, r.Register(2, "Seth 1", core.TeamFriendly, "Vasudan", ""))
	require.NoError(t, r.SetFactionRelationship("Terran", "Vasudan", Hostile, false))

	for _, pair := range [][2]ID{{1, 2}, {2, 1}} {
		rel, err := r.ShipRelationship(pair[0], pair[1])
		require.NoError(t, err)
		assert.Equal(t, Friendly, rel, "%d -> %d", pair[0], pair[1])
		assert.False(t, r.CanTarget(pair[0], pair[1]), "%d -> %d", pair[0], pair[1])
	}
	assert.Empty(t, r.ValidTargets(1, core.TeamFriendly))

	// Once the teams differ the override applies again.
	require.NoError(t, r.SetTeam(2, core.TeamNeutral, "defected"))
	rel, _ := r.ShipRelationship(1, 2)
	assert.Equal(t, Hostile, rel)
	assert.True(t, r.CanTarget(1, 2))
}

func TestCanTarget_Rules(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Register(1, "Alpha 1", core.TeamFriendly, "", ""))
	require.NoError(t, r.Register(2, "Alpha 2", core.TeamFriendly, "", ""))
	require.NoError(t, r.Register(3, "Dragon 1", core.TeamHostile, "", ""))
	require.NoError(t, r.Register(4, "Tri 1", core.TeamNeutral, "", ""))

	assert.False(t, r.CanTarget(1, 1), "self")
	assert.False(t, r.CanTarget(1, 2), "friendly fire avoidance")
	assert.True(t, r.CanTarget(1, 3))
	assert.True(t, r.CanTarget(1, 4), "neutral targets are allowed")
	assert.False(t, r.CanTarget(1, 99), "unknown target")
	assert.False(t, r.CanTarget(99, 1), "unknown attacker")

	require.NoError(t, r.Ignore(1, 3))
	assert.False(t, r.CanTarget(1, 3))
	assert.True(t, r.CanTarget(3, 1), "ignore lists are one way")
	require.NoError(t, r.Unignore(1, 3))
	assert.True(t, r.CanTarget(1, 3))
}

func TestCanTarget_FriendlyFireAllowed(t *testing.T) {
	r := NewRegistry(Options{Config: config.TeamConfig{FriendlyFireAvoidance: false}})
	require.NoError(t, r.Register(1, "Alpha 1", core.TeamFriendly, "", ""))
	require.NoError(t, r.Register(2, "Alpha 2", core.TeamFriendly, "", ""))

	assert.True(t, r.CanTarget(1, 2))

	require.NoError(t, r.SetSensorVisibility(2, true, false))
	assert.True(t, r.CanTarget(1, 2), "stealth does not hide from friends")
	require.NoError(t, r.SetSensorVisibility(2, true, true))
	assert.False(t, r.CanTarget(1, 2))
}

func TestCanTarget_Stealth(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Register(1, "Alpha 1", core.TeamFriendly, "", ""))
	require.NoError(t, r.Register(3, "Dragon 1", core.TeamHostile, "", ""))

	require.NoError(t, r.SetSensorVisibility(3, true, false))
	assert.False(t, r.CanTarget(1, 3))

	require.NoError(t, r.SetSensorVisibility(3, false, true))
	e, _ := r.Entry(3)
	assert.False(t, e.FriendlyInvisible, "friendly invisibility needs stealth")
	assert.True(t, r.CanTarget(1, 3))
}

func TestValidTargets(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Register(1, "Alpha 1", core.TeamFriendly, "", ""))
	require.NoError(t, r.Register(5, "Dragon 2", core.TeamHostile, "", ""))
	require.NoError(t, r.Register(3, "Dragon 1", core.TeamHostile, "", ""))
	require.NoError(t, r.Register(4, "Tri 1", core.TeamNeutral, "", ""))
	require.NoError(t, r.Register(6, "Bogey", core.TeamUnknown, "", ""))
	require.NoError(t, r.Register(7, "Ghost", core.TeamHostile, "", ""))
	require.NoError(t, r.SetSensorVisibility(7, true, false))

	assert.Equal(t, []ID{3, 5, 6}, r.ValidTargets(1))
	assert.Equal(t, []ID{4}, r.ValidTargets(1, core.TeamNeutral))
	assert.Empty(t, r.ValidTargets(1, core.TeamFriendly))
	assert.Nil(t, r.ValidTargets(42))
}

func TestRelationNames(t *testing.T) {
	rel, err := ParseRelation(" Hostile ")
	require.NoError(t, err)
	assert.Equal(t, Hostile, rel)
	assert.Equal(t, "neutral", Neutral.String())

	_, err = ParseRelation("frenemy")
	assert.ErrorIs(t, err, ErrInvalidRelation)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r, _ := newTestRegistry(t)
	for i := 1; i <= 20; i++ {
		team := core.TeamFriendly
		if i%2 == 0 {
			team = core.TeamHostile
		}
		require.NoError(t, r.Register(ID(i), fmt.Sprintf("ship %d", i), team, "", ""))
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := ID(i%20 + 1)
				if w == 0 {
					team := core.TeamHostile
					if i%2 == 0 {
						team = core.TeamFriendly
					}
					_ = r.SetTeam(id, team, "churn")
					continue
				}
				r.ValidTargets(id)
				r.CanTarget(id, ID((i+1)%20+1))
				r.Members(core.TeamHostile)
			}
		}(w)
	}
	wg.Wait()

	total := len(r.Members(core.TeamFriendly)) + len(r.Members(core.TeamHostile))
	assert.Equal(t, 20, total)
}
