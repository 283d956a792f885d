package convert

import (
	"testing"
	"time"

	"github.com/shipcore/shipcore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorToPoint(t *testing.T) {
	pt := vectorToPoint(core.Vector3{X: 10, Y: -20, Z: 30})

	coords, ok := pt.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 10.0, coords.XY.X)
	assert.Equal(t, -20.0, coords.XY.Y)
	assert.Equal(t, 30.0, coords.Z)
}

func TestShipToGorm(t *testing.T) {
	p := core.ShipPayload{
		Name:          "Kappa 1",
		Class:         "SF Dragon",
		State:         "ARRIVING_1",
		Team:          core.TeamHostile,
		ObservedTeam:  core.TeamFriendly,
		Allocation:    core.Allocation{Shield: 1.0 / 3, Weapon: 1.0 / 3, Engine: 1.0 / 3},
		PendingTimers: map[string]time.Duration{"arrival": 2 * time.Second},
	}

	s := ShipToGorm(p, 4)

	assert.Equal(t, 4, s.SortOrder)
	assert.Equal(t, 1, s.Team)
	assert.Equal(t, 0, s.ObservedTeam)
	assert.JSONEq(t, `{"arrival":2000000000}`, string(s.PendingTimers))
	assert.Contains(t, string(s.Allocation), `"shield"`)
}

func TestShipToGorm_NoTimers(t *testing.T) {
	s := ShipToGorm(core.ShipPayload{Name: "Alpha 1"}, 0)
	assert.Equal(t, "{}", string(s.PendingTimers))
}

func TestMissionRoundTrip(t *testing.T) {
	save := core.MissionSave{
		SessionID: "11111111-2222-3333-4444-555555555555",
		Name:      "Patrol",
		SavedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		SimTime:   42 * time.Second,
		Ships: []core.ShipPayload{
			{Name: "Alpha 1", Class: "GTF Ulysses", State: "ACTIVE", CombatState: "NORMAL", Hull: 150, MaxHull: 200,
				Allocation: core.Allocation{Shield: 0.5, Weapon: 0.25, Engine: 0.25}, Position: core.Vector3{X: 1, Y: 2, Z: 3}},
			{Name: "Kappa 1", Class: "SF Dragon", State: "ARRIVING_2", CombatState: "NORMAL", Team: core.TeamHostile,
				PendingTimers: map[string]time.Duration{"arrival": 700 * time.Millisecond}},
		},
	}

	back := MissionToCore(MissionToGorm(save))
	assert.Equal(t, save, back)
}

func TestEventToGorm(t *testing.T) {
	at := time.Now()
	r := EventToGorm("sess", at, core.Event{Kind: core.EventArrivalStarted, Ship: "Alpha 1", Stage: 1, Cue: "warp-in"})

	assert.Equal(t, "sess", r.SessionID)
	assert.Equal(t, at, r.Time)
	assert.Equal(t, "arrival_started", r.Kind)
	assert.Equal(t, 1, r.Stage)
	assert.Equal(t, "warp-in", r.Cue)
}

func TestSnapshotToGorm(t *testing.T) {
	s := SnapshotToGorm("sess", 7, time.Now(), core.ShipSnapshot{
		Name: "Alpha 1", Team: core.TeamNeutral, Hull: 10, OverallPerformance: 0.8,
	})
	assert.Equal(t, uint64(7), s.Tick)
	assert.Equal(t, "neutral", s.Team)
	assert.Equal(t, 0.8, s.Performance)
}
