package ship

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/internal/lifecycle"
	"github.com/shipcore/shipcore/internal/shipclass"
	"github.com/shipcore/shipcore/internal/shipstate"
	"github.com/shipcore/shipcore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	events []core.Event
}

func (s *sink) Emit(e core.Event) { s.events = append(s.events, e) }

func (s *sink) count(kind core.EventKind) int {
	n := 0
	for _, e := range s.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

var testClass = shipclass.Class{
	Name:                   "Test Fighter",
	MaxHull:                100,
	MaxShield:              80,
	MaxWeaponEnergy:        50,
	MaxAfterburnerFuel:     40,
	MaxVelocity:            70,
	MaxAfterburnerVelocity: 120,
	Acceleration:           20,
	Mass:                   30,
	Faction:                "Terran",
}

func newTestShip(t *testing.T) (*Ship, *sink) {
	t.Helper()
	out := &sink{}
	s, err := New(Options{
		ID:        7,
		Class:     testClass,
		Spawn:     core.SpawnData{ShipClass: testClass.Name, Name: "Alpha 1", Team: core.TeamFriendly, IFF: "TF"},
		Rates:     config.DefaultShipConfig(),
		Lifecycle: config.DefaultLifecycleConfig(),
		Combat:    config.DefaultCombatConfig(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sink:      out,
	})
	require.NoError(t, err)
	return s, out
}

func activate(t *testing.T, s *Ship) {
	t.Helper()
	require.True(t, s.Lifecycle().BeginArrival(core.Vector3{}, ""))
	s.Update(2500 * time.Millisecond)
	s.Update(2500 * time.Millisecond)
	require.Equal(t, shipstate.Active, s.State().State())
}

func TestNew_FromClassAndSpawn(t *testing.T) {
	out := &sink{}
	s, err := New(Options{
		Class: testClass,
		Spawn: core.SpawnData{
			Name:              "Beta 1",
			Team:              core.TeamHostile,
			Position:          core.Vector3{X: 1, Y: 2, Z: 3},
			InitialHullPct:    50,
			InitialShieldsPct: 25,
		},
		Sink: out,
	})
	require.NoError(t, err)

	assert.Equal(t, "Beta 1", s.Name())
	assert.Equal(t, "Test Fighter", s.Class())
	assert.Equal(t, core.TeamHostile, s.Team())
	assert.Equal(t, "Terran", s.Faction(), "faction falls back to the class default")
	assert.Equal(t, 50.0, s.Hull())
	assert.Equal(t, 20.0, s.Shield())
	assert.Equal(t, core.Vector3{X: 1, Y: 2, Z: 3}, s.Position())
	assert.Equal(t, Indices{4, 4, 4}, s.Indices())
	assert.Equal(t, shipstate.NotPresent, s.State().State())
	assert.Equal(t, 1, out.count(core.EventShipCreated))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Class: testClass})
	assert.ErrorIs(t, err, ErrNoName)

	_, err = New(Options{Class: testClass, Spawn: core.SpawnData{Name: "x", Team: core.Team(9)}})
	assert.Error(t, err)
}

func TestHostFlags(t *testing.T) {
	s, _ := newTestShip(t)

	require.True(t, s.State().SetFlag(shipstate.FlagDisabled, true))
	assert.True(t, s.Disabled())
	require.True(t, s.State().SetFlag(shipstate.FlagNoShields, true))
	assert.True(t, s.ShieldsOffline())
	require.True(t, s.State().SetFlag(shipstate.FlagImmobile, true))
	assert.True(t, s.Immobile())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s, _ := newTestShip(t)
	activate(t, s)
	require.True(t, s.SetAllocation(0.5, 0.25, 0.25))
	require.True(t, s.State().SetMissionFlag(int(shipstate.FlagEscort), true))
	s.SetPosition(core.Vector3{X: 10, Y: 20, Z: 30})
	s.ApplyHullDamage(30)
	require.True(t, s.Lifecycle().BeginDeparture(core.Vector3{}, "", true))
	s.Update(time.Second)

	payload := s.Save()
	assert.Equal(t, "DEPARTING_1", payload.State)
	assert.Equal(t, "NORMAL", payload.CombatState)
	assert.Equal(t, uint8(1<<shipstate.FlagEscort), payload.MissionFlags)
	assert.Equal(t, 70.0, payload.Hull)
	assert.Equal(t, 1500*time.Millisecond, payload.PendingTimers[lifecycle.TimerDeparture])

	restored, _ := newTestShip(t)
	require.NoError(t, restored.Load(payload))

	assert.Equal(t, shipstate.Departing1, restored.State().State())
	assert.True(t, restored.State().Has(shipstate.FlagEscort))
	assert.False(t, restored.State().Has(shipstate.FlagDepartingWarp), "runtime flags are session-only")
	assert.Equal(t, 70.0, restored.Hull())
	assert.Equal(t, core.Allocation{Shield: 0.5, Weapon: 0.25, Engine: 0.25}, restored.Allocation())
	assert.Equal(t, Indices{6, 3, 3}, restored.Indices())
	assert.Equal(t, core.Vector3{X: 10, Y: 20, Z: 30}, restored.Position())

	restored.Update(1500 * time.Millisecond)
	assert.Equal(t, shipstate.Departing2, restored.State().State())
}

func TestSaveLoad_Destroyed(t *testing.T) {
	s, _ := newTestShip(t)
	activate(t, s)
	s.ApplyHullDamage(500)
	s.Update(500 * time.Millisecond)

	payload := s.Save()
	assert.Equal(t, "DESTROYED", payload.State)
	assert.Equal(t, "DEATH_ROLL", payload.CombatState)
	assert.Equal(t, 2500*time.Millisecond, payload.PendingTimers["combat"])
	assert.Equal(t, 2500*time.Millisecond, payload.PendingTimers[lifecycle.TimerDeath])

	restored, out := newTestShip(t)
	require.NoError(t, restored.Load(payload))
	assert.True(t, restored.State().Has(shipstate.FlagDying))
	assert.Equal(t, 0.0, restored.ApplyHullDamage(10))

	restored.Update(2500 * time.Millisecond)
	assert.Equal(t, shipstate.CombatPreExplosion, restored.State().CombatState())
	assert.Equal(t, 1, out.count(core.EventShipExploded))
}

func TestSaveLoad_DestroyedAfterCleanup(t *testing.T) {
	s, _ := newTestShip(t)
	activate(t, s)
	s.ApplyHullDamage(500)
	for i := 0; i < 10 && !s.Lifecycle().Finished(); i++ {
		s.Update(5 * time.Second)
	}
	require.True(t, s.Lifecycle().Finished())

	payload := s.Save()
	assert.Empty(t, payload.PendingTimers)

	restored, _ := newTestShip(t)
	require.NoError(t, restored.Load(payload))
	assert.True(t, restored.Lifecycle().Finished())
}

func TestLoad_RejectsUnknownState(t *testing.T) {
	s, _ := newTestShip(t)
	err := s.Load(core.ShipPayload{State: "HYPERSPACE"})
	assert.Error(t, err)
	assert.Equal(t, shipstate.NotPresent, s.State().State())
}

func TestLoad_InvalidAllocationBalances(t *testing.T) {
	s, _ := newTestShip(t)
	require.NoError(t, s.Load(core.ShipPayload{
		State:      "ACTIVE",
		Hull:       50,
		Allocation: core.Allocation{Shield: 1, Weapon: 1, Engine: 1},
	}))
	assert.Equal(t, Indices{4, 4, 4}, s.Indices())
}

func TestSnapshot(t *testing.T) {
	s, _ := newTestShip(t)
	activate(t, s)
	s.SetVelocity(core.Vector3{X: 3, Y: 4})

	snap := s.Snapshot()
	assert.Equal(t, core.ShipID(7), snap.ID)
	assert.Equal(t, "ACTIVE", snap.State)
	assert.Equal(t, 5.0, snap.Speed)
	assert.InDelta(t, 1.0, snap.OverallPerformance, 1e-9)
}
