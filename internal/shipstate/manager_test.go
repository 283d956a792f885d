package shipstate

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []core.Event
}

func (r *recordingSink) Emit(e core.Event) {
	r.events = append(r.events, e)
}

func (r *recordingSink) kinds() []core.EventKind {
	out := make([]core.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *recordingSink) flagChanges() map[string]bool {
	out := make(map[string]bool)
	for _, e := range r.events {
		if e.Kind == core.EventFlagChanged {
			out[e.Flag] = e.Enabled
		}
	}
	return out
}

type fakeHost struct {
	disabled, immobile, shieldsOffline, abLocked bool
}

func (h *fakeHost) SetDisabled(v bool)          { h.disabled = v }
func (h *fakeHost) SetImmobile(v bool)          { h.immobile = v }
func (h *fakeHost) SetShieldsOffline(v bool)    { h.shieldsOffline = v }
func (h *fakeHost) SetAfterburnerLocked(v bool) { h.abLocked = v }

func newTestManager(t *testing.T) (*Manager, *recordingSink, *fakeHost, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	sink := &recordingSink{}
	host := &fakeHost{}
	m := New(Options{
		Ship:   "Alpha 1",
		Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Sink:   sink,
		Host:   host,
		Combat: config.DefaultCombatConfig(),
	})
	return m, sink, host, &buf
}

func walk(t *testing.T, m *Manager, states ...State) {
	t.Helper()
	for _, s := range states {
		require.True(t, m.SetState(s), "transition to %s", s)
	}
}

func TestSetState_FollowsAdjacencyOnly(t *testing.T) {
	for _, from := range AllStates() {
		for _, to := range AllStates() {
			m, _, _, _ := newTestManager(t)
			m.Restore(from, 0, CombatNormal, 0)

			ok := m.SetState(to)
			assert.Equal(t, CanTransition(from, to), ok, "%s -> %s", from, to)
			if ok {
				assert.Equal(t, to, m.State())
				assert.Equal(t, from, m.PreviousState())
			} else {
				assert.Equal(t, from, m.State(), "state must be unchanged after rejected %s -> %s", from, to)
			}
		}
	}
}

func TestSetState_RejectionLogsWarning(t *testing.T) {
	m, sink, _, buf := newTestManager(t)

	assert.False(t, m.SetState(Active))
	assert.Equal(t, NotPresent, m.State())
	assert.Contains(t, buf.String(), "rejected lifecycle transition")
	assert.Empty(t, sink.events)
}

func TestSetState_TerminalStates(t *testing.T) {
	assert.True(t, Exited.Terminal())
	assert.True(t, Destroyed.Terminal())
	for _, to := range AllStates() {
		assert.False(t, CanTransition(Exited, to))
		assert.False(t, CanTransition(Destroyed, to))
	}
}

func TestSetState_EmitsStateChanged(t *testing.T) {
	m, sink, _, _ := newTestManager(t)

	walk(t, m, Arriving1)

	var found bool
	for _, e := range sink.events {
		if e.Kind == core.EventStateChanged {
			found = true
			assert.Equal(t, "NOT_PRESENT", e.From)
			assert.Equal(t, "ARRIVING_1", e.To)
			assert.Equal(t, "Alpha 1", e.Ship)
		}
	}
	assert.True(t, found)
}

func TestSetState_RecordsTransitionTime(t *testing.T) {
	now := 5 * time.Second
	m := New(Options{Clock: func() time.Duration { return now }})

	walk(t, m, Arriving1)
	assert.Equal(t, 5*time.Second, m.TransitionTime())
}

func TestEnterActive_ClearsDisabledAndArriving(t *testing.T) {
	m, _, host, _ := newTestManager(t)

	walk(t, m, Arriving1)
	assert.True(t, m.Has(FlagArriving))
	require.True(t, m.SetRuntimeFlag(int(FlagDisabled), true))
	assert.True(t, host.disabled)

	walk(t, m, Arriving2, Active)
	assert.False(t, m.Has(FlagDisabled))
	assert.False(t, m.Has(FlagArriving))
	assert.False(t, host.disabled)
}

func TestEnterDestroyed_SetsDyingAndDeathRoll(t *testing.T) {
	m, sink, _, _ := newTestManager(t)

	walk(t, m, Arriving1, Arriving2, Active, Destroyed)

	assert.True(t, m.Has(FlagDying))
	assert.Equal(t, CombatDeathRoll, m.CombatState())
	assert.Equal(t, 3*time.Second, m.CombatRemaining())
	assert.Contains(t, sink.kinds(), core.EventCombatStateChanged)
}

func TestEnterDestroyed_ResetsStaleCombatState(t *testing.T) {
	m, sink, _, _ := newTestManager(t)

	walk(t, m, Arriving1, Arriving2, Active)
	m.combatState = CombatExploding
	m.combatRemaining = time.Millisecond

	walk(t, m, Destroyed)
	assert.Equal(t, CombatDeathRoll, m.CombatState())
	assert.Equal(t, 3*time.Second, m.CombatRemaining())

	changes := combatChanges(sink)
	require.Len(t, changes, 1)
	assert.Equal(t, [2]string{"NORMAL", "DEATH_ROLL"}, changes[0])
}

func TestCombatState_RejectedWhileAlive(t *testing.T) {
	m, sink, _, buf := newTestManager(t)

	walk(t, m, Arriving1, Arriving2, Active)
	assert.False(t, m.SetCombatState(CombatDeathRoll))
	assert.Equal(t, CombatNormal, m.CombatState())
	assert.Contains(t, buf.String(), "rejected combat transition")

	for i := 0; i < 5; i++ {
		m.ProcessCombatState(10 * time.Second)
	}
	assert.Equal(t, CombatNormal, m.CombatState())
	assert.False(t, m.Has(FlagDying))
	assert.Empty(t, combatChanges(sink))
}

func TestRestore_DropsCombatStateWhenAlive(t *testing.T) {
	m, sink, _, _ := newTestManager(t)

	m.Restore(Active, 0, CombatPreExplosion, 400*time.Millisecond)
	assert.Equal(t, CombatNormal, m.CombatState())
	assert.Zero(t, m.CombatRemaining())

	m.ProcessCombatState(time.Second)
	assert.Equal(t, CombatNormal, m.CombatState())
	assert.Empty(t, sink.events)
}

func TestSetCombatState_RejectsNonSuccessor(t *testing.T) {
	tests := []struct {
		name string
		from CombatState
		to   CombatState
	}{
		{"skip death roll to exploding", CombatDeathRoll, CombatExploding},
		{"skip death roll to cleanup", CombatDeathRoll, CombatCleanup},
		{"skip normal to pre-explosion", CombatNormal, CombatPreExplosion},
		{"backward to normal", CombatPreExplosion, CombatNormal},
		{"backward one stage", CombatExploding, CombatPreExplosion},
		{"same stage", CombatDeathRoll, CombatDeathRoll},
		{"past cleanup", CombatCleanup, CombatCleanup + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, sink, _, buf := newTestManager(t)
			m.Restore(Destroyed, 0, tt.from, time.Second)

			assert.False(t, m.SetCombatState(tt.to))
			assert.Equal(t, tt.from, m.CombatState())
			assert.Contains(t, buf.String(), "rejected combat transition")
			assert.Empty(t, sink.events)
		})
	}
}

func TestProcessCombatState_LargeStepsStayContiguous(t *testing.T) {
	m, sink, _, _ := newTestManager(t)

	walk(t, m, Arriving1, Arriving2, Active, Destroyed)
	for i := 0; i < 10; i++ {
		m.ProcessCombatState(time.Minute)
	}

	changes := combatChanges(sink)
	assert.Equal(t, [][2]string{
		{"NORMAL", "DEATH_ROLL"},
		{"DEATH_ROLL", "PRE_EXPLOSION"},
		{"PRE_EXPLOSION", "EXPLODING"},
		{"EXPLODING", "CLEANUP"},
	}, changes)
	for i := 1; i < len(changes); i++ {
		assert.Equal(t, changes[i-1][1], changes[i][0], "stage %d", i)
	}
	assert.Equal(t, CombatCleanup, m.CombatState())
}

func combatChanges(sink *recordingSink) [][2]string {
	var out [][2]string
	for _, e := range sink.events {
		if e.Kind == core.EventCombatStateChanged {
			out = append(out, [2]string{e.From, e.To})
		}
	}
	return out
}

func TestMissionFlags_Range(t *testing.T) {
	m, sink, _, _ := newTestManager(t)

	assert.True(t, m.SetMissionFlag(0, true))
	assert.True(t, m.SetMissionFlag(7, true))
	assert.False(t, m.SetMissionFlag(8, true))
	assert.False(t, m.SetMissionFlag(-1, true))
	assert.Equal(t, uint8(0b1000_0001), m.MissionFlags())
	assert.True(t, m.Has(FlagCargoKnown))
	assert.True(t, m.Has(FlagFromPlayerWing))
	assert.Equal(t, map[string]bool{"cargo_known": true, "from_player_wing": true}, sink.flagChanges())
}

func TestRuntimeFlags_Range(t *testing.T) {
	m, _, _, buf := newTestManager(t)

	assert.False(t, m.SetRuntimeFlag(7, true))
	assert.False(t, m.SetRuntimeFlag(32, true))
	assert.True(t, m.SetRuntimeFlag(31, true))
	assert.True(t, m.Has(FlagIgnoreCount))
	assert.Contains(t, buf.String(), "runtime flag index out of range")
}

func TestRuntimeFlags_RequiresRule(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	assert.False(t, m.SetRuntimeFlag(int(FlagFriendlyStealthInvisible), true))
	assert.False(t, m.Has(FlagFriendlyStealthInvisible))

	require.True(t, m.SetRuntimeFlag(int(FlagStealth), true))
	assert.True(t, m.SetRuntimeFlag(int(FlagFriendlyStealthInvisible), true))
}

func TestRuntimeFlags_StealthImpliesHidden(t *testing.T) {
	m, sink, _, _ := newTestManager(t)

	require.True(t, m.SetRuntimeFlag(int(FlagStealth), true))
	assert.True(t, m.Has(FlagHiddenFromSensors))
	assert.Equal(t, map[string]bool{"stealth": true, "hidden_from_sensors": true}, sink.flagChanges())
}

func TestRuntimeFlags_ClearCascadesToDependents(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	require.True(t, m.SetRuntimeFlag(int(FlagStealth), true))
	require.True(t, m.SetRuntimeFlag(int(FlagFriendlyStealthInvisible), true))

	require.True(t, m.SetRuntimeFlag(int(FlagStealth), false))
	assert.False(t, m.Has(FlagStealth))
	assert.False(t, m.Has(FlagFriendlyStealthInvisible))
	assert.False(t, m.Has(FlagHiddenFromSensors))
}

func TestRuntimeFlags_ClearUndoesOnlyImpliedFlags(t *testing.T) {
	m, sink, _, _ := newTestManager(t)

	require.True(t, m.SetRuntimeFlag(int(FlagStealth), true))
	sink.events = nil
	require.True(t, m.SetRuntimeFlag(int(FlagStealth), false))
	assert.False(t, m.Has(FlagHiddenFromSensors))
	assert.Equal(t, map[string]bool{"stealth": false, "hidden_from_sensors": false}, sink.flagChanges())

	// set directly before stealth, so it survives
	require.True(t, m.SetRuntimeFlag(int(FlagHiddenFromSensors), true))
	require.True(t, m.SetRuntimeFlag(int(FlagStealth), true))
	require.True(t, m.SetRuntimeFlag(int(FlagStealth), false))
	assert.True(t, m.Has(FlagHiddenFromSensors))

	// set directly after being implied, so it survives too
	require.True(t, m.SetRuntimeFlag(int(FlagHiddenFromSensors), false))
	require.True(t, m.SetRuntimeFlag(int(FlagStealth), true))
	require.True(t, m.SetRuntimeFlag(int(FlagHiddenFromSensors), true))
	require.True(t, m.SetRuntimeFlag(int(FlagStealth), false))
	assert.True(t, m.Has(FlagHiddenFromSensors))

	require.True(t, m.SetRuntimeFlag(int(FlagScanned), true))
	assert.True(t, m.Has(FlagScannable))
	require.True(t, m.SetRuntimeFlag(int(FlagScanned), false))
	assert.False(t, m.Has(FlagScannable))
}

func TestRuntimeFlags_DyingExploded(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	assert.False(t, m.SetRuntimeFlag(int(FlagExploded), true), "exploded requires dying")
	require.True(t, m.SetRuntimeFlag(int(FlagDying), true))
	require.True(t, m.SetRuntimeFlag(int(FlagExploded), true))

	before := m.RuntimeFlags()
	assert.False(t, m.SetRuntimeFlag(int(FlagDying), false), "dying cannot be cleared while exploded")
	assert.Equal(t, before, m.RuntimeFlags())
}

func TestRuntimeFlags_DepartureModesConflict(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	require.True(t, m.SetRuntimeFlag(int(FlagDepartingWarp), true))
	assert.False(t, m.SetRuntimeFlag(int(FlagDepartingDock), true))
	require.True(t, m.SetRuntimeFlag(int(FlagDepartingWarp), false))
	assert.True(t, m.SetRuntimeFlag(int(FlagDepartingDock), true))
}

func TestRuntimeFlags_SideEffects(t *testing.T) {
	m, _, host, _ := newTestManager(t)

	require.True(t, m.SetFlag(FlagNoShields, true))
	require.True(t, m.SetFlag(FlagAfterburnerLocked, true))
	require.True(t, m.SetFlag(FlagImmobile, true))
	assert.True(t, host.shieldsOffline)
	assert.True(t, host.abLocked)
	assert.True(t, host.immobile)

	require.True(t, m.SetFlag(FlagNoShields, false))
	assert.False(t, host.shieldsOffline)
}

func TestRuntimeFlags_NoHostIsSafe(t *testing.T) {
	m := New(Options{})
	assert.True(t, m.SetRuntimeFlag(int(FlagDisabled), true))
	assert.True(t, m.Has(FlagDisabled))
}

func TestRuntimeFlags_UnchangedValueEmitsNothing(t *testing.T) {
	m, sink, _, _ := newTestManager(t)

	require.True(t, m.SetRuntimeFlag(int(FlagGuardian), false))
	assert.Empty(t, sink.events)
}

func TestRuntimeBits_Names(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	require.True(t, m.SetFlag(FlagStealth, true))

	assert.Equal(t, []string{"stealth", "hidden_from_sensors"}, m.RuntimeFlags().Names())
}

func TestParseFlag(t *testing.T) {
	f, err := ParseFlag("Friendly_Stealth_Invisible")
	require.NoError(t, err)
	assert.Equal(t, FlagFriendlyStealthInvisible, f)
	assert.True(t, f.IsRuntime())
	assert.False(t, f.IsMission())

	_, err = ParseFlag("warp_drive")
	assert.Error(t, err)
}

func TestParseState(t *testing.T) {
	for _, s := range AllStates() {
		got, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseState("LIMBO")
	assert.Error(t, err)
}

func TestRestore_BypassesValidation(t *testing.T) {
	m, sink, _, _ := newTestManager(t)

	m.Restore(Departing2, 0b0000_0110, CombatNormal, 0)
	assert.Equal(t, Departing2, m.State())
	assert.True(t, m.Has(FlagEscort))
	assert.True(t, m.Has(FlagReinforcement))
	assert.Empty(t, sink.events)

	assert.True(t, m.SetState(Exited))
}

func TestRestore_DestroyedKeepsDying(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	m.Restore(Destroyed, 0, CombatPreExplosion, 400*time.Millisecond)
	assert.True(t, m.Has(FlagDying))
	assert.Equal(t, CombatPreExplosion, m.CombatState())

	m.ProcessCombatState(500 * time.Millisecond)
	assert.Equal(t, CombatExploding, m.CombatState())
}
