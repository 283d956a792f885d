package shipstate

import (
	"log/slog"
	"time"

	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/pkg/core"
)

// Host receives flag side effects on the owning vessel.
type Host interface {
	SetDisabled(disabled bool)
	SetImmobile(immobile bool)
	SetShieldsOffline(offline bool)
	SetAfterburnerLocked(locked bool)
}

// Options configures a Manager.
type Options struct {
	Ship   string
	Logger *slog.Logger
	Sink   core.EventSink
	Host   Host
	Combat config.CombatConfig
	// Clock returns the current simulation time; nil reads as zero.
	Clock func() time.Duration
}

// Manager owns one vessel's lifecycle state, flag sets and combat sub-state.
// It is not safe for concurrent use; the simulation tick is its only writer.
type Manager struct {
	ship   string
	log    *slog.Logger
	sink   core.EventSink
	host   Host
	combat config.CombatConfig
	clock  func() time.Duration

	state        State
	prevState    State
	transitionAt time.Duration

	mission uint8
	runtime RuntimeBits
	implied RuntimeBits

	combatState     CombatState
	combatRemaining time.Duration
	combatArmed     bool
}

// New creates a Manager in NOT_PRESENT with no flags set.
func New(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		ship:   opts.Ship,
		log:    log.With("ship", opts.Ship),
		sink:   opts.Sink,
		host:   opts.Host,
		combat: opts.Combat,
		clock:  opts.Clock,
	}
}

// SetHost attaches the vessel receiving flag side effects.
func (m *Manager) SetHost(h Host) {
	m.host = h
}

// SetSink replaces the event sink.
func (m *Manager) SetSink(s core.EventSink) {
	m.sink = s
}

func (m *Manager) now() time.Duration {
	if m.clock == nil {
		return 0
	}
	return m.clock()
}

func (m *Manager) emit(e core.Event) {
	if m.sink == nil {
		return
	}
	e.Ship = m.ship
	e.SimTime = m.now()
	m.sink.Emit(e)
}

// State returns the current lifecycle state.
func (m *Manager) State() State { return m.state }

// PreviousState returns the state before the last transition.
func (m *Manager) PreviousState() State { return m.prevState }

// TransitionTime returns the simulation time of the last transition.
func (m *Manager) TransitionTime() time.Duration { return m.transitionAt }

// CombatState returns the current combat sub-state.
func (m *Manager) CombatState() CombatState { return m.combatState }

// CombatRemaining returns the time left on the combat countdown.
func (m *Manager) CombatRemaining() time.Duration { return m.combatRemaining }

// MissionFlags returns the mission-persistent bitset.
func (m *Manager) MissionFlags() uint8 { return m.mission }

// RuntimeFlags returns the runtime bitset.
func (m *Manager) RuntimeFlags() RuntimeBits { return m.runtime }

// Has reports whether flag f is set in either set.
func (m *Manager) Has(f Flag) bool {
	switch {
	case f.IsMission():
		return m.mission&(1<<f) != 0
	case f.IsRuntime():
		return m.runtime.has(f)
	default:
		return false
	}
}

// SetState moves the lifecycle FSM along one edge of the adjacency table.
// Disallowed edges are logged and rejected without changing anything.
func (m *Manager) SetState(to State) bool {
	from := m.state
	if !CanTransition(from, to) {
		m.log.Warn("rejected lifecycle transition", "from", from.String(), "to", to.String())
		countRejection("lifecycle")
		return false
	}

	m.prevState = from
	m.state = to
	m.transitionAt = m.now()
	countTransition("lifecycle")

	if enter, ok := stateEntry[to]; ok {
		enter(m)
	}

	m.log.Debug("lifecycle transition", "from", from.String(), "to", to.String())
	m.emit(core.Event{Kind: core.EventStateChanged, From: from.String(), To: to.String()})
	return true
}

// stateEntry holds the side effects of entering a state.
var stateEntry = map[State]func(m *Manager){
	Arriving1: func(m *Manager) {
		m.setRuntime(FlagArriving, true)
	},
	Active: func(m *Manager) {
		m.setRuntime(FlagDisabled, false)
		m.setRuntime(FlagArriving, false)
	},
	Departing1: func(m *Manager) {
		m.setRuntime(FlagDeparting, true)
	},
	Exited: func(m *Manager) {
		m.setRuntime(FlagDeparting, false)
	},
	Destroyed: func(m *Manager) {
		m.setRuntime(FlagArriving, false)
		m.setRuntime(FlagDeparting, false)
		m.setRuntime(FlagDying, true)
		m.combatState = CombatNormal
		m.combatRemaining = 0
		m.combatArmed = false
		m.SetCombatState(CombatDeathRoll)
	},
}

// SetMissionFlag sets a mission-persistent flag (index 0-7).
func (m *Manager) SetMissionFlag(idx int, enabled bool) bool {
	if idx < int(firstMissionFlag) || idx > int(lastMissionFlag) {
		m.log.Warn("mission flag index out of range", "index", idx)
		countRejection("flag")
		return false
	}
	f := Flag(idx)
	before := m.mission
	if enabled {
		m.mission |= 1 << f
	} else {
		m.mission &^= 1 << f
	}
	if m.mission != before {
		m.emit(core.Event{Kind: core.EventFlagChanged, Flag: f.String(), Enabled: enabled})
	}
	return true
}

// SetRuntimeFlag sets a runtime flag (index 8-31) after checking the
// dependency table. A violation fails without mutating anything.
func (m *Manager) SetRuntimeFlag(idx int, enabled bool) bool {
	if idx < int(firstRuntimeFlag) || idx > int(lastRuntimeFlag) {
		m.log.Warn("runtime flag index out of range", "index", idx)
		countRejection("flag")
		return false
	}
	return m.setRuntime(Flag(idx), enabled)
}

// SetFlag routes f to the mission or runtime setter.
func (m *Manager) SetFlag(f Flag, enabled bool) bool {
	if f.IsMission() {
		return m.SetMissionFlag(int(f), enabled)
	}
	return m.SetRuntimeFlag(int(f), enabled)
}

func (m *Manager) setRuntime(f Flag, enabled bool) bool {
	plan := make(map[Flag]bool)
	var err error
	if enabled {
		err = planEnable(m.runtime, f, plan)
	} else {
		err = planDisable(m.runtime, m.implied, f, plan)
	}
	if err != nil {
		m.log.Warn("rejected flag change", "flag", f.String(), "enabled", enabled, "reason", err.Error())
		countRejection("flag")
		return false
	}

	for flag := firstRuntimeFlag; flag <= lastRuntimeFlag; flag++ {
		on, ok := plan[flag]
		if !ok {
			continue
		}
		m.runtime = m.runtime.with(flag, on)
		m.implied = m.implied.with(flag, on && flag != f)
	}
	if enabled {
		m.implied = m.implied.with(f, false)
	}
	for flag := firstRuntimeFlag; flag <= lastRuntimeFlag; flag++ {
		on, ok := plan[flag]
		if !ok {
			continue
		}
		if effect, ok := flagEffects[flag]; ok {
			effect(m, on)
		}
		m.emit(core.Event{Kind: core.EventFlagChanged, Flag: flag.String(), Enabled: on})
	}
	return true
}

// flagEffects maps a runtime flag to the side effect applied after it changes.
var flagEffects = map[Flag]func(m *Manager, enabled bool){
	FlagDisabled: func(m *Manager, on bool) {
		if m.host != nil {
			m.host.SetDisabled(on)
		}
	},
	FlagImmobile: func(m *Manager, on bool) {
		if m.host != nil {
			m.host.SetImmobile(on)
		}
	},
	FlagNoShields: func(m *Manager, on bool) {
		if m.host != nil {
			m.host.SetShieldsOffline(on)
		}
	},
	FlagAfterburnerLocked: func(m *Manager, on bool) {
		if m.host != nil {
			m.host.SetAfterburnerLocked(on)
		}
	},
}

// SetCombatState advances the combat sub-state to its immediate successor.
// Any other target is rejected, as is any move while the ship is not
// DESTROYED.
func (m *Manager) SetCombatState(s CombatState) bool {
	from := m.combatState
	if m.state != Destroyed || s != from+1 || s > CombatCleanup {
		m.log.Warn("rejected combat transition", "from", from.String(), "to", s.String())
		countRejection("combat")
		return false
	}
	m.combatState = s
	m.combatRemaining = countdown(m.combat, s)
	m.combatArmed = s != CombatCleanup
	countTransition("combat")

	m.emit(core.Event{Kind: core.EventCombatStateChanged, From: from.String(), To: s.String()})
	return true
}

// ProcessCombatState runs the combat countdown and advances at most one
// stage per call. Overshoot carries into the next stage's countdown.
func (m *Manager) ProcessCombatState(dt time.Duration) {
	if !m.combatArmed {
		return
	}
	m.combatRemaining -= dt
	if m.combatRemaining > 0 {
		return
	}
	overshoot := m.combatRemaining
	if m.SetCombatState(m.combatState + 1) {
		if m.combatArmed {
			m.combatRemaining += overshoot
		}
	}
}

// Restore applies saved state directly, bypassing transition validation and
// side effects. Runtime flags are session-only and start cleared, except
// dying which always accompanies DESTROYED. Combat sub-state is only kept
// for DESTROYED ships.
func (m *Manager) Restore(state State, missionFlags uint8, combat CombatState, combatRemaining time.Duration) {
	m.prevState = m.state
	m.state = state
	m.transitionAt = m.now()
	m.mission = missionFlags
	m.runtime = 0
	m.implied = 0
	if state == Destroyed {
		m.runtime = m.runtime.with(FlagDying, true)
	} else {
		combat, combatRemaining = CombatNormal, 0
	}
	m.combatState = combat
	m.combatRemaining = combatRemaining
	m.combatArmed = combat > CombatNormal && combat < CombatCleanup
}
