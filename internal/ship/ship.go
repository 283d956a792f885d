// Package ship implements the in-mission vessel: hull, shields, energy and
// the power allocation dial, driven once per simulation tick.
package ship

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/internal/lifecycle"
	"github.com/shipcore/shipcore/internal/shipclass"
	"github.com/shipcore/shipcore/internal/shipstate"
	"github.com/shipcore/shipcore/pkg/core"
)

// combatTimer is the PendingTimers key of the combat countdown.
const combatTimer = "combat"

// ErrNoName is returned when spawn data carries no vessel name.
var ErrNoName = errors.New("ship name is required")

// Options configures a new Ship.
type Options struct {
	ID        core.ShipID
	Class     shipclass.Class
	Spawn     core.SpawnData
	Rates     config.ShipConfig
	Lifecycle config.LifecycleConfig
	Combat    config.CombatConfig
	Logger    *slog.Logger
	Sink      core.EventSink
	Clock     func() time.Duration
}

// Ship is one vessel. It is driven by a single writer, the simulation tick.
type Ship struct {
	id      core.ShipID
	name    string
	class   string
	team    core.Team
	faction string
	iff     string

	log   *slog.Logger
	sink  core.EventSink
	clock func() time.Duration
	rates config.ShipConfig

	hull, maxHull          float64
	shield, maxShield      float64
	weapon, maxWeapon      float64
	fuel, maxFuel          float64
	maxVelocity            float64
	maxAfterburnerVelocity float64
	acceleration           float64
	mass                   float64

	alloc     core.Allocation
	idx       Indices
	observers []ETSObserver

	// engine, weapon, shield
	perf    [3]float64
	overall float64

	position core.Vector3
	velocity core.Vector3

	afterburner    bool
	disabled       bool
	immobile       bool
	shieldsOffline bool
	abLocked       bool
	hullZeroed     bool

	state *shipstate.Manager
	life  *lifecycle.Controller
}

// New builds a vessel from its class table and spawn data. The vessel starts
// NOT_PRESENT with a balanced allocation and full subsystem performance.
func New(opts Options) (*Ship, error) {
	if opts.Spawn.Name == "" {
		return nil, ErrNoName
	}
	if !opts.Spawn.Team.Valid() {
		return nil, fmt.Errorf("ship %s: invalid team %d", opts.Spawn.Name, opts.Spawn.Team)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	faction := opts.Spawn.Faction
	if faction == "" {
		faction = opts.Class.Faction
	}
	c := opts.Class
	s := &Ship{
		id:                     opts.ID,
		name:                   opts.Spawn.Name,
		class:                  c.Name,
		team:                   opts.Spawn.Team,
		faction:                faction,
		iff:                    opts.Spawn.IFF,
		log:                    log.With("ship", opts.Spawn.Name),
		sink:                   opts.Sink,
		clock:                  opts.Clock,
		rates:                  opts.Rates,
		maxHull:                c.MaxHull,
		maxShield:              c.MaxShield,
		maxWeapon:              c.MaxWeaponEnergy,
		maxFuel:                c.MaxAfterburnerFuel,
		maxVelocity:            c.MaxVelocity,
		maxAfterburnerVelocity: c.MaxAfterburnerVelocity,
		acceleration:           c.Acceleration,
		mass:                   c.Mass,
		perf:                   [3]float64{1, 1, 1},
		overall:                1,
		position:               opts.Spawn.Position,
	}
	s.hull = c.MaxHull * spawnFraction(opts.Spawn.InitialHullPct)
	s.shield = c.MaxShield * spawnFraction(opts.Spawn.InitialShieldsPct)
	s.weapon = c.MaxWeaponEnergy
	s.fuel = c.MaxAfterburnerFuel
	s.idx = Indices{Shield: etsBalanced, Weapon: etsBalanced, Engine: etsBalanced}
	s.alloc = s.idx.Allocation()

	s.state = shipstate.New(shipstate.Options{
		Ship:   s.name,
		Logger: log,
		Sink:   opts.Sink,
		Host:   s,
		Combat: opts.Combat,
		Clock:  opts.Clock,
	})
	s.life = lifecycle.NewController(lifecycle.Options{
		Ship:       s.name,
		Logger:     log,
		Sink:       opts.Sink,
		State:      s.state,
		Positioner: s,
		Timing:     opts.Lifecycle,
		Clock:      opts.Clock,
	})

	s.emit(core.Event{Kind: core.EventShipCreated, Cue: s.class})
	return s, nil
}

// spawnFraction turns a spawn percentage into a fraction; unset means full.
func spawnFraction(pct float64) float64 {
	if pct <= 0 || pct > 100 {
		return 1
	}
	return pct / 100
}

func (s *Ship) emit(e core.Event) {
	if s.sink == nil {
		return
	}
	e.Ship = s.name
	if s.clock != nil {
		e.SimTime = s.clock()
	}
	s.sink.Emit(e)
}

// SetSink replaces the event sink of the vessel and its components.
func (s *Ship) SetSink(sink core.EventSink) {
	s.sink = sink
	s.state.SetSink(sink)
	s.life.SetSink(sink)
}

func (s *Ship) ID() core.ShipID    { return s.id }
func (s *Ship) Name() string       { return s.name }
func (s *Ship) Class() string      { return s.class }
func (s *Ship) Team() core.Team    { return s.team }
func (s *Ship) Faction() string    { return s.faction }
func (s *Ship) IFF() string        { return s.iff }
func (s *Ship) Hull() float64      { return s.hull }
func (s *Ship) MaxHull() float64   { return s.maxHull }
func (s *Ship) Shield() float64    { return s.shield }
func (s *Ship) MaxShield() float64 { return s.maxShield }

// SetTeam records the team assigned by the registry.
func (s *Ship) SetTeam(t core.Team) {
	s.team = t
}

// WeaponEnergy returns the current and maximum weapon energy.
func (s *Ship) WeaponEnergy() (current, max float64) { return s.weapon, s.maxWeapon }

// Fuel returns the current and maximum afterburner fuel.
func (s *Ship) Fuel() (current, max float64) { return s.fuel, s.maxFuel }

// MaxVelocity returns the class cruise and afterburner speed limits.
func (s *Ship) MaxVelocity() (cruise, afterburner float64) {
	return s.maxVelocity, s.maxAfterburnerVelocity
}

// Mass returns the class mass.
func (s *Ship) Mass() float64 { return s.mass }

// Acceleration returns the class acceleration.
func (s *Ship) Acceleration() float64 { return s.acceleration }

// State returns the vessel's state manager.
func (s *Ship) State() *shipstate.Manager { return s.state }

// Lifecycle returns the vessel's lifecycle controller.
func (s *Ship) Lifecycle() *lifecycle.Controller { return s.life }

// Position returns the vessel position.
func (s *Ship) Position() core.Vector3 { return s.position }

// SetPosition places the vessel.
func (s *Ship) SetPosition(p core.Vector3) { s.position = p }

// Velocity returns the vessel velocity.
func (s *Ship) Velocity() core.Vector3 { return s.velocity }

// SetVelocity sets the velocity; it is clamped on the next Update.
func (s *Ship) SetVelocity(v core.Vector3) { s.velocity = v }

// Speed returns the magnitude of the velocity.
func (s *Ship) Speed() float64 {
	v := s.velocity
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// SetDisabled implements shipstate.Host.
func (s *Ship) SetDisabled(v bool) {
	s.disabled = v
	if v {
		s.DeactivateAfterburner()
	}
}

// SetImmobile implements shipstate.Host.
func (s *Ship) SetImmobile(v bool) { s.immobile = v }

// SetShieldsOffline implements shipstate.Host.
func (s *Ship) SetShieldsOffline(v bool) { s.shieldsOffline = v }

// SetAfterburnerLocked implements shipstate.Host.
func (s *Ship) SetAfterburnerLocked(v bool) {
	s.abLocked = v
	if v {
		s.DeactivateAfterburner()
	}
}

// Disabled reports whether the vessel is disabled.
func (s *Ship) Disabled() bool { return s.disabled }

// Immobile reports whether the vessel cannot move.
func (s *Ship) Immobile() bool { return s.immobile }

// ShieldsOffline reports whether shield regeneration is suppressed.
func (s *Ship) ShieldsOffline() bool { return s.shieldsOffline }

// Snapshot returns a read-only view for monitoring.
func (s *Ship) Snapshot() core.ShipSnapshot {
	return core.ShipSnapshot{
		ID:                 s.id,
		Name:               s.name,
		Class:              s.class,
		Team:               s.team,
		State:              s.state.State().String(),
		CombatState:        s.state.CombatState().String(),
		Hull:               s.hull,
		MaxHull:            s.maxHull,
		Shield:             s.shield,
		MaxShield:          s.maxShield,
		WeaponEnergy:       s.weapon,
		Fuel:               s.fuel,
		Allocation:         s.alloc,
		OverallPerformance: s.overall,
		Speed:              s.Speed(),
		AfterburnerActive:  s.afterburner,
	}
}

// Save captures the persistent state of the vessel. ObservedTeam is the
// vessel's own team; the registry owner overwrites it.
func (s *Ship) Save() core.ShipPayload {
	timers := s.life.Pending()
	if rem := s.state.CombatRemaining(); rem > 0 {
		timers[combatTimer] = rem
	}
	if len(timers) == 0 {
		timers = nil
	}
	return core.ShipPayload{
		Name:            s.name,
		Class:           s.class,
		State:           s.state.State().String(),
		CombatState:     s.state.CombatState().String(),
		MissionFlags:    s.state.MissionFlags(),
		Team:            s.team,
		ObservedTeam:    s.team,
		Faction:         s.faction,
		IFF:             s.iff,
		Hull:            s.hull,
		MaxHull:         s.maxHull,
		Shield:          s.shield,
		MaxShield:       s.maxShield,
		WeaponEnergy:    s.weapon,
		MaxWeaponEnergy: s.maxWeapon,
		Fuel:            s.fuel,
		MaxFuel:         s.maxFuel,
		Allocation:      s.alloc,
		Position:        s.position,
		PendingTimers:   timers,
	}
}

// Load restores a saved payload directly, bypassing transition validation.
// Runtime flags start cleared.
func (s *Ship) Load(p core.ShipPayload) error {
	state, err := shipstate.ParseState(p.State)
	if err != nil {
		return fmt.Errorf("loading %s: %w", p.Name, err)
	}
	combat := shipstate.CombatNormal
	if p.CombatState != "" {
		if combat, err = shipstate.ParseCombatState(p.CombatState); err != nil {
			return fmt.Errorf("loading %s: %w", p.Name, err)
		}
	}
	if !p.Team.Valid() {
		return fmt.Errorf("loading %s: invalid team %d", p.Name, p.Team)
	}

	s.team = p.Team
	s.faction = p.Faction
	s.iff = p.IFF
	if p.MaxHull > 0 {
		s.maxHull = p.MaxHull
	}
	if p.MaxShield > 0 {
		s.maxShield = p.MaxShield
	}
	if p.MaxWeaponEnergy > 0 {
		s.maxWeapon = p.MaxWeaponEnergy
	}
	if p.MaxFuel > 0 {
		s.maxFuel = p.MaxFuel
	}
	s.hull = clamp(p.Hull, 0, s.maxHull)
	s.shield = clamp(p.Shield, 0, s.maxShield)
	s.weapon = clamp(p.WeaponEnergy, 0, s.maxWeapon)
	s.fuel = clamp(p.Fuel, 0, s.maxFuel)
	s.position = p.Position
	s.velocity = core.Vector3{}
	s.afterburner = false
	s.disabled, s.immobile, s.shieldsOffline, s.abLocked = false, false, false, false
	s.hullZeroed = state == shipstate.Destroyed || s.hull <= 0

	if ValidAllocation(p.Allocation) {
		s.alloc = p.Allocation
		s.idx = quantize(p.Allocation)
	} else {
		s.log.Warn("saved allocation invalid, balancing", "allocation", p.Allocation)
		s.idx = Indices{Shield: etsBalanced, Weapon: etsBalanced, Engine: etsBalanced}
		s.alloc = s.idx.Allocation()
	}

	timers := make(map[string]time.Duration, len(p.PendingTimers))
	for name, d := range p.PendingTimers {
		timers[name] = d
	}
	combatRemaining := timers[combatTimer]
	delete(timers, combatTimer)

	s.state.Restore(state, p.MissionFlags, combat, combatRemaining)
	s.life.RestoreTimers(timers)
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
