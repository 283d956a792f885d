package ship

import (
	"math"
	"time"

	"github.com/shipcore/shipcore/internal/shipstate"
	"gonum.org/v1/gonum/floats"
)

const (
	minPerformance = 0.1
	// afterburnerMinEngine is the engine performance below which the
	// afterburner cuts out.
	afterburnerMinEngine = 0.5
)

// performanceWeights blends engine, weapon and shield performance.
var performanceWeights = []float64{0.4, 0.3, 0.3}

// SetPerformance records the subsystem performance multipliers, each
// clamped to [0,1].
func (s *Ship) SetPerformance(engine, weapon, shield float64) {
	s.perf = [3]float64{clamp(engine, 0, 1), clamp(weapon, 0, 1), clamp(shield, 0, 1)}
}

// Performance returns the engine, weapon and shield multipliers.
func (s *Ship) Performance() (engine, weapon, shield float64) {
	return s.perf[0], s.perf[1], s.perf[2]
}

// OverallPerformance returns the blended performance from the last Update.
func (s *Ship) OverallPerformance() float64 {
	return s.overall
}

// AfterburnerActive reports whether the afterburner is lit.
func (s *Ship) AfterburnerActive() bool {
	return s.afterburner
}

// ActivateAfterburner lights the afterburner if the vessel can use it.
func (s *Ship) ActivateAfterburner() bool {
	switch {
	case s.afterburner:
		return true
	case s.abLocked, s.disabled, s.immobile:
		return false
	case s.fuel <= 0:
		return false
	case s.perf[0] < afterburnerMinEngine:
		return false
	}
	s.afterburner = true
	return true
}

// DeactivateAfterburner extinguishes the afterburner.
func (s *Ship) DeactivateAfterburner() {
	s.afterburner = false
}

// ConsumeWeaponEnergy draws amount from the weapon capacitor and returns what
// was drawn: all of it, or nothing if there is not enough.
func (s *Ship) ConsumeWeaponEnergy(amount float64) float64 {
	if amount <= 0 || amount > s.weapon {
		return 0
	}
	s.weapon -= amount
	return amount
}

// present reports whether the vessel is in the mission and not destroyed.
func (s *Ship) present() bool {
	switch s.state.State() {
	case shipstate.Arriving1, shipstate.Arriving2, shipstate.Active,
		shipstate.Departing1, shipstate.Departing2:
		return true
	}
	return false
}

// Update advances the vessel by dt: energy regeneration, performance blend,
// speed clamp and afterburner burn, then the combat countdown and the
// lifecycle timers.
func (s *Ship) Update(dt time.Duration) {
	if dt <= 0 {
		return
	}
	secs := dt.Seconds()

	if s.present() {
		s.regenerate(secs)
	}

	s.overall = math.Max(minPerformance, floats.Dot(performanceWeights, s.perf[:]))

	s.clampVelocity()

	if s.afterburner {
		s.fuel -= s.rates.AfterburnerBurnRate * secs
		if s.fuel <= 0 {
			s.fuel = 0
			s.afterburner = false
		}
		if s.perf[0] < afterburnerMinEngine {
			s.afterburner = false
		}
	}

	s.state.ProcessCombatState(dt)
	s.life.Tick(dt)
}

func (s *Ship) regenerate(secs float64) {
	engine, weapon, shield := s.perf[0], s.perf[1], s.perf[2]
	if !s.shieldsOffline {
		s.shield = math.Min(s.maxShield, s.shield+s.alloc.Shield*shield*s.rates.ShieldRegenRate*secs)
	}
	s.weapon = math.Min(s.maxWeapon, s.weapon+s.alloc.Weapon*weapon*s.rates.WeaponRegenRate*secs)
	if !s.afterburner {
		s.fuel = math.Min(s.maxFuel, s.fuel+s.alloc.Engine*engine*s.rates.AfterburnerRegenRate*secs)
	}
}

// MaxSpeed returns the current speed limit.
func (s *Ship) MaxSpeed() float64 {
	switch {
	case s.disabled, s.immobile:
		return 0
	case s.afterburner && s.fuel > 0:
		return s.maxAfterburnerVelocity * s.overall
	default:
		return s.maxVelocity * s.overall
	}
}

func (s *Ship) clampVelocity() {
	limit := s.MaxSpeed()
	speed := s.Speed()
	if speed <= limit {
		return
	}
	if limit <= 0 {
		s.velocity.X, s.velocity.Y, s.velocity.Z = 0, 0, 0
		return
	}
	k := limit / speed
	s.velocity.X *= k
	s.velocity.Y *= k
	s.velocity.Z *= k
}
