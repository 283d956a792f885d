package ship

import (
	"math"

	"github.com/shipcore/shipcore/internal/shipstate"
)

// DestructionCauseHull is the cause recorded when hull damage kills a vessel.
const DestructionCauseHull = "hull"

// ApplyHullDamage subtracts amount from the hull and returns the amount
// absorbed. Reaching zero triggers destruction once. Invulnerable vessels
// ignore damage; guardian vessels keep at least 1 hull.
func (s *Ship) ApplyHullDamage(amount float64) float64 {
	if amount <= 0 || s.hullZeroed {
		return 0
	}
	if s.state.Has(shipstate.FlagInvulnerable) {
		return 0
	}

	s.hull -= amount
	if s.state.Has(shipstate.FlagGuardian) && s.hull < 1 {
		s.hull = math.Min(1, s.maxHull)
	}
	if s.hull <= 0 {
		s.hull = 0
		s.hullZeroed = true
		if !s.life.TriggerDestruction(DestructionCauseHull) {
			s.log.Warn("hull depleted but destruction was rejected", "state", s.state.State().String())
		}
	}
	return amount
}

// ApplyShieldDamage subtracts amount from the shields only and returns what
// they absorbed. Overflow is left to the caller.
func (s *Ship) ApplyShieldDamage(amount float64) float64 {
	if amount <= 0 || s.state.Has(shipstate.FlagInvulnerable) {
		return 0
	}
	absorbed := math.Min(amount, s.shield)
	s.shield -= absorbed
	return absorbed
}
