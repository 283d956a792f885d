package shipstate

import (
	"fmt"
	"strings"
	"time"

	"github.com/shipcore/shipcore/internal/config"
)

// CombatState is the death sequence sub-state nested under DESTROYED.
type CombatState uint8

const (
	CombatNormal CombatState = iota
	CombatDeathRoll
	CombatPreExplosion
	CombatExploding
	CombatCleanup
)

var combatNames = [...]string{"NORMAL", "DEATH_ROLL", "PRE_EXPLOSION", "EXPLODING", "CLEANUP"}

func (c CombatState) String() string {
	if int(c) < len(combatNames) {
		return combatNames[c]
	}
	return fmt.Sprintf("COMBAT(%d)", uint8(c))
}

// ParseCombatState resolves a combat sub-state name.
func ParseCombatState(name string) (CombatState, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range combatNames {
		if n == name {
			return CombatState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown combat state %q", name)
}

// countdown returns the time a sub-state lasts before advancing; zero means it
// does not advance on its own.
func countdown(cfg config.CombatConfig, c CombatState) time.Duration {
	switch c {
	case CombatDeathRoll:
		return cfg.DeathRoll
	case CombatPreExplosion:
		return cfg.PreExplosion
	case CombatExploding:
		return cfg.Exploding
	default:
		return 0
	}
}
