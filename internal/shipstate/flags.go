package shipstate

import (
	"fmt"
	"strings"
)

// Flag is a bit index: 0-7 are mission-persistent, 8-31 are runtime-only.
type Flag uint8

const (
	FlagCargoKnown Flag = iota
	FlagEscort
	FlagReinforcement
	FlagNoArrivalMusic
	FlagRedAlertCarry
	FlagNoDepartureWarp
	FlagKillBeforeMissionEnd
	FlagFromPlayerWing

	FlagDying
	FlagExploded
	FlagDisabled
	FlagStealth
	FlagFriendlyStealthInvisible
	FlagHiddenFromSensors
	FlagPrimariesLocked
	FlagSecondariesLocked
	FlagAfterburnerLocked
	FlagGuardian
	FlagVaporize
	FlagInvulnerable
	FlagProtected
	FlagBeamProtected
	FlagNoShields
	FlagImmobile
	FlagDepartingWarp
	FlagDepartingDock
	FlagArriving
	FlagDeparting
	FlagNoCollide
	FlagScannable
	FlagScanned
	FlagIgnoreCount

	numFlags
)

const (
	firstMissionFlag = FlagCargoKnown
	lastMissionFlag  = FlagFromPlayerWing
	firstRuntimeFlag = FlagDying
	lastRuntimeFlag  = FlagIgnoreCount
)

var flagNames = [numFlags]string{
	"cargo_known",
	"escort",
	"reinforcement",
	"no_arrival_music",
	"red_alert_carry",
	"no_departure_warp",
	"kill_before_mission_end",
	"from_player_wing",
	"dying",
	"exploded",
	"disabled",
	"stealth",
	"friendly_stealth_invisible",
	"hidden_from_sensors",
	"primaries_locked",
	"secondaries_locked",
	"afterburner_locked",
	"guardian",
	"vaporize",
	"invulnerable",
	"protected",
	"beam_protected",
	"no_shields",
	"immobile",
	"departing_warp",
	"departing_dock",
	"arriving",
	"departing",
	"no_collide",
	"scannable",
	"scanned",
	"ignore_count",
}

func (f Flag) String() string {
	if f < numFlags {
		return flagNames[f]
	}
	return fmt.Sprintf("flag(%d)", uint8(f))
}

// IsMission reports whether f belongs to the mission-persistent set.
func (f Flag) IsMission() bool {
	return f <= lastMissionFlag
}

// IsRuntime reports whether f belongs to the runtime set.
func (f Flag) IsRuntime() bool {
	return f >= firstRuntimeFlag && f <= lastRuntimeFlag
}

// ParseFlag resolves a flag by name.
func ParseFlag(name string) (Flag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range flagNames {
		if n == name {
			return Flag(i), nil
		}
	}
	return 0, fmt.Errorf("unknown flag %q", name)
}

// rule declares how a runtime flag relates to the others.
type rule struct {
	requires       []Flag // must already be set to enable
	implies        []Flag // enabled alongside
	conflicts      []Flag // enabling fails while any is set
	clearBlockedBy []Flag // clearing fails while any is set
}

var rules = map[Flag]rule{
	FlagFriendlyStealthInvisible: {requires: []Flag{FlagStealth}},
	FlagStealth:                  {implies: []Flag{FlagHiddenFromSensors}},
	FlagExploded:                 {requires: []Flag{FlagDying}},
	FlagDying:                    {clearBlockedBy: []Flag{FlagExploded}},
	FlagDepartingWarp:            {conflicts: []Flag{FlagDepartingDock}},
	FlagDepartingDock:            {conflicts: []Flag{FlagDepartingWarp}},
	FlagScanned:                  {implies: []Flag{FlagScannable}},
}

// requiredBy is the reverse of rule.requires, used to cascade clears.
var requiredBy = func() map[Flag][]Flag {
	out := make(map[Flag][]Flag)
	for f, r := range rules {
		for _, req := range r.requires {
			out[req] = append(out[req], f)
		}
	}
	return out
}()

// RuntimeBits is the 24-bit runtime set stored in bits 8-31.
type RuntimeBits uint32

func (b RuntimeBits) has(f Flag) bool {
	return b&(1<<f) != 0
}

func (b RuntimeBits) with(f Flag, on bool) RuntimeBits {
	if on {
		return b | 1<<f
	}
	return b &^ (1 << f)
}

// Names lists the set runtime flags in index order.
func (b RuntimeBits) Names() []string {
	var out []string
	for f := firstRuntimeFlag; f <= lastRuntimeFlag; f++ {
		if b.has(f) {
			out = append(out, f.String())
		}
	}
	return out
}

// planEnable computes the flags to turn on for enabling f, following
// implications. It fails on a missing requirement or a conflict.
func planEnable(bits RuntimeBits, f Flag, plan map[Flag]bool) error {
	if bits.has(f) || plan[f] {
		return nil
	}
	r := rules[f]
	for _, req := range r.requires {
		if !bits.has(req) && !plan[req] {
			return fmt.Errorf("%s requires %s", f, req)
		}
	}
	for _, c := range r.conflicts {
		if bits.has(c) || plan[c] {
			return fmt.Errorf("%s conflicts with %s", f, c)
		}
	}
	plan[f] = true
	for _, imp := range r.implies {
		if err := planEnable(bits, imp, plan); err != nil {
			return err
		}
	}
	return nil
}

// impliedBy is the reverse of rule.implies.
var impliedBy = func() map[Flag][]Flag {
	out := make(map[Flag][]Flag)
	for f, r := range rules {
		for _, imp := range r.implies {
			out[imp] = append(out[imp], f)
		}
	}
	return out
}()

// planDisable computes the flags to turn off for clearing f, cascading to
// flags that require it and to flags that were only set as an implication of
// f and have no other set source.
func planDisable(bits, implied RuntimeBits, f Flag, plan map[Flag]bool) error {
	if !bits.has(f) {
		return nil
	}
	if _, done := plan[f]; done {
		return nil
	}
	for _, blocker := range rules[f].clearBlockedBy {
		if bits.has(blocker) {
			return fmt.Errorf("%s cannot be cleared while %s is set", f, blocker)
		}
	}
	plan[f] = false
	for _, dep := range requiredBy[f] {
		if err := planDisable(bits, implied, dep, plan); err != nil {
			return err
		}
	}
	for _, imp := range rules[f].implies {
		if !implied.has(imp) || stillImplied(bits, imp, plan) {
			continue
		}
		if err := planDisable(bits, implied, imp, plan); err != nil {
			return err
		}
	}
	return nil
}

// stillImplied reports whether another set flag, not being cleared by plan,
// implies f.
func stillImplied(bits RuntimeBits, f Flag, plan map[Flag]bool) bool {
	for _, src := range impliedBy[f] {
		if on, ok := plan[src]; ok && !on {
			continue
		}
		if bits.has(src) {
			return true
		}
	}
	return false
}
