// Package shipstate owns a vessel's lifecycle state machine, its mission and
// runtime flag sets, and the combat sub-state machine.
package shipstate

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of a vessel.
type State uint8

const (
	NotPresent State = iota
	Arriving1
	Arriving2
	Active
	Departing1
	Departing2
	Exited
	Destroyed

	numStates
)

var stateNames = [numStates]string{
	"NOT_PRESENT",
	"ARRIVING_1",
	"ARRIVING_2",
	"ACTIVE",
	"DEPARTING_1",
	"DEPARTING_2",
	"EXITED",
	"DESTROYED",
}

func (s State) String() string {
	if s < numStates {
		return stateNames[s]
	}
	return fmt.Sprintf("STATE(%d)", uint8(s))
}

// ParseState resolves a state name as produced by String.
func ParseState(name string) (State, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown lifecycle state %q", name)
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Exited || s == Destroyed
}

// transitions is the lifecycle adjacency table: source -> allowed destinations.
var transitions = map[State][]State{
	NotPresent: {Arriving1},
	Arriving1:  {Arriving2, Destroyed},
	Arriving2:  {Active, Destroyed},
	Active:     {Departing1, Destroyed},
	Departing1: {Departing2, Destroyed},
	Departing2: {Exited, Destroyed},
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to State) bool {
	for _, dst := range transitions[from] {
		if dst == to {
			return true
		}
	}
	return false
}

// AllStates returns every lifecycle state in declaration order.
func AllStates() []State {
	out := make([]State, numStates)
	for i := range out {
		out[i] = State(i)
	}
	return out
}
