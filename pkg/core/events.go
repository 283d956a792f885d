// pkg/core/events.go
package core

import "time"

// EventKind names an outward-facing simulation event.
type EventKind string

const (
	EventShipCreated        EventKind = "ship_created"
	EventShipActivated      EventKind = "ship_activated"
	EventArrivalStarted     EventKind = "arrival_started"
	EventArrivalCompleted   EventKind = "arrival_completed"
	EventDepartureStarted   EventKind = "departure_started"
	EventDepartureCompleted EventKind = "departure_completed"
	EventShipDestroyed      EventKind = "ship_destroyed"
	EventShipExploded       EventKind = "ship_exploded"
	EventCleanupCompleted   EventKind = "cleanup_completed"
	EventFlagChanged        EventKind = "flag_changed"
	EventStateChanged       EventKind = "state_changed"
	EventTeamChanged        EventKind = "team_changed"
	EventCombatStateChanged EventKind = "combat_state_changed"
	EventAllocationChanged  EventKind = "ets_changed"
)

// Event is emitted by the simulation core for effects, mission tracking and persistence.
// Only the fields relevant to Kind are populated.
type Event struct {
	Kind    EventKind     `json:"kind"`
	Ship    string        `json:"ship"`
	SimTime time.Duration `json:"simTime"`

	Stage   int    `json:"stage,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Flag    string `json:"flag,omitempty"`
	Enabled bool   `json:"enabled,omitempty"`
	Cue     string `json:"cue,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// EventSink receives simulation events. Implementations must not call back
// into the emitting vessel synchronously.
type EventSink interface {
	Emit(e Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(e Event)

// Emit calls f(e).
func (f EventSinkFunc) Emit(e Event) {
	f(e)
}
