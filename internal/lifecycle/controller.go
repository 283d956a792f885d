package lifecycle

import (
	"log/slog"
	"time"

	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/internal/shipstate"
	"github.com/shipcore/shipcore/pkg/core"
)

// Timer names.
const (
	TimerArrival   = "arrival"
	TimerDeparture = "departure"
	TimerDeath     = "death"
	TimerCleanup   = "cleanup"
)

// Positioner places the vessel in the world.
type Positioner interface {
	SetPosition(p core.Vector3)
}

// Options configures a Controller.
type Options struct {
	Ship       string
	Logger     *slog.Logger
	Sink       core.EventSink
	State      *shipstate.Manager
	Positioner Positioner
	Timing     config.LifecycleConfig
	Clock      func() time.Duration
}

// Controller sequences the timed lifecycle stages of one vessel on top of
// its state manager.
type Controller struct {
	ship   string
	log    *slog.Logger
	sink   core.EventSink
	state  *shipstate.Manager
	pos    Positioner
	timing config.LifecycleConfig
	clock  func() time.Duration

	sched *Scheduler

	arrivalCue     string
	departureCue   string
	departurePoint core.Vector3
	cause          string
	finished       bool
}

// NewController creates a controller. A nil State makes every operation fail
// softly.
func NewController(opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		ship:   opts.Ship,
		log:    log.With("ship", opts.Ship),
		sink:   opts.Sink,
		state:  opts.State,
		pos:    opts.Positioner,
		timing: opts.Timing,
		clock:  opts.Clock,
		sched:  NewScheduler(),
	}
}

// SetSink replaces the event sink.
func (c *Controller) SetSink(s core.EventSink) {
	c.sink = s
}

func (c *Controller) emit(e core.Event) {
	if c.sink == nil {
		return
	}
	e.Ship = c.ship
	if c.clock != nil {
		e.SimTime = c.clock()
	}
	c.sink.Emit(e)
}

func (c *Controller) current() shipstate.State {
	if c.state == nil {
		return shipstate.NotPresent
	}
	return c.state.State()
}

// BeginArrival places the vessel at pos and starts the two-stage arrival.
// Only valid from NOT_PRESENT.
func (c *Controller) BeginArrival(pos core.Vector3, cue string) bool {
	if c.state == nil {
		return false
	}
	if c.current() != shipstate.NotPresent {
		c.log.Warn("arrival rejected", "state", c.current().String())
		return false
	}
	if c.pos != nil {
		c.pos.SetPosition(pos)
	}
	if !c.state.SetState(shipstate.Arriving1) {
		return false
	}
	c.arrivalCue = cue
	c.emit(core.Event{Kind: core.EventArrivalStarted, Stage: 1, Cue: cue})
	c.sched.Start(TimerArrival, c.timing.ArrivalStage, c.onArrival)
	return true
}

func (c *Controller) onArrival() {
	switch c.current() {
	case shipstate.Arriving1:
		if c.state.SetState(shipstate.Arriving2) {
			c.emit(core.Event{Kind: core.EventArrivalStarted, Stage: 2, Cue: c.arrivalCue})
			c.sched.Start(TimerArrival, c.timing.ArrivalStage, c.onArrival)
		}
	case shipstate.Arriving2:
		if c.state.SetState(shipstate.Active) {
			c.emit(core.Event{Kind: core.EventShipActivated, Cue: c.arrivalCue})
			c.emit(core.Event{Kind: core.EventArrivalCompleted, Cue: c.arrivalCue})
		}
	default:
		c.log.Debug("arrival timer expired outside arrival", "state", c.current().String())
	}
}

// BeginDeparture starts the two-stage departure towards pos, by warp or by
// docking. Only valid from ACTIVE.
func (c *Controller) BeginDeparture(pos core.Vector3, cue string, viaWarp bool) bool {
	if c.state == nil {
		return false
	}
	if c.current() != shipstate.Active {
		c.log.Warn("departure rejected", "state", c.current().String())
		return false
	}
	mode, other := shipstate.FlagDepartingDock, shipstate.FlagDepartingWarp
	if viaWarp {
		mode, other = shipstate.FlagDepartingWarp, shipstate.FlagDepartingDock
	}
	c.state.SetFlag(other, false)
	if !c.state.SetFlag(mode, true) {
		return false
	}
	if !c.state.SetState(shipstate.Departing1) {
		c.state.SetFlag(mode, false)
		return false
	}
	c.departureCue = cue
	c.departurePoint = pos
	c.emit(core.Event{Kind: core.EventDepartureStarted, Stage: 1, Cue: cue})
	c.sched.Start(TimerDeparture, c.timing.DepartureStage, c.onDeparture)
	return true
}

func (c *Controller) onDeparture() {
	switch c.current() {
	case shipstate.Departing1:
		if c.state.SetState(shipstate.Departing2) {
			c.emit(core.Event{Kind: core.EventDepartureStarted, Stage: 2, Cue: c.departureCue})
			c.sched.Start(TimerDeparture, c.timing.DepartureStage, c.onDeparture)
		}
	case shipstate.Departing2:
		if c.state.SetState(shipstate.Exited) {
			c.finished = true
			c.emit(core.Event{Kind: core.EventDepartureCompleted, Cue: c.departureCue})
		}
	default:
		c.log.Debug("departure timer expired outside departure", "state", c.current().String())
	}
}

// DeparturePoint returns the point passed to the last BeginDeparture.
func (c *Controller) DeparturePoint() core.Vector3 {
	return c.departurePoint
}

// TriggerDestruction starts the death sequence. It fails if the vessel is
// already destroyed or the lifecycle graph forbids the edge.
func (c *Controller) TriggerDestruction(cause string) bool {
	if c.state == nil {
		return false
	}
	if c.current() == shipstate.Destroyed {
		return false
	}
	if !shipstate.CanTransition(c.current(), shipstate.Destroyed) {
		c.log.Warn("destruction rejected", "state", c.current().String(), "cause", cause)
		return false
	}
	c.sched.Cancel(TimerArrival)
	c.sched.Cancel(TimerDeparture)
	if !c.state.SetState(shipstate.Destroyed) {
		return false
	}
	c.cause = cause
	c.log.Info("ship destroyed", "cause", cause)
	c.emit(core.Event{Kind: core.EventShipDestroyed, Reason: cause})
	c.sched.Start(TimerDeath, c.timing.Death, c.onDeath)
	return true
}

func (c *Controller) onDeath() {
	c.state.SetFlag(shipstate.FlagExploded, true)
	c.emit(core.Event{Kind: core.EventShipExploded, Reason: c.cause})
	c.sched.Start(TimerCleanup, c.timing.Cleanup, c.onCleanup)
}

func (c *Controller) onCleanup() {
	c.finished = true
	c.emit(core.Event{Kind: core.EventCleanupCompleted, Reason: c.cause})
}

// Tick advances the pending timers.
func (c *Controller) Tick(dt time.Duration) {
	c.sched.Tick(dt)
}

// Pending returns the remaining time of every armed timer by name.
func (c *Controller) Pending() map[string]time.Duration {
	return c.sched.Pending()
}

// RestoreTimers re-arms saved timers against the current state. Unknown
// names are skipped. An exited vessel, or a destroyed one with neither the
// death nor the cleanup timer pending, is restored as finished.
func (c *Controller) RestoreTimers(pending map[string]time.Duration) {
	switch c.current() {
	case shipstate.Exited:
		c.finished = true
	case shipstate.Destroyed:
		_, death := pending[TimerDeath]
		_, cleanup := pending[TimerCleanup]
		c.finished = !death && !cleanup
	default:
		c.finished = false
	}
	for name, remaining := range pending {
		var fire func()
		switch name {
		case TimerArrival:
			fire = c.onArrival
		case TimerDeparture:
			fire = c.onDeparture
		case TimerDeath:
			fire = c.onDeath
		case TimerCleanup:
			fire = c.onCleanup
		default:
			c.log.Warn("skipping unknown timer", "timer", name)
			continue
		}
		c.sched.Start(name, remaining, fire)
	}
}

// Finished reports whether the vessel has left the mission, by exiting or
// by completing cleanup after destruction.
func (c *Controller) Finished() bool {
	return c.finished
}

// Cause returns the destruction cause, if any.
func (c *Controller) Cause() string {
	return c.cause
}
