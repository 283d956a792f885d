// Package mission owns the vessels of a running mission: the ship arena, the
// team registry and the event dispatcher that ties them together.
package mission

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/internal/dispatcher"
	"github.com/shipcore/shipcore/internal/ship"
	"github.com/shipcore/shipcore/internal/shipclass"
	"github.com/shipcore/shipcore/internal/shipstate"
	"github.com/shipcore/shipcore/internal/team"
	"github.com/shipcore/shipcore/pkg/core"
)

var (
	ErrUnknownShip   = errors.New("unknown ship")
	ErrDuplicateName = errors.New("ship name already in use")
)

// TickHook runs after every simulation tick with the tick count.
type TickHook func(tick uint64)

// Options configures a mission Context. Zero tuning values fall back to the
// config package defaults.
type Options struct {
	Name       string
	Logger     *slog.Logger
	Classes    *shipclass.Catalog
	Events     *dispatcher.Dispatcher
	Ship       config.ShipConfig
	Lifecycle  config.LifecycleConfig
	Combat     config.CombatConfig
	Teams      config.TeamConfig
	TickLength time.Duration
}

// Context holds the vessels of one mission. Tick, Spawn, Load and the
// command handlers run on the simulation goroutine; the read accessors are
// safe from any goroutine.
type Context struct {
	mu      sync.RWMutex
	name    string
	session uuid.UUID
	log     *slog.Logger

	classes   *shipclass.Catalog
	events    *dispatcher.Dispatcher
	teams     *team.Registry
	shipCfg   config.ShipConfig
	lifeCfg   config.LifecycleConfig
	combatCfg config.CombatConfig
	tickLen   time.Duration

	ships   map[core.ShipID]*ship.Ship
	byName  map[string]core.ShipID
	lastID  core.ShipID
	simTime time.Duration
	ticks   uint64
	hooks   []TickHook
}

// New creates an empty mission with a fresh session ID.
func New(opts Options) (*Context, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	events := opts.Events
	if events == nil {
		var err error
		events, err = dispatcher.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating dispatcher: %w", err)
		}
	}
	classes := opts.Classes
	if classes == nil {
		classes = shipclass.Default()
	}
	if opts.Ship == (config.ShipConfig{}) {
		opts.Ship = config.DefaultShipConfig()
	}
	if opts.Lifecycle == (config.LifecycleConfig{}) {
		opts.Lifecycle = config.DefaultLifecycleConfig()
	}
	if opts.Combat == (config.CombatConfig{}) {
		opts.Combat = config.DefaultCombatConfig()
	}
	if opts.TickLength <= 0 {
		opts.TickLength = 100 * time.Millisecond
	}

	session := uuid.New()
	c := &Context{
		name:      opts.Name,
		session:   session,
		log:       log.With("mission", opts.Name),
		classes:   classes,
		events:    events,
		shipCfg:   opts.Ship,
		lifeCfg:   opts.Lifecycle,
		combatCfg: opts.Combat,
		tickLen:   opts.TickLength,
		ships:     make(map[core.ShipID]*ship.Ship),
		byName:    make(map[string]core.ShipID),
	}
	c.teams = team.NewRegistry(team.Options{
		Logger: log,
		Sink:   events,
		Config: opts.Teams,
	})

	events.Subscribe(core.EventFlagChanged, "sensor-visibility", c.mirrorStealth)

	c.log.Info("Mission created", "session", session.String())
	return c, nil
}

// Name returns the mission name.
func (c *Context) Name() string { return c.name }

// Session returns the session ID of this run.
func (c *Context) Session() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// SimTime returns the elapsed simulation time.
func (c *Context) SimTime() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.simTime
}

// Ticks returns the number of ticks run.
func (c *Context) Ticks() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ticks
}

// TickLength is the step used by the tick command.
func (c *Context) TickLength() time.Duration { return c.tickLen }

// Teams returns the team registry.
func (c *Context) Teams() *team.Registry { return c.teams }

// Events returns the mission dispatcher.
func (c *Context) Events() *dispatcher.Dispatcher { return c.events }

// OnTick registers a hook run after each tick.
func (c *Context) OnTick(h TickHook) {
	c.hooks = append(c.hooks, h)
}

func (c *Context) clock() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.simTime
}

// Spawn instantiates a vessel from spawn data and registers it. IDs are
// assigned in spawn order and never reused.
func (c *Context) Spawn(spawn core.SpawnData) (*ship.Ship, error) {
	class, err := c.classes.Get(spawn.ShipClass)
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", spawn.Name, err)
	}

	c.mu.Lock()
	if _, taken := c.byName[spawn.Name]; taken {
		c.mu.Unlock()
		return nil, fmt.Errorf("spawn %s: %w", spawn.Name, ErrDuplicateName)
	}
	id := c.lastID + 1
	c.mu.Unlock()

	if spawn.TeamFromFaction {
		spawn.Team = c.factionTeam(spawn, class)
	}
	s, err := ship.New(c.shipOptions(id, class, spawn, c.events))
	if err != nil {
		return nil, err
	}
	if err := c.add(s); err != nil {
		return nil, err
	}

	c.log.Info("Ship spawned", "id", id, "ship", s.Name(), "class", class.Name, "team", s.Team().String())
	return s, nil
}

// factionTeam resolves the default team of the spawn's faction, falling back
// to the class faction and then to the spawn's own team.
func (c *Context) factionTeam(spawn core.SpawnData, class shipclass.Class) core.Team {
	faction := spawn.Faction
	if faction == "" {
		faction = class.Faction
	}
	if t, ok := c.teams.TeamForFaction(faction); ok {
		return t
	}
	c.log.Debug("No default team for faction", "ship", spawn.Name, "faction", faction)
	return spawn.Team
}

func (c *Context) shipOptions(id core.ShipID, class shipclass.Class, spawn core.SpawnData, sink core.EventSink) ship.Options {
	return ship.Options{
		ID:        id,
		Class:     class,
		Spawn:     spawn,
		Rates:     c.shipCfg,
		Lifecycle: c.lifeCfg,
		Combat:    c.combatCfg,
		Logger:    c.log,
		Sink:      sink,
		Clock:     c.clock,
	}
}

func (c *Context) add(s *ship.Ship) error {
	if err := c.teams.Register(s.ID(), s.Name(), s.Team(), s.Faction(), s.IFF()); err != nil {
		return err
	}
	c.mu.Lock()
	c.ships[s.ID()] = s
	c.byName[s.Name()] = s.ID()
	if s.ID() > c.lastID {
		c.lastID = s.ID()
	}
	c.mu.Unlock()
	return nil
}

// Ship returns a vessel by ID.
func (c *Context) Ship(id core.ShipID) (*ship.Ship, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.ships[id]
	return s, ok
}

// ByName returns a vessel by name.
func (c *Context) ByName(name string) (*ship.Ship, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return c.ships[id], true
}

// Len returns the number of vessels in the arena.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ships)
}

func (c *Context) sortedShips() []*ship.Ship {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*ship.Ship, 0, len(c.ships))
	for _, s := range c.ships {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Tick advances every vessel by dt in ID order, then removes vessels whose
// lifecycle has finished.
func (c *Context) Tick(dt time.Duration) {
	if dt <= 0 {
		return
	}
	c.mu.Lock()
	c.simTime += dt
	c.ticks++
	tick := c.ticks
	c.mu.Unlock()

	var finished []*ship.Ship
	for _, s := range c.sortedShips() {
		s.Update(dt)
		if s.Lifecycle().Finished() {
			finished = append(finished, s)
		}
	}
	for _, s := range finished {
		c.remove(s)
	}
	for _, h := range c.hooks {
		h(tick)
	}
}

func (c *Context) remove(s *ship.Ship) {
	if err := c.teams.Unregister(s.ID()); err != nil {
		c.log.Warn("unregister failed", "ship", s.Name(), "error", err)
	}
	c.mu.Lock()
	delete(c.ships, s.ID())
	delete(c.byName, s.Name())
	c.mu.Unlock()
	c.log.Info("Ship removed", "id", s.ID(), "ship", s.Name(), "state", s.State().State().String(), "cause", s.Lifecycle().Cause())
}

// SetTeam moves a vessel to another team in both the registry and the
// vessel itself.
func (c *Context) SetTeam(id core.ShipID, t core.Team, reason string) error {
	s, ok := c.Ship(id)
	if !ok {
		return fmt.Errorf("set team %d: %w", id, ErrUnknownShip)
	}
	if err := c.teams.SetTeam(id, t, reason); err != nil {
		return err
	}
	s.SetTeam(t)
	return nil
}

// Damage applies amount to the shields first and the overflow to the hull.
func (c *Context) Damage(id core.ShipID, amount float64) (shield, hull float64, err error) {
	s, ok := c.Ship(id)
	if !ok {
		return 0, 0, fmt.Errorf("damage %d: %w", id, ErrUnknownShip)
	}
	shield = s.ApplyShieldDamage(amount)
	if rest := amount - shield; rest > 0 {
		hull = s.ApplyHullDamage(rest)
	}
	return shield, hull, nil
}

// mirrorStealth keeps registry sensor visibility in step with the vessel's
// stealth flags. It reads only the event and the registry.
func (c *Context) mirrorStealth(e core.Event) error {
	stealthName := shipstate.FlagStealth.String()
	invisibleName := shipstate.FlagFriendlyStealthInvisible.String()
	if e.Flag != stealthName && e.Flag != invisibleName {
		return nil
	}
	c.mu.RLock()
	id, ok := c.byName[e.Ship]
	c.mu.RUnlock()
	if !ok {
		// not registered yet; Load applies visibility itself
		return nil
	}
	entry, ok := c.teams.Entry(id)
	if !ok {
		return nil
	}
	stealth, invisible := entry.Stealth, entry.FriendlyInvisible
	if e.Flag == stealthName {
		stealth = e.Enabled
	} else {
		invisible = e.Enabled
	}
	return c.teams.SetSensorVisibility(id, stealth, invisible)
}

// Snapshot returns a read-only view of every vessel, sorted by ID.
func (c *Context) Snapshot() []core.ShipSnapshot {
	ships := c.sortedShips()
	out := make([]core.ShipSnapshot, 0, len(ships))
	for _, s := range ships {
		out = append(out, s.Snapshot())
	}
	return out
}

// Save captures the mission. Each payload's observed team comes from the
// registry.
func (c *Context) Save() core.MissionSave {
	ships := c.sortedShips()
	save := core.MissionSave{
		SessionID: c.Session().String(),
		Name:      c.name,
		SavedAt:   time.Now().UTC(),
		SimTime:   c.SimTime(),
		Ships:     make([]core.ShipPayload, 0, len(ships)),
	}
	for _, s := range ships {
		p := s.Save()
		if entry, ok := c.teams.Entry(s.ID()); ok {
			p.ObservedTeam = entry.ObservedTeam
		}
		save.Ships = append(save.Ships, p)
	}
	return save
}

// Load replaces the arena with a saved mission. Vessels are restored
// without emitting creation or transition events. IDs are reassigned in
// payload order.
func (c *Context) Load(save core.MissionSave) error {
	for _, s := range c.sortedShips() {
		c.remove(s)
	}

	session, err := uuid.Parse(save.SessionID)
	if err != nil {
		c.log.Warn("saved session id is not a uuid, starting a new session", "session", save.SessionID)
		session = uuid.New()
	}
	c.mu.Lock()
	c.session = session
	c.simTime = save.SimTime
	if save.Name != "" {
		c.name = save.Name
	}
	c.mu.Unlock()

	var errs []error
	for _, p := range save.Ships {
		if err := c.restore(p); err != nil {
			errs = append(errs, err)
		}
	}
	c.log.Info("Mission loaded", "session", session.String(), "ships", c.Len(), "failed", len(errs))
	return errors.Join(errs...)
}

func (c *Context) restore(p core.ShipPayload) error {
	class, err := c.classes.Get(p.Class)
	if err != nil {
		return fmt.Errorf("restore %s: %w", p.Name, err)
	}
	c.mu.RLock()
	_, taken := c.byName[p.Name]
	id := c.lastID + 1
	c.mu.RUnlock()
	if taken {
		return fmt.Errorf("restore %s: %w", p.Name, ErrDuplicateName)
	}

	spawn := core.SpawnData{
		ShipClass: p.Class,
		Name:      p.Name,
		Position:  p.Position,
		Team:      p.Team,
		Faction:   p.Faction,
		IFF:       p.IFF,
	}
	s, err := ship.New(c.shipOptions(id, class, spawn, nil))
	if err != nil {
		return fmt.Errorf("restore %s: %w", p.Name, err)
	}
	if err := s.Load(p); err != nil {
		return err
	}
	if err := c.add(s); err != nil {
		return err
	}
	if p.ObservedTeam != p.Team && p.ObservedTeam.Valid() {
		if err := c.teams.SetObservedTeam(id, p.ObservedTeam); err != nil {
			return err
		}
	}
	// Runtime flags start cleared after a load, so stealth is off.
	s.SetSink(c.events)
	return nil
}
