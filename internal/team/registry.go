package team

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/pkg/core"
)

var (
	ErrAlreadyRegistered     = errors.New("ship already registered")
	ErrUnknownShip           = errors.New("unknown ship")
	ErrInvalidTeam           = errors.New("invalid team")
	ErrInvalidRelation       = errors.New("invalid relation")
	ErrPermanentRelationship = errors.New("faction relationship is permanent")
)

// ID identifies a registered vessel.
type ID = core.ShipID

// Entry is a read-only copy of a vessel's registration.
type Entry struct {
	ID                ID
	Name              string
	Team              core.Team
	ObservedTeam      core.Team
	ObservedOverride  bool
	Faction           string
	IFF               string
	Ignored           []ID
	Stealth           bool
	FriendlyInvisible bool
}

type entry struct {
	id                ID
	name              string
	team              core.Team
	observed          core.Team
	observedOverride  bool
	faction           string
	iff               string
	ignore            map[ID]struct{}
	stealth           bool
	friendlyInvisible bool
}

func (e *entry) snapshot() Entry {
	out := Entry{
		ID:                e.id,
		Name:              e.name,
		Team:              e.team,
		ObservedTeam:      e.observed,
		ObservedOverride:  e.observedOverride,
		Faction:           e.faction,
		IFF:               e.iff,
		Stealth:           e.stealth,
		FriendlyInvisible: e.friendlyInvisible,
	}
	for id := range e.ignore {
		out.Ignored = append(out.Ignored, id)
	}
	sortIDs(out.Ignored)
	return out
}

// Options configures a Registry.
type Options struct {
	Logger *slog.Logger
	Sink   core.EventSink
	Config config.TeamConfig
}

// Registry is the shared team and relationship table. Reads may run
// concurrently; each write is applied atomically.
type Registry struct {
	mu sync.RWMutex

	entries  map[ID]*entry
	byTeam   map[core.Team]map[ID]struct{}
	byIFF    map[string]map[ID]struct{}
	factions map[factionPair]factionOverride

	factionTeams          map[string]core.Team
	friendlyFireAvoidance bool

	log  *slog.Logger
	sink core.EventSink
}

// NewRegistry creates an empty registry. Faction team defaults whose team
// name does not parse are logged and skipped.
func NewRegistry(opts Options) *Registry {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		entries:               make(map[ID]*entry),
		byTeam:                make(map[core.Team]map[ID]struct{}),
		byIFF:                 make(map[string]map[ID]struct{}),
		factions:              make(map[factionPair]factionOverride),
		factionTeams:          make(map[string]core.Team),
		friendlyFireAvoidance: opts.Config.FriendlyFireAvoidance,
		log:                   log,
		sink:                  opts.Sink,
	}
	for faction, name := range opts.Config.Factions {
		t, err := core.ParseTeam(name)
		if err != nil {
			log.Warn("ignoring faction team default", "faction", faction, "error", err)
			continue
		}
		r.factionTeams[normalizeFaction(faction)] = t
	}
	return r
}

// SetSink replaces the event sink.
func (r *Registry) SetSink(s core.EventSink) {
	r.mu.Lock()
	r.sink = s
	r.mu.Unlock()
}

// TeamForFaction returns the configured default team of a faction.
func (r *Registry) TeamForFaction(faction string) (core.Team, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.factionTeams[normalizeFaction(faction)]
	return t, ok
}

func addIndex[K comparable](idx map[K]map[ID]struct{}, key K, id ID) {
	set, ok := idx[key]
	if !ok {
		set = make(map[ID]struct{})
		idx[key] = set
	}
	set[id] = struct{}{}
}

func removeIndex[K comparable](idx map[K]map[ID]struct{}, key K, id ID) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(idx, key)
	}
}

// Register adds a vessel. Registering the same ID twice fails.
func (r *Registry) Register(id ID, name string, team core.Team, faction, iff string) error {
	if !team.Valid() {
		return fmt.Errorf("register %s: %w: %d", name, ErrInvalidTeam, team)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; ok {
		return fmt.Errorf("register %s: %w", name, ErrAlreadyRegistered)
	}
	r.entries[id] = &entry{
		id:       id,
		name:     name,
		team:     team,
		observed: team,
		faction:  faction,
		iff:      iff,
		ignore:   make(map[ID]struct{}),
	}
	addIndex(r.byTeam, team, id)
	if iff != "" {
		addIndex(r.byIFF, iff, id)
	}
	return nil
}

// Unregister removes a vessel along with every ignore-list reference to it.
func (r *Registry) Unregister(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("unregister %d: %w", id, ErrUnknownShip)
	}
	removeIndex(r.byTeam, e.team, id)
	if e.iff != "" {
		removeIndex(r.byIFF, e.iff, id)
	}
	delete(r.entries, id)
	for _, other := range r.entries {
		delete(other.ignore, id)
	}
	return nil
}

// SetTeam moves a vessel to another team. The observed team follows unless
// it was overridden with SetObservedTeam.
func (r *Registry) SetTeam(id ID, team core.Team, reason string) error {
	if !team.Valid() {
		return fmt.Errorf("set team: %w: %d", ErrInvalidTeam, team)
	}
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("set team %d: %w", id, ErrUnknownShip)
	}
	old := e.team
	if old == team {
		r.mu.Unlock()
		return nil
	}
	removeIndex(r.byTeam, old, id)
	addIndex(r.byTeam, team, id)
	e.team = team
	if !e.observedOverride {
		e.observed = team
	}
	name, sink := e.name, r.sink
	r.mu.Unlock()

	r.log.Info("team changed", "ship", name, "from", old.String(), "to", team.String(), "reason", reason)
	if sink != nil {
		sink.Emit(core.Event{
			Kind:   core.EventTeamChanged,
			Ship:   name,
			From:   old.String(),
			To:     team.String(),
			Reason: reason,
		})
	}
	return nil
}

// SetObservedTeam changes only the team others see.
func (r *Registry) SetObservedTeam(id ID, team core.Team) error {
	if !team.Valid() {
		return fmt.Errorf("set observed team: %w: %d", ErrInvalidTeam, team)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("set observed team %d: %w", id, ErrUnknownShip)
	}
	e.observed = team
	e.observedOverride = true
	return nil
}

// ClearObservedTeam drops the override so the observed team tracks the
// actual team again.
func (r *Registry) ClearObservedTeam(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("clear observed team %d: %w", id, ErrUnknownShip)
	}
	e.observed = e.team
	e.observedOverride = false
	return nil
}

// SetFactionRelationship overrides how two factions regard each other, in
// both directions. A permanent override cannot be changed again.
func (r *Registry) SetFactionRelationship(fa, fb string, rel Relation, permanent bool) error {
	if !rel.Valid() {
		return fmt.Errorf("faction relationship: %w: %d", ErrInvalidRelation, rel)
	}
	key := pairOf(fa, fb)
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.factions[key]; ok && cur.permanent {
		return fmt.Errorf("%s/%s: %w", fa, fb, ErrPermanentRelationship)
	}
	r.factions[key] = factionOverride{rel: rel, permanent: permanent}
	return nil
}

// FactionRelationship returns the override between two factions, if any.
func (r *Registry) FactionRelationship(fa, fb string) (Relation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.factions[pairOf(fa, fb)]
	return o.rel, ok
}

// ShipRelationship returns how attacker regards target. Ships whose team
// matches the target's observed team are friendly; otherwise a faction
// override applies if one exists, then the default team matrix.
func (r *Registry) ShipRelationship(attacker, target ID) (Relation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.entries[attacker]
	if !ok {
		return Neutral, fmt.Errorf("attacker %d: %w", attacker, ErrUnknownShip)
	}
	t, ok := r.entries[target]
	if !ok {
		return Neutral, fmt.Errorf("target %d: %w", target, ErrUnknownShip)
	}
	return r.relate(a, t), nil
}

func (r *Registry) relate(a, t *entry) Relation {
	if a.team == t.observed {
		return Friendly
	}
	if a.faction != "" && t.faction != "" {
		if o, ok := r.factions[pairOf(a.faction, t.faction)]; ok {
			return o.rel
		}
	}
	return Relationship(a.team, t.observed)
}

// CanTarget reports whether attacker may engage target.
func (r *Registry) CanTarget(attacker, target ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.entries[attacker]
	if !ok {
		return false
	}
	t, ok := r.entries[target]
	if !ok {
		return false
	}
	return r.canTarget(a, t)
}

func (r *Registry) canTarget(a, t *entry) bool {
	if a.id == t.id {
		return false
	}
	if _, ignored := a.ignore[t.id]; ignored {
		return false
	}
	rel := r.relate(a, t)
	if rel == Friendly && r.friendlyFireAvoidance {
		return false
	}
	if t.stealth {
		if rel != Friendly || t.friendlyInvisible {
			return false
		}
	}
	return true
}

// ValidTargets lists the vessels attacker may engage on the given teams,
// sorted by ID. Without teams, every team hostile to the attacker's observed
// team is searched. Candidates are matched on their observed team.
func (r *Registry) ValidTargets(attacker ID, teams ...core.Team) []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.entries[attacker]
	if !ok {
		return nil
	}
	want := make(map[core.Team]bool)
	if len(teams) == 0 {
		for t := core.Team(0); t < core.NumTeams; t++ {
			if Relationship(a.observed, t) == Hostile {
				want[t] = true
			}
		}
	} else {
		for _, t := range teams {
			want[t] = true
		}
	}

	var out []ID
	for _, t := range r.entries {
		if want[t.observed] && r.canTarget(a, t) {
			out = append(out, t.id)
		}
	}
	sortIDs(out)
	return out
}

// Ignore adds target to attacker's ignore list.
func (r *Registry) Ignore(attacker, target ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.entries[attacker]
	if !ok {
		return fmt.Errorf("ignore: attacker %d: %w", attacker, ErrUnknownShip)
	}
	if _, ok := r.entries[target]; !ok {
		return fmt.Errorf("ignore: target %d: %w", target, ErrUnknownShip)
	}
	a.ignore[target] = struct{}{}
	return nil
}

// Unignore removes target from attacker's ignore list.
func (r *Registry) Unignore(attacker, target ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.entries[attacker]
	if !ok {
		return fmt.Errorf("unignore: attacker %d: %w", attacker, ErrUnknownShip)
	}
	delete(a.ignore, target)
	return nil
}

// SetSensorVisibility records a vessel's stealth state.
func (r *Registry) SetSensorVisibility(id ID, stealth, friendlyInvisible bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("sensor visibility %d: %w", id, ErrUnknownShip)
	}
	e.stealth = stealth
	e.friendlyInvisible = stealth && friendlyInvisible
	return nil
}

// Members returns the vessels on a team, sorted by ID.
func (r *Registry) Members(team core.Team) []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedSet(r.byTeam[team])
}

// ByIFF returns the vessels carrying an IFF code, sorted by ID.
func (r *Registry) ByIFF(code string) []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedSet(r.byIFF[code])
}

// Entry returns a copy of a vessel's registration.
func (r *Registry) Entry(id ID) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(), true
}

// Len returns the number of registered vessels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func sortedSet(set map[ID]struct{}) []ID {
	out := make([]ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

func sortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
