// Package convert provides functions to convert GORM models to core models
package convert

import (
	"encoding/json"
	"sort"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/shipcore/shipcore/internal/model"
	"github.com/shipcore/shipcore/pkg/core"
)

// pointToVector converts a geom.Point to a core.Vector3
func pointToVector(p geom.Point) core.Vector3 {
	coord, ok := p.Coordinates()
	if !ok {
		return core.Vector3{}
	}
	return core.Vector3{X: coord.XY.X, Y: coord.XY.Y, Z: coord.Z}
}

// MissionToCore converts a GORM Mission with its ships to a core.MissionSave.
// Ships come back in the order they were saved.
func MissionToCore(m model.Mission) core.MissionSave {
	ships := make([]model.ShipSave, len(m.Ships))
	copy(ships, m.Ships)
	sort.SliceStable(ships, func(i, j int) bool { return ships[i].SortOrder < ships[j].SortOrder })

	save := core.MissionSave{
		SessionID: m.SessionID,
		Name:      m.Name,
		SavedAt:   m.SavedAt,
		SimTime:   m.SimTime,
		Ships:     make([]core.ShipPayload, 0, len(ships)),
	}
	for _, s := range ships {
		save.Ships = append(save.Ships, ShipSaveToCore(s))
	}
	return save
}

// ShipSaveToCore converts a GORM ShipSave to a core.ShipPayload.
func ShipSaveToCore(s model.ShipSave) core.ShipPayload {
	var alloc core.Allocation
	if len(s.Allocation) > 0 {
		_ = json.Unmarshal(s.Allocation, &alloc)
	}

	var timers map[string]time.Duration
	if len(s.PendingTimers) > 0 {
		_ = json.Unmarshal(s.PendingTimers, &timers)
	}
	if len(timers) == 0 {
		timers = nil
	}

	return core.ShipPayload{
		Name:            s.Name,
		Class:           s.Class,
		State:           s.State,
		CombatState:     s.CombatState,
		MissionFlags:    s.MissionFlags,
		Team:            core.Team(s.Team),
		ObservedTeam:    core.Team(s.ObservedTeam),
		Faction:         s.Faction,
		IFF:             s.IFF,
		Hull:            s.Hull,
		MaxHull:         s.MaxHull,
		Shield:          s.Shield,
		MaxShield:       s.MaxShield,
		WeaponEnergy:    s.WeaponEnergy,
		MaxWeaponEnergy: s.MaxWeapon,
		Fuel:            s.Fuel,
		MaxFuel:         s.MaxFuel,
		Allocation:      alloc,
		Position:        pointToVector(s.Position),
		PendingTimers:   timers,
	}
}

// EventRecordToCore converts a GORM EventRecord to a core.Event.
func EventRecordToCore(r model.EventRecord) core.Event {
	return core.Event{
		Kind:    core.EventKind(r.Kind),
		Ship:    r.Ship,
		SimTime: r.SimTime,
		Stage:   r.Stage,
		From:    r.From,
		To:      r.To,
		Flag:    r.Flag,
		Enabled: r.Enabled,
		Cue:     r.Cue,
		Reason:  r.Reason,
	}
}
