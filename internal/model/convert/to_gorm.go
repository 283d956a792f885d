package convert

import (
	"encoding/json"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/shipcore/shipcore/internal/model"
	"github.com/shipcore/shipcore/pkg/core"
	"gorm.io/datatypes"
)

// vectorToPoint converts a core.Vector3 to a 3D geom.Point
func vectorToPoint(v core.Vector3) geom.Point {
	coords := geom.Coordinates{XY: geom.XY{X: v.X, Y: v.Y}, Z: v.Z, Type: geom.DimXYZ}
	return geom.NewPoint(coords)
}

// toJSON marshals v for a datatypes.JSON column, falling back to empty.
func toJSON(v any, empty string) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON(empty)
	}
	return datatypes.JSON(data)
}

// MissionToGorm converts a core.MissionSave to a GORM Mission with its ships.
func MissionToGorm(s core.MissionSave) model.Mission {
	m := model.Mission{
		SessionID: s.SessionID,
		Name:      s.Name,
		SavedAt:   s.SavedAt,
		SimTime:   s.SimTime,
		Ships:     make([]model.ShipSave, 0, len(s.Ships)),
	}
	for i, p := range s.Ships {
		m.Ships = append(m.Ships, ShipToGorm(p, i))
	}
	return m
}

// ShipToGorm converts a core.ShipPayload to a GORM ShipSave at the given position in the save.
func ShipToGorm(p core.ShipPayload, order int) model.ShipSave {
	timers := datatypes.JSON("{}")
	if len(p.PendingTimers) > 0 {
		timers = toJSON(p.PendingTimers, "{}")
	}

	return model.ShipSave{
		SortOrder:     order,
		Name:          p.Name,
		Class:         p.Class,
		State:         p.State,
		CombatState:   p.CombatState,
		MissionFlags:  p.MissionFlags,
		Team:          int(p.Team),
		ObservedTeam:  int(p.ObservedTeam),
		Faction:       p.Faction,
		IFF:           p.IFF,
		Hull:          p.Hull,
		MaxHull:       p.MaxHull,
		Shield:        p.Shield,
		MaxShield:     p.MaxShield,
		WeaponEnergy:  p.WeaponEnergy,
		MaxWeapon:     p.MaxWeaponEnergy,
		Fuel:          p.Fuel,
		MaxFuel:       p.MaxFuel,
		Position:      vectorToPoint(p.Position),
		Allocation:    toJSON(p.Allocation, "{}"),
		PendingTimers: timers,
	}
}

// EventToGorm converts a core.Event to a GORM EventRecord for the given session.
func EventToGorm(sessionID string, at time.Time, e core.Event) model.EventRecord {
	return model.EventRecord{
		Time:      at,
		SessionID: sessionID,
		Kind:      string(e.Kind),
		Ship:      e.Ship,
		SimTime:   e.SimTime,
		Stage:     e.Stage,
		From:      e.From,
		To:        e.To,
		Flag:      e.Flag,
		Enabled:   e.Enabled,
		Cue:       e.Cue,
		Reason:    e.Reason,
	}
}

// SnapshotToGorm converts a core.ShipSnapshot to a GORM ShipSample.
func SnapshotToGorm(sessionID string, tick uint64, at time.Time, s core.ShipSnapshot) model.ShipSample {
	return model.ShipSample{
		Time:        at,
		SessionID:   sessionID,
		Tick:        tick,
		Ship:        s.Name,
		Class:       s.Class,
		Team:        s.Team.String(),
		State:       s.State,
		Hull:        s.Hull,
		Shield:      s.Shield,
		Weapon:      s.WeaponEnergy,
		Fuel:        s.Fuel,
		Speed:       s.Speed,
		Performance: s.OverallPerformance,
	}
}
