package telemetry

import (
	"time"

	"github.com/shipcore/shipcore/pkg/core"
	"gonum.org/v1/gonum/floats"
)

// ShipRow is one vessel at one sample tick.
type ShipRow struct {
	Tick        uint64  `csv:"tick"`
	SimTimeSec  float64 `csv:"sim_time"`
	Ship        string  `csv:"ship"`
	Class       string  `csv:"class"`
	Team        string  `csv:"team"`
	State       string  `csv:"state"`
	Combat      string  `csv:"combat"`
	Hull        float64 `csv:"hull"`
	MaxHull     float64 `csv:"max_hull"`
	Shield      float64 `csv:"shield"`
	MaxShield   float64 `csv:"max_shield"`
	Weapon      float64 `csv:"weapon_energy"`
	Fuel        float64 `csv:"afterburner_fuel"`
	ShieldAlloc float64 `csv:"ets_shield"`
	WeaponAlloc float64 `csv:"ets_weapon"`
	EngineAlloc float64 `csv:"ets_engine"`
	Performance float64 `csv:"performance"`
	Speed       float64 `csv:"speed"`
	Afterburner bool    `csv:"afterburner"`
}

// SummaryRow aggregates all vessels at one sample tick.
type SummaryRow struct {
	Tick           uint64  `csv:"tick"`
	SimTimeSec     float64 `csv:"sim_time"`
	Ships          int     `csv:"ships"`
	Active         int     `csv:"active"`
	InCombat       int     `csv:"in_combat"`
	TotalHull      float64 `csv:"total_hull"`
	MinHullPct     float64 `csv:"min_hull_pct"`
	AvgPerformance float64 `csv:"avg_performance"`
}

// ShipRows converts snapshots to CSV rows.
func ShipRows(tick uint64, simTime time.Duration, ships []core.ShipSnapshot) []ShipRow {
	rows := make([]ShipRow, 0, len(ships))
	for _, s := range ships {
		rows = append(rows, ShipRow{
			Tick:        tick,
			SimTimeSec:  simTime.Seconds(),
			Ship:        s.Name,
			Class:       s.Class,
			Team:        s.Team.String(),
			State:       s.State,
			Combat:      s.CombatState,
			Hull:        s.Hull,
			MaxHull:     s.MaxHull,
			Shield:      s.Shield,
			MaxShield:   s.MaxShield,
			Weapon:      s.WeaponEnergy,
			Fuel:        s.Fuel,
			ShieldAlloc: s.Allocation.Shield,
			WeaponAlloc: s.Allocation.Weapon,
			EngineAlloc: s.Allocation.Engine,
			Performance: s.OverallPerformance,
			Speed:       s.Speed,
			Afterburner: s.AfterburnerActive,
		})
	}
	return rows
}

// Summarize aggregates snapshots into one row. Hull percentage ignores
// vessels without a hull.
func Summarize(tick uint64, simTime time.Duration, ships []core.ShipSnapshot) SummaryRow {
	row := SummaryRow{
		Tick:       tick,
		SimTimeSec: simTime.Seconds(),
		Ships:      len(ships),
	}
	if len(ships) == 0 {
		return row
	}

	hulls := make([]float64, 0, len(ships))
	hullPct := make([]float64, 0, len(ships))
	perf := make([]float64, 0, len(ships))
	for _, s := range ships {
		if s.State == "ACTIVE" {
			row.Active++
		}
		if s.CombatState != "" && s.CombatState != "NORMAL" {
			row.InCombat++
		}
		hulls = append(hulls, s.Hull)
		if s.MaxHull > 0 {
			hullPct = append(hullPct, 100*s.Hull/s.MaxHull)
		}
		perf = append(perf, s.OverallPerformance)
	}

	row.TotalHull = floats.Sum(hulls)
	if len(hullPct) > 0 {
		row.MinHullPct = floats.Min(hullPct)
	}
	row.AvgPerformance = floats.Sum(perf) / float64(len(perf))
	return row
}
