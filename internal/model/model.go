package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Mission{},
	&ShipSave{},
	&EventRecord{},
	&ShipSample{},
}

////////////////////////
// MISSION MODELS
////////////////////////

// Mission is one saved mission. Saving the same session again replaces its ships.
type Mission struct {
	gorm.Model
	SessionID string        `json:"sessionId" gorm:"size:36;uniqueIndex:idx_mission_session"`
	Name      string        `json:"name" gorm:"size:200;index:idx_mission_name"`
	SavedAt   time.Time     `json:"savedAt" gorm:"index:idx_mission_saved_at"`
	SimTime   time.Duration `json:"simTime"`

	Ships []ShipSave `json:"ships" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*Mission) TableName() string {
	return "missions"
}

// ShipSave is the persisted payload of one vessel
type ShipSave struct {
	ID           uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	MissionID    uint    `json:"missionId" gorm:"index:idx_shipsave_mission_id"`
	SortOrder    int     `json:"sortOrder"`
	Name         string  `json:"name" gorm:"size:127"`
	Class        string  `json:"class" gorm:"size:127"`
	State        string  `json:"state" gorm:"size:32"`
	CombatState  string  `json:"combatState" gorm:"size:32"`
	MissionFlags uint8   `json:"missionFlags"`
	Team         int     `json:"team"`
	ObservedTeam int     `json:"observedTeam"`
	Faction      string  `json:"faction" gorm:"size:64"`
	IFF          string  `json:"iff" gorm:"size:64"`
	Hull         float64 `json:"hull"`
	MaxHull      float64 `json:"maxHull"`
	Shield       float64 `json:"shield"`
	MaxShield    float64 `json:"maxShield"`
	WeaponEnergy float64 `json:"weaponEnergy"`
	MaxWeapon    float64 `json:"maxWeaponEnergy"`
	Fuel         float64 `json:"afterburnerFuel"`
	MaxFuel      float64 `json:"maxAfterburnerFuel"`

	Position geom.Point `json:"position"`
	// Allocation is {"shield":..,"weapon":..,"engine":..}
	Allocation datatypes.JSON `json:"allocation"`
	// PendingTimers maps timer name to remaining duration in nanoseconds
	PendingTimers datatypes.JSON `json:"pendingTimers"`
}

func (*ShipSave) TableName() string {
	return "ship_saves"
}

////////////////////////
// EVENT MODELS
////////////////////////

// EventRecord is one simulation event as written by the event recorder
type EventRecord struct {
	ID        uint          `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time     `json:"time" gorm:"index:idx_event_time"`
	SessionID string        `json:"sessionId" gorm:"size:36;index:idx_event_session"`
	Kind      string        `json:"kind" gorm:"size:32;index:idx_event_kind"`
	Ship      string        `json:"ship" gorm:"size:127"`
	SimTime   time.Duration `json:"simTime"`
	Stage     int           `json:"stage"`
	From      string        `json:"from" gorm:"size:32"`
	To        string        `json:"to" gorm:"size:32"`
	Flag      string        `json:"flag" gorm:"size:64"`
	Enabled   bool          `json:"enabled"`
	Cue       string        `json:"cue" gorm:"size:127"`
	Reason    string        `json:"reason" gorm:"size:255"`
}

func (*EventRecord) TableName() string {
	return "event_records"
}

// ShipSample is one monitor sample of a vessel's energy and lifecycle state
type ShipSample struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time `json:"time" gorm:"index:idx_sample_time"`
	SessionID   string    `json:"sessionId" gorm:"size:36;index:idx_sample_session"`
	Tick        uint64    `json:"tick"`
	Ship        string    `json:"ship" gorm:"size:127"`
	Class       string    `json:"class" gorm:"size:127"`
	Team        string    `json:"team" gorm:"size:16"`
	State       string    `json:"state" gorm:"size:32"`
	Hull        float64   `json:"hull"`
	Shield      float64   `json:"shield"`
	Weapon      float64   `json:"weapon"`
	Fuel        float64   `json:"fuel"`
	Speed       float64   `json:"speed"`
	Performance float64   `json:"performance"`
}

func (*ShipSample) TableName() string {
	return "ship_samples"
}
