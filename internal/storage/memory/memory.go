// internal/storage/memory/memory.go
package memory

import (
	"sync"

	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/pkg/core"
)

// SampleRecord is one monitor sample of one vessel
type SampleRecord struct {
	Tick uint64            `json:"tick"`
	Ship core.ShipSnapshot `json:"ship"`
}

// MissionRecord groups a mission save with everything recorded for its session
type MissionRecord struct {
	Save    *core.MissionSave
	Events  []core.Event
	Samples []SampleRecord
	dirty   bool
}

// Backend stores mission data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	records map[string]*MissionRecord // keyed by session ID

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		records: make(map[string]*MissionRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports every saved mission that recorded data since its last export.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, rec := range b.records {
		if rec.Save == nil || !rec.dirty {
			continue
		}
		if err := b.exportJSON(rec); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) record(sessionID string) *MissionRecord {
	rec, ok := b.records[sessionID]
	if !ok {
		rec = &MissionRecord{}
		b.records[sessionID] = rec
	}
	return rec
}

// SaveMission keeps the save and exports it with the session's recorded data.
func (b *Backend) SaveMission(save core.MissionSave) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.record(save.SessionID)
	rec.Save = &save
	return b.exportJSON(rec)
}

// LoadMission finds a save by session ID or mission name, in memory first
// and then among exported files.
func (b *Backend) LoadMission(ref string) (core.MissionSave, error) {
	b.mu.RLock()
	var found *core.MissionSave
	for _, rec := range b.records {
		if rec.Save != nil && matches(*rec.Save, ref) && newer(rec.Save, found) {
			found = rec.Save
		}
	}
	b.mu.RUnlock()

	if found != nil {
		return *found, nil
	}
	return b.loadExported(ref)
}

// RecordEvent appends an event to its session.
func (b *Backend) RecordEvent(sessionID string, e core.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.record(sessionID)
	rec.Events = append(rec.Events, e)
	rec.dirty = true
	return nil
}

// RecordSamples appends one sample per vessel to its session.
func (b *Backend) RecordSamples(sessionID string, tick uint64, ships []core.ShipSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.record(sessionID)
	for _, s := range ships {
		rec.Samples = append(rec.Samples, SampleRecord{Tick: tick, Ship: s})
	}
	rec.dirty = true
	return nil
}

// GetExportedFilePath returns the path of the most recent export.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

func matches(save core.MissionSave, ref string) bool {
	return save.SessionID == ref || save.Name == ref
}

func newer(candidate, current *core.MissionSave) bool {
	return current == nil || candidate.SavedAt.After(current.SavedAt)
}
