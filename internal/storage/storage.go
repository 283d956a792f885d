// internal/storage/storage.go
package storage

import (
	"github.com/shipcore/shipcore/internal/dispatcher"
	"github.com/shipcore/shipcore/pkg/core"
)

// ErrNotFound is returned by LoadMission when no save matches.
var ErrNotFound = core.ErrSaveNotFound

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Mission saves. LoadMission accepts a session ID or a mission name;
	// a name resolves to its most recent save.
	SaveMission(save core.MissionSave) error
	LoadMission(ref string) (core.MissionSave, error)

	// Recording
	RecordEvent(sessionID string, e core.Event) error
	RecordSamples(sessionID string, tick uint64, ships []core.ShipSnapshot) error
}

// Exportable is an optional interface for storage backends that write
// a file per saved mission.
type Exportable interface {
	GetExportedFilePath() string
}

// RecordEvents subscribes b to every event on d through a buffered worker.
func RecordEvents(d *dispatcher.Dispatcher, b Backend, session func() string, bufferSize int) {
	d.Subscribe(dispatcher.AllEvents, "storage", func(e core.Event) error {
		return b.RecordEvent(session(), e)
	}, dispatcher.Buffered(bufferSize))
}
