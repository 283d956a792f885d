// pkg/core/mission.go
package core

import (
	"errors"
	"time"
)

// MissionSave is the persisted state of a whole mission.
type MissionSave struct {
	SessionID string        `json:"sessionId"`
	Name      string        `json:"name"`
	SavedAt   time.Time     `json:"savedAt"`
	SimTime   time.Duration `json:"simTime"`
	Ships     []ShipPayload `json:"ships"`
}

// ErrSaveNotFound is returned by storage backends when no save matches a lookup.
var ErrSaveNotFound = errors.New("mission save not found")
