package streaming

import (
	"encoding/json"

	"github.com/shipcore/shipcore/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeEvent        = "event"
	TypeSamples      = "samples"
	TypeMissionSave  = "mission_save"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload announces the mission session that follows.
type StartSessionPayload struct {
	SessionID string `json:"sessionId"`
}

// EventPayload carries one simulation event.
type EventPayload struct {
	SessionID string     `json:"sessionId"`
	Event     core.Event `json:"event"`
}

// SamplesPayload carries one monitor sample of every vessel.
type SamplesPayload struct {
	SessionID string              `json:"sessionId"`
	Tick      uint64              `json:"tick"`
	Ships     []core.ShipSnapshot `json:"ships"`
}
