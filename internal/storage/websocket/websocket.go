// Package websocket streams mission events, monitor samples and saves to a
// live viewer over a WebSocket.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/pkg/core"
	"github.com/shipcore/shipcore/pkg/streaming"
)

// Backend is a write-only storage backend. LoadMission always reports
// core.ErrSaveNotFound.
type Backend struct {
	conn *conn
	cfg  config.WebSocketConfig
	log  *slog.Logger

	mu      sync.Mutex
	session string
}

// New creates a WebSocket backend. Init dials the server.
func New(cfg config.WebSocketConfig, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = defaultAckTimeout
	}
	return &Backend{
		conn: newConn(log, cfg.QueueSize),
		cfg:  cfg,
		log:  log,
	}
}

func (b *Backend) Init() error {
	if b.cfg.URL == "" {
		return fmt.Errorf("websocket URL not set")
	}
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close announces the end of the current session and disconnects.
func (b *Backend) Close() error {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()

	var endErr error
	if session != "" {
		endErr = b.sendAndWait(streaming.TypeEndSession, streaming.StartSessionPayload{SessionID: session})
	}
	if dropped := b.Dropped(); dropped > 0 {
		b.log.Warn("WebSocket messages dropped", "count", dropped)
	}
	if err := b.conn.close(); err != nil {
		return err
	}
	return endErr
}

// Dropped is the number of messages discarded while the queue was full or
// the link was down.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (b *Backend) send(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

func (b *Backend) sendAndWait(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return b.conn.sendAndWait(data, msgType, b.cfg.AckTimeout)
}

// ensureSession announces sessionID the first time it is seen and keeps the
// announcement for replay after a reconnect.
func (b *Backend) ensureSession(sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == sessionID {
		return nil
	}
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{SessionID: sessionID})
	if err != nil {
		return err
	}
	b.session = sessionID
	b.conn.mu.Lock()
	b.conn.replay = data
	b.conn.mu.Unlock()
	b.conn.send(data)
	return nil
}

// SaveMission streams the save and waits for the server to acknowledge it.
func (b *Backend) SaveMission(save core.MissionSave) error {
	if err := b.ensureSession(save.SessionID); err != nil {
		return err
	}
	return b.sendAndWait(streaming.TypeMissionSave, save)
}

func (b *Backend) LoadMission(ref string) (core.MissionSave, error) {
	return core.MissionSave{}, fmt.Errorf("%w: websocket backend cannot load %q", core.ErrSaveNotFound, ref)
}

func (b *Backend) RecordEvent(sessionID string, e core.Event) error {
	if err := b.ensureSession(sessionID); err != nil {
		return err
	}
	return b.send(streaming.TypeEvent, streaming.EventPayload{SessionID: sessionID, Event: e})
}

func (b *Backend) RecordSamples(sessionID string, tick uint64, ships []core.ShipSnapshot) error {
	if err := b.ensureSession(sessionID); err != nil {
		return err
	}
	return b.send(streaming.TypeSamples, streaming.SamplesPayload{SessionID: sessionID, Tick: tick, Ships: ships})
}
