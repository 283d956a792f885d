package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/shipcore/shipcore/pkg/streaming"
)

const (
	defaultQueueSize  = 4096
	defaultAckTimeout = 10 * time.Second
	ackChSize         = 16
	maxReconnect      = 10
	maxBackoff        = 30 * time.Second
	writeWait         = 10 * time.Second
)

// conn is one viewer link with a single writer goroutine. Reconnects replay
// the session announcement so the server can reattach the stream.
type conn struct {
	mu     sync.Mutex
	ws     *ws.Conn
	sendCh chan []byte
	ackCh  chan streaming.AckMessage
	done   chan struct{}
	closed bool

	target string
	secret string
	replay []byte

	dropped atomic.Uint64
	log     *slog.Logger
}

func newConn(log *slog.Logger, queueSize int) *conn {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &conn{
		sendCh: make(chan []byte, queueSize),
		ackCh:  make(chan streaming.AckMessage, ackChSize),
		done:   make(chan struct{}),
		log:    log,
	}
}

func (c *conn) dial(rawURL, secret string) error {
	c.target = rawURL
	c.secret = secret

	link, err := c.dialOnce()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.ws = link
	c.mu.Unlock()

	go c.writeLoop()
	go c.readLoop()
	return nil
}

// dialOnce opens one connection, passing the secret as a query parameter.
func (c *conn) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.target)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if c.secret != "" {
		q := u.Query()
		q.Set("secret", c.secret)
		u.RawQuery = q.Encode()
	}
	link, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return link, nil
}

func (c *conn) current() *ws.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws
}

func (c *conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			link := c.current()
			if link == nil {
				c.dropped.Add(1)
				continue
			}
			if err := write(link, data); err != nil {
				c.log.Warn("WebSocket write error", "error", err)
				go c.reconnect()
				return
			}
		}
	}
}

func write(link *ws.Conn, data []byte) error {
	if err := link.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return link.WriteMessage(ws.TextMessage, data)
}

// readLoop routes server acks to ackCh and ignores everything else.
func (c *conn) readLoop() {
	for {
		link := c.current()
		if link == nil {
			return
		}
		_, message, err := link.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.log.Warn("WebSocket read error", "error", err)
			go c.reconnect()
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != "ack" {
			continue
		}
		select {
		case c.ackCh <- ack:
		default:
			c.log.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

func (c *conn) reconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.ws != nil {
		_ = c.ws.Close()
		c.ws = nil
	}
	c.mu.Unlock()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		link, err := c.dialOnce()
		if err != nil {
			c.log.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.mu.Lock()
		c.ws = link
		replay := c.replay
		c.mu.Unlock()

		if replay != nil {
			if err := write(link, replay); err != nil {
				c.log.Warn("Failed to replay session start after reconnect", "error", err)
				_ = link.Close()
				continue
			}
		}

		c.log.Info("WebSocket reconnected", "attempt", attempt)
		go c.writeLoop()
		go c.readLoop()
		return
	}
	c.log.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// send queues data for the writer and drops it when the queue is full.
func (c *conn) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.dropped.Add(1)
	}
}

// sendAndWait queues data and blocks until the server acks ackFor.
func (c *conn) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

func (c *conn) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	link := c.ws
	c.ws = nil
	c.mu.Unlock()

	if link == nil {
		return nil
	}
	_ = link.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	return link.Close()
}
