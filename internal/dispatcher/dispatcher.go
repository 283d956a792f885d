package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shipcore/shipcore/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AllEvents subscribes a handler to every event kind.
const AllEvents core.EventKind = "*"

// ErrClosed is returned by buffered handlers after Close.
var ErrClosed = errors.New("dispatcher closed")

// Handler consumes a simulation event.
type Handler func(core.Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher fans simulation events out to the handlers subscribed to their
// kind. It implements core.EventSink.
type Dispatcher struct {
	logger Logger

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter

	mu       sync.RWMutex
	handlers map[core.EventKind][]Handler
	buffers  map[string]chan core.Event
	closed   bool
	workers  sync.WaitGroup
}

var _ core.EventSink = (*Dispatcher)(nil)

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[core.EventKind][]Handler),
		buffers:  make(map[string]chan core.Event),
		logger:   logger,
	}

	// Get meter from global OTel provider (returns no-op if not configured)
	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for name, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("handler", name)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.events.failed",
		metric.WithDescription("Total events a handler returned an error for"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Subscribe adds a named handler for an event kind, or for every kind with
// AllEvents. Handlers of one kind run in subscription order.
func (d *Dispatcher) Subscribe(kind core.EventKind, name string, h Handler, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(name, cfg.bufferSize, cfg.blocking, handler)
	}

	if cfg.logged {
		handler = d.withLogging(name, handler)
	}

	d.mu.Lock()
	d.handlers[kind] = append(d.handlers[kind], handler)
	d.mu.Unlock()
}

// Emit delivers e to the handlers of its kind and then to the AllEvents
// handlers. Handler errors are logged, never returned.
func (d *Dispatcher) Emit(e core.Event) {
	d.mu.RLock()
	targets := make([]Handler, 0, len(d.handlers[e.Kind])+len(d.handlers[AllEvents]))
	targets = append(targets, d.handlers[e.Kind]...)
	targets = append(targets, d.handlers[AllEvents]...)
	d.mu.RUnlock()

	for _, h := range targets {
		if err := h(e); err != nil {
			d.failed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(e.Kind))))
			if d.logger != nil {
				d.logger.Error("event handler failed", "kind", string(e.Kind), "ship", e.Ship, "error", err)
			}
		}
	}
}

// HasHandler returns true if a handler is subscribed to the kind.
func (d *Dispatcher) HasHandler(kind core.EventKind) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[kind]) > 0
}

// Close stops accepting buffered events and waits for every queue to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()
	d.workers.Wait()
}

func (d *Dispatcher) withBuffer(name string, size int, blocking bool, h Handler) Handler {
	buffer := make(chan core.Event, size)

	d.mu.Lock()
	d.buffers[name] = buffer
	d.mu.Unlock()

	nameAttr := attribute.String("handler", name)

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for e := range buffer {
			if err := h(e); err != nil {
				d.failed.Add(context.Background(), 1, metric.WithAttributes(nameAttr))
				if d.logger != nil {
					d.logger.Error("buffered handler failed", "handler", name, "kind", string(e.Kind), "error", err)
				}
			}
			d.processed.Add(context.Background(), 1, metric.WithAttributes(nameAttr))
		}
	}()

	if blocking {
		return func(e core.Event) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			if d.closed {
				return ErrClosed
			}
			buffer <- e
			return nil
		}
	}

	return func(e core.Event) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return ErrClosed
		}
		select {
		case buffer <- e:
			return nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(nameAttr))
			return fmt.Errorf("queue full: %s", name)
		}
	}
}

func (d *Dispatcher) withLogging(name string, h Handler) Handler {
	return func(e core.Event) error {
		if d.logger == nil {
			return h(e)
		}
		start := time.Now()
		d.logger.Debug("handling event", "handler", name, "kind", string(e.Kind), "ship", e.Ship)

		err := h(e)

		if err != nil {
			d.logger.Error("event failed", "handler", name, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "handler", name, "duration", time.Since(start))
		}

		return err
	}
}
