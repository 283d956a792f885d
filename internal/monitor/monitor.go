package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shipcore/shipcore/internal/mission"
	"github.com/shipcore/shipcore/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Sample is one snapshot of the whole arena.
type Sample struct {
	SessionID string
	Mission   string
	Tick      uint64
	SimTime   time.Duration
	Time      time.Time
	Ships     []core.ShipSnapshot
}

// Sink receives samples.
type Sink interface {
	Name() string
	Write(s Sample) error
	Close() error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Mission *mission.Context
	Logger  *slog.Logger
	Sinks   []Sink
	// Interval is the number of ticks between samples.
	Interval int
	// Meter records sample and sink error counters. Nil uses a no-op meter.
	Meter metric.Meter
}

// Status summarizes the arena for the status command.
type Status struct {
	Mission    string         `json:"mission"`
	Session    string         `json:"session"`
	Tick       uint64         `json:"tick"`
	SimTime    string         `json:"simTime"`
	Ships      int            `json:"ships"`
	ByState    map[string]int `json:"byState"`
	Samples    uint64         `json:"samples"`
	SinkErrors uint64         `json:"sinkErrors"`
}

// Service manages status monitoring
type Service struct {
	deps       Dependencies
	isRunning  bool
	hooked     bool
	samples    uint64
	sinkErrors uint64
	mu         sync.RWMutex

	sampleCounter metric.Int64Counter
	errorCounter  metric.Int64Counter
	shipsGauge    metric.Int64Gauge
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 1
	}
	if deps.Meter == nil {
		deps.Meter = noop.Meter{}
	}
	s := &Service{deps: deps}
	var err error
	if s.sampleCounter, err = deps.Meter.Int64Counter("monitor.samples",
		metric.WithDescription("Arena samples taken")); err != nil {
		s.sampleCounter, _ = noop.Meter{}.Int64Counter("monitor.samples")
	}
	if s.errorCounter, err = deps.Meter.Int64Counter("monitor.sink_errors",
		metric.WithDescription("Failed sink writes")); err != nil {
		s.errorCounter, _ = noop.Meter{}.Int64Counter("monitor.sink_errors")
	}
	if s.shipsGauge, err = deps.Meter.Int64Gauge("monitor.ships",
		metric.WithDescription("Vessels in the arena at the last sample")); err != nil {
		s.shipsGauge, _ = noop.Meter{}.Int64Gauge("monitor.ships")
	}
	return s
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Start samples the mission every Interval ticks until Stop.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	if !s.hooked {
		s.hooked = true
		s.deps.Mission.OnTick(s.onTick)
	}
	s.deps.Logger.Info("Status monitor started", "interval", s.deps.Interval, "sinks", len(s.deps.Sinks))
}

// Stop pauses sampling. Sinks stay open until Close.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isRunning = false
}

func (s *Service) onTick(tick uint64) {
	if !s.IsRunning() || tick%uint64(s.deps.Interval) != 0 {
		return
	}
	if err := s.SampleNow(); err != nil {
		s.deps.Logger.Warn("Sample failed", "tick", tick, "error", err)
	}
}

// SampleNow snapshots the mission and hands the sample to every sink.
func (s *Service) SampleNow() error {
	m := s.deps.Mission
	sample := Sample{
		SessionID: m.Session().String(),
		Mission:   m.Name(),
		Tick:      m.Ticks(),
		SimTime:   m.SimTime(),
		Time:      time.Now(),
		Ships:     m.Snapshot(),
	}

	ctx := context.Background()
	var errs []error
	for _, sink := range s.deps.Sinks {
		if err := sink.Write(sample); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			s.errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("sink", sink.Name())))
		}
	}
	s.sampleCounter.Add(ctx, 1)
	s.shipsGauge.Record(ctx, int64(len(sample.Ships)))

	s.mu.Lock()
	s.samples++
	s.sinkErrors += uint64(len(errs))
	s.mu.Unlock()
	return errors.Join(errs...)
}

// GetProgramStatus returns the current arena status and its JSON form.
func (s *Service) GetProgramStatus() (Status, string) {
	m := s.deps.Mission
	status := Status{
		Mission: m.Name(),
		Session: m.Session().String(),
		Tick:    m.Ticks(),
		SimTime: m.SimTime().String(),
		ByState: make(map[string]int),
	}
	for _, snap := range m.Snapshot() {
		status.Ships++
		status.ByState[snap.State]++
	}

	s.mu.RLock()
	status.Samples = s.samples
	status.SinkErrors = s.sinkErrors
	s.mu.RUnlock()

	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		out = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	return status, string(out)
}

// Close stops sampling and closes every sink.
func (s *Service) Close() error {
	s.Stop()
	var errs []error
	for _, sink := range s.deps.Sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}
