package monitor

import (
	"github.com/shipcore/shipcore/internal/influx"
	"github.com/shipcore/shipcore/internal/storage"
	"github.com/shipcore/shipcore/internal/telemetry"
)

// CSVSink writes samples through a telemetry.OutputManager.
type CSVSink struct {
	Out *telemetry.OutputManager
}

func (c CSVSink) Name() string { return "csv" }

func (c CSVSink) Write(s Sample) error {
	if err := c.Out.WriteShips(telemetry.ShipRows(s.Tick, s.SimTime, s.Ships)); err != nil {
		return err
	}
	return c.Out.WriteSummary(telemetry.Summarize(s.Tick, s.SimTime, s.Ships))
}

func (c CSVSink) Close() error { return c.Out.Close() }

// InfluxSink writes one point per vessel.
type InfluxSink struct {
	Manager *influx.Manager
}

func (i InfluxSink) Name() string { return "influx" }

func (i InfluxSink) Write(s Sample) error {
	return i.Manager.WriteShips(s.SessionID, s.Mission, s.Tick, s.Time, s.Ships)
}

func (i InfluxSink) Close() error { return i.Manager.Close() }

// StorageSink records samples in the storage backend. Closing the backend
// is left to its owner.
type StorageSink struct {
	Backend storage.Backend
}

func (b StorageSink) Name() string { return "storage" }

func (b StorageSink) Write(s Sample) error {
	return b.Backend.RecordSamples(s.SessionID, s.Tick, s.Ships)
}

func (b StorageSink) Close() error { return nil }
