// Package gormstorage implements the storage.Backend interface using GORM
// with internal queues and a background DB writer goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shipcore/shipcore/internal/database"
	"github.com/shipcore/shipcore/internal/model"
	"github.com/shipcore/shipcore/internal/model/convert"
	"github.com/shipcore/shipcore/internal/queue"
	"github.com/shipcore/shipcore/pkg/core"
	"gorm.io/gorm"
)

// ErrNoDatabase is returned by mission operations in queue-only mode.
var ErrNoDatabase = errors.New("no database connection")

// DefaultFlushInterval is how often queued records are written.
const DefaultFlushInterval = 500 * time.Millisecond

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	// DB is used as-is when set. Otherwise Open is called by Init; with
	// neither the backend runs in queue-only mode.
	DB   *gorm.DB
	Open func() (*gorm.DB, error)

	Logger        *slog.Logger
	DBLogger      zerolog.Logger
	FlushInterval time.Duration
	// QueueLimit bounds each write queue, dropping the oldest records. 0 is unbounded.
	QueueLimit int
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Events  *queue.Queue[model.EventRecord]
	Samples *queue.Queue[model.ShipSample]
}

func newQueues(limit int) *queues {
	if limit > 0 {
		return &queues{
			Events:  queue.NewBounded[model.EventRecord](limit),
			Samples: queue.NewBounded[model.ShipSample](limit),
		}
	}
	return &queues{
		Events:  queue.New[model.EventRecord](),
		Samples: queue.New[model.ShipSample](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	dbReady   bool

	lastWrite atomic.Int64 // nanoseconds of the most recent flush
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, runs schema migration, and starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.queues = newQueues(b.deps.QueueLimit)
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.deps.DB == nil && b.deps.Open != nil {
		db, err := b.deps.Open()
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		b.deps.DB = db
	}

	if b.deps.DB == nil {
		b.deps.Logger.Warn("No database configured, records stay queued")
		close(b.done)
		return nil
	}

	if err := database.Migrate(b.deps.DB, b.deps.DBLogger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true

	go b.writeLoop()
	return nil
}

// Close stops the writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.stopChan == nil {
			return
		}
		close(b.stopChan)
		<-b.done
		if b.dbReady {
			err = b.flush()
		}
	})
	return err
}

// DB returns the underlying connection, nil in queue-only mode.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// QueueLengths reports the pending event and sample records.
func (b *Backend) QueueLengths() (events, samples int) {
	return b.queues.Events.Len(), b.queues.Samples.Len()
}

// LastWriteDuration returns how long the most recent flush took.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// SaveMission upserts the mission by session ID and replaces its ships.
func (b *Backend) SaveMission(save core.MissionSave) error {
	if !b.dbReady {
		return ErrNoDatabase
	}

	m := convert.MissionToGorm(save)
	return b.deps.DB.Transaction(func(tx *gorm.DB) error {
		var existing model.Mission
		err := tx.Where("session_id = ?", save.SessionID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("failed to create mission: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to look up mission: %w", err)
		}

		if err := tx.Where("mission_id = ?", existing.ID).Delete(&model.ShipSave{}).Error; err != nil {
			return fmt.Errorf("failed to clear ships: %w", err)
		}
		if err := tx.Model(&existing).Updates(map[string]any{
			"name":     m.Name,
			"saved_at": m.SavedAt,
			"sim_time": m.SimTime,
		}).Error; err != nil {
			return fmt.Errorf("failed to update mission: %w", err)
		}
		if len(m.Ships) == 0 {
			return nil
		}
		for i := range m.Ships {
			m.Ships[i].MissionID = existing.ID
		}
		if err := tx.Create(&m.Ships).Error; err != nil {
			return fmt.Errorf("failed to write ships: %w", err)
		}
		return nil
	})
}

// LoadMission finds a mission by session ID, or the newest save with that name.
func (b *Backend) LoadMission(ref string) (core.MissionSave, error) {
	if !b.dbReady {
		return core.MissionSave{}, ErrNoDatabase
	}

	var m model.Mission
	err := b.deps.DB.Preload("Ships").
		Where("session_id = ? OR name = ?", ref, ref).
		Order("saved_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.MissionSave{}, core.ErrSaveNotFound
	}
	if err != nil {
		return core.MissionSave{}, fmt.Errorf("failed to load mission: %w", err)
	}
	return convert.MissionToCore(m), nil
}

// RecordEvent queues an event for the writer.
func (b *Backend) RecordEvent(sessionID string, e core.Event) error {
	b.queues.Events.Push(convert.EventToGorm(sessionID, time.Now(), e))
	return nil
}

// RecordSamples queues one sample per vessel for the writer.
func (b *Backend) RecordSamples(sessionID string, tick uint64, ships []core.ShipSnapshot) error {
	now := time.Now()
	samples := make([]model.ShipSample, 0, len(ships))
	for _, s := range ships {
		samples = append(samples, convert.SnapshotToGorm(sessionID, tick, now, s))
	}
	b.queues.Samples.Push(samples...)
	return nil
}

func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.flush(); err != nil {
				b.deps.Logger.Error("Failed to write queued records", "error", err)
			}
		}
	}
}

// flush writes both queues in batches.
func (b *Backend) flush() error {
	start := time.Now()
	var errs []error

	if events := b.queues.Events.GetAndEmpty(); len(events) > 0 {
		if err := b.deps.DB.CreateInBatches(events, 500).Error; err != nil {
			errs = append(errs, fmt.Errorf("writing %d events: %w", len(events), err))
		}
	}
	if samples := b.queues.Samples.GetAndEmpty(); len(samples) > 0 {
		if err := b.deps.DB.CreateInBatches(samples, 500).Error; err != nil {
			errs = append(errs, fmt.Errorf("writing %d samples: %w", len(samples), err))
		}
	}

	b.lastWrite.Store(int64(time.Since(start)))
	return errors.Join(errs...)
}
