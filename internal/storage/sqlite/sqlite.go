// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend via composition; the SQLite-specific concerns are
// creating the in-memory DB and dumping it to disk.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/internal/database"
	gormstorage "github.com/shipcore/shipcore/internal/storage/gorm"
	"gorm.io/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      *slog.Logger
	dbLog    zerolog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates a new SQLite storage backend.
func New(cfg config.SQLiteConfig, log *slog.Logger, dbLog zerolog.Logger) (*Backend, error) {
	db, err := database.GetSqliteDB("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:       db,
		Logger:   log,
		DBLogger: dbLog,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      log,
		dbLog:    dbLog,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, closes the embedded GORM backend and
// writes a final dump when a dump path is configured.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.cfg.DumpPath == "" {
		return nil
	}
	return database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath, b.dbLog)
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath, b.dbLog); err != nil {
				b.log.Error("Error dumping SQLite DB to disk", "path", b.cfg.DumpPath, "error", err)
			}
		}
	}
}
