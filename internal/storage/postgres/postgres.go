// Package postgres implements the storage.Backend interface on PostgreSQL by
// wrapping the GORM backend with a lazily opened connection.
package postgres

import (
	"log/slog"

	"github.com/rs/zerolog"
	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/internal/database"
	gormstorage "github.com/shipcore/shipcore/internal/storage/gorm"
	"gorm.io/gorm"
)

// Backend is the GORM backend connected to Postgres on Init.
type Backend struct {
	*gormstorage.Backend
	cfg config.PostgresConfig
}

// New creates a Postgres storage backend. The connection is opened by Init.
func New(cfg config.PostgresConfig, log *slog.Logger, dbLog zerolog.Logger) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			Open: func() (*gorm.DB, error) {
				dbLog.Debug().Str("host", cfg.Host).Str("port", cfg.Port).Str("database", cfg.Database).
					Msg("Connecting to Postgres DB")
				return database.GetPostgresDB(cfg)
			},
			Logger:   log,
			DBLogger: dbLog,
		}),
		cfg: cfg,
	}
}

// Config returns the connection settings.
func (b *Backend) Config() config.PostgresConfig {
	return b.cfg
}
