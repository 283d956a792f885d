// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"
	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/internal/storage/memory"
	"github.com/shipcore/shipcore/internal/storage/postgres"
	sqlitestorage "github.com/shipcore/shipcore/internal/storage/sqlite"
	"github.com/shipcore/shipcore/internal/storage/websocket"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, log *slog.Logger, dbLog zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(cfg.Postgres, log, dbLog), nil
	case "sqlite":
		b, err := sqlitestorage.New(cfg.SQLite, log, dbLog)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "websocket":
		return websocket.New(cfg.WebSocket, log), nil
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
