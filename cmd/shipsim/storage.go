package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/internal/storage"
)

func initStorage() error {
	storageCfg := config.GetStorageConfig()

	// default the sqlite dump next to the logs
	if storageCfg.Type == "sqlite" && storageCfg.SQLite.DumpPath == "" {
		storageCfg.SQLite.DumpPath = filepath.Join(
			config.GetString("logsDir"),
			fmt.Sprintf("%s_%s.db", AppName, SessionStartTime.Format("20060102_150405")),
		)
	}

	backend, err := storage.NewBackend(storageCfg, Logger, dbLogger)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "type", storageCfg.Type, "error", err)
		return err
	}
	storageBackend = backend
	Logger.Info("Storage backend initialized", "type", storageCfg.Type)
	return nil
}

func saveMission() error {
	save := missionCtx.Save()
	if err := storageBackend.SaveMission(save); err != nil {
		return fmt.Errorf("saving mission: %w", err)
	}
	attrs := []any{"session", save.SessionID, "ships", len(save.Ships)}
	if exp, ok := storageBackend.(storage.Exportable); ok {
		attrs = append(attrs, "file", exp.GetExportedFilePath())
	}
	Logger.Info("Mission saved", attrs...)

	if OTelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := OTelProvider.Flush(ctx); err != nil {
			Logger.Warn("Failed to flush OTel after save", "error", err)
		}
	}
	return nil
}
