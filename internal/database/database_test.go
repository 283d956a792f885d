package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.PostgresConfig{
		Host:     "db",
		Port:     "5433",
		Username: "ship",
		Password: "secret",
		Database: "fleet",
	})
	assert.Equal(t, "host=db port=5433 user=ship password=secret dbname=fleet sslmode=disable", dsn)
}

func TestGetSqliteDB_FileAndMigrate(t *testing.T) {
	db, err := GetSqliteDB(filepath.Join(t.TempDir(), "ships.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	require.NoError(t, Migrate(db, zerolog.Nop()))
	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}
}

func TestDumpMemoryDBToDisk_RequiresPath(t *testing.T) {
	err := DumpMemoryDBToDisk(nil, "", zerolog.Nop())
	assert.ErrorContains(t, err, "path not set")
}
