package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot() core.ShipSnapshot {
	return core.ShipSnapshot{
		Name: "Alpha 1", Class: "GTF Ulysses", Team: core.TeamFriendly,
		State: "ACTIVE", CombatState: "NORMAL", Hull: 150, Shield: 80, OverallPerformance: 0.75,
	}
}

func TestShipPoint(t *testing.T) {
	at := time.Unix(1700000000, 0)
	line := influxdb2_write.PointToLineProtocol(ShipPoint("s-1", "Patrol", 42, at, snapshot()), time.Second)

	assert.True(t, strings.HasPrefix(line, "ship_status,"))
	assert.Contains(t, line, `ship=Alpha\ 1`)
	assert.Contains(t, line, "team=friendly")
	assert.Contains(t, line, "hull=150")
	assert.Contains(t, line, `state="ACTIVE"`)
	assert.Contains(t, line, "1700000000")
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{Enabled: false})
	assert.Error(t, m.Connect(context.Background()))
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.Error(t, m.WritePoint(ShipPoint("s", "m", 1, time.Now(), snapshot())))
}

func TestConnect_FallsBackToBackupFile(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx_backup.lp.gz")
	m := NewManager(zerolog.Nop(), config.InfluxConfig{
		Enabled:    true,
		URL:        "http://127.0.0.1:1",
		Token:      "token",
		Org:        "shipcore",
		Bucket:     "ship_telemetry",
		BackupPath: backup,
	})

	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	ships := []core.ShipSnapshot{snapshot(), {Name: "Kappa 1", Team: core.TeamHostile}}
	require.NoError(t, m.WriteShips("s-1", "Patrol", 7, time.Now(), ships))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], `ship=Kappa\ 1`)
}
