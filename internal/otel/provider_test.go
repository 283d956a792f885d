package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("test"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutOutputs(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "shipcore"})
	assert.Error(t, err)
}

func TestNew_FileExporter(t *testing.T) {
	var logs bytes.Buffer
	p, err := New(Config{
		Enabled:      true,
		ServiceName:  "shipcore",
		BatchTimeout: time.Second,
		LogWriter:    &logs,
	})
	require.NoError(t, err)

	assert.True(t, p.Enabled())
	assert.NotNil(t, p.LoggerProvider())
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_MetricExporter(t *testing.T) {
	var logs, metrics bytes.Buffer
	p, err := New(Config{
		Enabled:      true,
		ServiceName:  "shipcore",
		BatchTimeout: time.Second,
		LogWriter:    &logs,
		MetricWriter: &metrics,
	})
	require.NoError(t, err)

	counter, err := p.Meter("test").Int64Counter("ships.spawned")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, metrics.String(), "ships.spawned")
	assert.NoError(t, p.Shutdown(context.Background()))
}
