package parser

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shipcore/shipcore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	return NewParser(slog.Default())
}

func TestNewParser(t *testing.T) {
	p := newTestParser()
	require.NotNil(t, p)
}

func TestParseUintFromFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{"integer", "32", 32, false},
		{"zero", "0", 0, false},
		{"float with decimals", "32.00", 32, false},
		{"float with trailing zero", "30.0", 30, false},
		{"large integer", "65535", 65535, false},
		{"large float", "65535.00", 65535, false},
		{"fractional rejects", "10.99", 0, true},
		{"empty string", "", 0, true},
		{"non-numeric", "abc", 0, true},
		{"negative", "-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseUintFromFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseIntFromFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"integer", "32", 32, false},
		{"zero", "0", 0, false},
		{"negative integer", "-1", -1, false},
		{"float with decimals", "32.00", 32, false},
		{"negative float", "-1.00", -1, false},
		{"large integer", "65535", 65535, false},
		{"fractional rejects", "10.99", 0, true},
		{"empty string", "", 0, true},
		{"non-numeric", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIntFromFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"40", 40, false},
		{"40.5", 40.5, false},
		{" 75% ", 75, false},
		{"-3", -3, false},
		{"x", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseShipID(t *testing.T) {
	id, err := ParseShipID("#12")
	require.NoError(t, err)
	assert.Equal(t, core.ShipID(12), id)

	id, err = ParseShipID("7.0")
	require.NoError(t, err)
	assert.Equal(t, core.ShipID(7), id)

	_, err = ParseShipID("Alpha")
	assert.Error(t, err)
	_, err = ParseShipID("99999999999")
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("2.5s")
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, d)

	d, err = ParseDuration("0.5")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)

	_, err = ParseDuration("soon")
	assert.Error(t, err)
}

func TestParseVector(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    core.Vector3
		wantErr bool
	}{
		{"plain", "1,2,3", core.Vector3{X: 1, Y: 2, Z: 3}, false},
		{"bracketed with spaces", "[ -10.5, 0, 2e3 ]", core.Vector3{X: -10.5, Y: 0, Z: 2000}, false},
		{"two components", "1,2", core.Vector3{}, true},
		{"bad number", "1,b,3", core.Vector3{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVector(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTeam(t *testing.T) {
	tests := []struct {
		input   string
		want    core.Team
		wantErr bool
	}{
		{"friendly", core.TeamFriendly, false},
		{"HOSTILE", core.TeamHostile, false},
		{"2", core.TeamNeutral, false},
		{"3.0", core.TeamUnknown, false},
		{"4", 0, true},
		{"-1", 0, true},
		{"traitor", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTeam(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAllocation(t *testing.T) {
	a, err := ParseAllocation("6/3/3")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, a.Shield, 1e-9)
	assert.InDelta(t, 0.25, a.Weapon, 1e-9)
	assert.InDelta(t, 0.25, a.Engine, 1e-9)

	a, err = ParseAllocation("0.2,0.3,0.5")
	require.NoError(t, err)
	assert.Equal(t, core.Allocation{Shield: 0.2, Weapon: 0.3, Engine: 0.5}, a)

	_, err = ParseAllocation("6/6")
	assert.Error(t, err)
	_, err = ParseAllocation("6/x/3")
	assert.Error(t, err)
}

func TestParseSpawn(t *testing.T) {
	p := newTestParser()

	spawn, err := p.ParseSpawn([]string{"GTF Ulysses", "Alpha 1", "friendly", "100,0,-50", "75", "50%", "iff=alpha", "faction=Terran"})
	require.NoError(t, err)

	assert.Equal(t, core.SpawnData{
		ShipClass:         "GTF Ulysses",
		Name:              "Alpha 1",
		Team:              core.TeamFriendly,
		Position:          core.Vector3{X: 100, Z: -50},
		InitialHullPct:    75,
		InitialShieldsPct: 50,
		Faction:           "Terran",
		IFF:               "alpha",
	}, spawn)
}

func TestParseSpawn_Minimal(t *testing.T) {
	spawn, err := newTestParser().ParseSpawn([]string{"SF Dragon", "Kappa 1", "hostile"})
	require.NoError(t, err)

	assert.Equal(t, core.TeamHostile, spawn.Team)
	assert.Zero(t, spawn.InitialHullPct)
	assert.Equal(t, core.Vector3{}, spawn.Position)
}

func TestParseSpawn_AutoTeam(t *testing.T) {
	spawn, err := newTestParser().ParseSpawn([]string{"SF Dragon", "Kappa 1", "Auto", "faction=Shivan"})
	require.NoError(t, err)

	assert.True(t, spawn.TeamFromFaction)
	assert.Equal(t, "Shivan", spawn.Faction)
}

func TestParseSpawn_Errors(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name string
		args []string
	}{
		{"too few", []string{"SF Dragon", "Kappa 1"}},
		{"bad team", []string{"SF Dragon", "Kappa 1", "purple"}},
		{"bad vector", []string{"SF Dragon", "Kappa 1", "hostile", "1,2"}},
		{"bad hull", []string{"SF Dragon", "Kappa 1", "hostile", "0,0,0", "lots"}},
		{"unknown option", []string{"SF Dragon", "Kappa 1", "hostile", "wing=kappa"}},
		{"too many", []string{"SF Dragon", "Kappa 1", "hostile", "0,0,0", "1", "2", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseSpawn(tt.args)
			assert.Error(t, err)
		})
	}

	_, err := p.ParseSpawn(nil)
	assert.True(t, errors.Is(err, ErrArgs))
}
