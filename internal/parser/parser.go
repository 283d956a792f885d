package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shipcore/shipcore/pkg/core"
)

// ErrArgs is returned when a command has too few arguments.
var ErrArgs = errors.New("not enough arguments")

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// Scenario files written by hand or exported from editors use both forms.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// parseIntFromFloat parses a string that may be an integer or float into int64.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// Parser converts script text into dispatcher commands and typed values.
// It holds no simulation state.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// ParseFloat accepts integer or float forms and an optional trailing '%'.
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse float %q: %w", s, err)
	}
	return v, nil
}

// ParseShipID parses a numeric ship handle, with or without a leading '#'.
func ParseShipID(s string) (core.ShipID, error) {
	v, err := parseUintFromFloat(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if err != nil || v > uint64(^uint32(0)) {
		return 0, fmt.Errorf("invalid ship id %q", s)
	}
	return core.ShipID(v), nil
}

// ParseDuration reads "2.5s", "300ms" or a bare number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// ParseVector reads "x,y,z", optionally wrapped in brackets.
func ParseVector(s string) (core.Vector3, error) {
	var v core.Vector3
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("vector %q: want 3 components, got %d", s, len(parts))
	}
	out := make([]float64, 3)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return v, fmt.Errorf("vector %q component %d: %w", s, i, err)
		}
		out[i] = f
	}
	v.X, v.Y, v.Z = out[0], out[1], out[2]
	return v, nil
}

// ParseTeam resolves a team name or numeric index.
func ParseTeam(s string) (core.Team, error) {
	if n, err := parseIntFromFloat(strings.TrimSpace(s)); err == nil {
		t := core.Team(n)
		if !t.Valid() {
			return 0, fmt.Errorf("team index %d out of range", n)
		}
		return t, nil
	}
	return core.ParseTeam(s)
}

// ParseAllocation reads a shield/weapon/engine split written as fractions
// "0.5,0.25,0.25" or as dial steps "6/3/3".
func ParseAllocation(s string) (core.Allocation, error) {
	var a core.Allocation
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		parts := strings.Split(s, "/")
		if len(parts) != 3 {
			return a, fmt.Errorf("allocation %q: want 3 steps", s)
		}
		steps := make([]float64, 3)
		for i, p := range parts {
			n, err := parseIntFromFloat(strings.TrimSpace(p))
			if err != nil {
				return a, fmt.Errorf("allocation %q step %d: %w", s, i, err)
			}
			steps[i] = float64(n) / 12
		}
		return core.Allocation{Shield: steps[0], Weapon: steps[1], Engine: steps[2]}, nil
	}
	v, err := ParseVector(s)
	if err != nil {
		return a, fmt.Errorf("allocation: %w", err)
	}
	return core.Allocation{Shield: v.X, Weapon: v.Y, Engine: v.Z}, nil
}

// ParseSpawn reads spawn arguments:
//
//	<class> <name> <team> [x,y,z] [hull%] [shields%] [faction=F] [iff=I]
//
// A team of "auto" takes the faction's configured team.
func (p *Parser) ParseSpawn(args []string) (core.SpawnData, error) {
	var spawn core.SpawnData
	if len(args) < 3 {
		return spawn, fmt.Errorf("spawn: %w: need class, name and team", ErrArgs)
	}
	spawn.ShipClass = args[0]
	spawn.Name = args[1]
	if strings.EqualFold(args[2], "auto") {
		spawn.TeamFromFaction = true
	} else {
		team, err := ParseTeam(args[2])
		if err != nil {
			return spawn, fmt.Errorf("spawn %s: %w", spawn.Name, err)
		}
		spawn.Team = team
	}

	var err error
	positional := 0
	for _, arg := range args[3:] {
		if key, value, ok := strings.Cut(arg, "="); ok {
			switch strings.ToLower(key) {
			case "faction":
				spawn.Faction = value
			case "iff":
				spawn.IFF = value
			default:
				return spawn, fmt.Errorf("spawn %s: unknown option %q", spawn.Name, key)
			}
			continue
		}
		switch positional {
		case 0:
			spawn.Position, err = ParseVector(arg)
		case 1:
			spawn.InitialHullPct, err = ParseFloat(arg)
		case 2:
			spawn.InitialShieldsPct, err = ParseFloat(arg)
		default:
			err = fmt.Errorf("unexpected argument %q", arg)
		}
		if err != nil {
			return spawn, fmt.Errorf("spawn %s: %w", spawn.Name, err)
		}
		positional++
	}

	p.logger.Debug("Parsed spawn", "name", spawn.Name, "class", spawn.ShipClass, "team", spawn.Team.String())
	return spawn, nil
}
