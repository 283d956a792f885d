package mission

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shipcore/shipcore/internal/dispatcher"
	"github.com/shipcore/shipcore/internal/parser"
	"github.com/shipcore/shipcore/internal/ship"
	"github.com/shipcore/shipcore/internal/shipstate"
	"github.com/shipcore/shipcore/internal/team"
	"github.com/shipcore/shipcore/pkg/core"
)

// Resolve finds a vessel by name, or by ID written as "#id".
func (c *Context) Resolve(ref string) (*ship.Ship, error) {
	if strings.HasPrefix(ref, "#") {
		id, err := parser.ParseShipID(ref)
		if err != nil {
			return nil, err
		}
		if s, ok := c.Ship(id); ok {
			return s, nil
		}
	} else if s, ok := c.ByName(ref); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownShip, ref)
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func need(cmd dispatcher.Command, n int) error {
	if len(cmd.Args) < n {
		return fmt.Errorf("%s: %w: want %d, got %d", cmd.Name, parser.ErrArgs, n, len(cmd.Args))
	}
	return nil
}

// RegisterCommands installs the mission's script commands.
func (c *Context) RegisterCommands(cmds *dispatcher.Commands, p *parser.Parser) {
	handlers := map[string]dispatcher.CommandFunc{
		"spawn": func(cmd dispatcher.Command) (any, error) {
			spawn, err := p.ParseSpawn(cmd.Args)
			if err != nil {
				return nil, err
			}
			s, err := c.Spawn(spawn)
			if err != nil {
				return nil, err
			}
			return s.ID(), nil
		},
		"arrive":      c.cmdArrive,
		"depart":      c.cmdDepart,
		"destroy":     c.cmdDestroy,
		"damage":      c.cmdDamage,
		"ets":         c.cmdETS,
		"transfer":    c.cmdTransfer,
		"afterburner": c.cmdAfterburner,
		"performance": c.cmdPerformance,
		"flag":        c.cmdFlag,
		"team":        c.cmdTeam,
		"observe":     c.cmdObserve,
		"ignore":      c.cmdIgnore,
		"relation":    c.cmdRelation,
		"targets":     c.cmdTargets,
		"tick":        c.cmdTick,
	}
	for name, h := range handlers {
		cmds.Register(name, h, dispatcher.Logged())
	}
}

// arrive <ship> [x,y,z] [cue]
func (c *Context) cmdArrive(cmd dispatcher.Command) (any, error) {
	if err := need(cmd, 1); err != nil {
		return nil, err
	}
	s, err := c.Resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	pos, cue := s.Position(), ""
	if len(cmd.Args) > 1 {
		if pos, err = parser.ParseVector(cmd.Args[1]); err != nil {
			return nil, err
		}
	}
	if len(cmd.Args) > 2 {
		cue = cmd.Args[2]
	}
	return s.Lifecycle().BeginArrival(pos, cue), nil
}

// depart <ship> warp|dock [x,y,z] [cue]
func (c *Context) cmdDepart(cmd dispatcher.Command) (any, error) {
	if err := need(cmd, 2); err != nil {
		return nil, err
	}
	s, err := c.Resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	var viaWarp bool
	switch strings.ToLower(cmd.Args[1]) {
	case "warp":
		viaWarp = true
	case "dock":
	default:
		return nil, fmt.Errorf("depart: unknown mode %q", cmd.Args[1])
	}
	pos, cue := s.Position(), ""
	if len(cmd.Args) > 2 {
		if pos, err = parser.ParseVector(cmd.Args[2]); err != nil {
			return nil, err
		}
	}
	if len(cmd.Args) > 3 {
		cue = cmd.Args[3]
	}
	return s.Lifecycle().BeginDeparture(pos, cue, viaWarp), nil
}

// destroy <ship> [cause]
func (c *Context) cmdDestroy(cmd dispatcher.Command) (any, error) {
	if err := need(cmd, 1); err != nil {
		return nil, err
	}
	s, err := c.Resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	cause := "scripted"
	if len(cmd.Args) > 1 {
		cause = cmd.Args[1]
	}
	return s.Lifecycle().TriggerDestruction(cause), nil
}

// damage <ship> [hull|shield] <amount>
func (c *Context) cmdDamage(cmd dispatcher.Command) (any, error) {
	if err := need(cmd, 2); err != nil {
		return nil, err
	}
	s, err := c.Resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	target, raw := "", cmd.Args[1]
	if len(cmd.Args) > 2 {
		target, raw = strings.ToLower(cmd.Args[1]), cmd.Args[2]
	}
	amount, err := parser.ParseFloat(raw)
	if err != nil {
		return nil, err
	}
	switch target {
	case "hull":
		return s.ApplyHullDamage(amount), nil
	case "shield", "shields":
		return s.ApplyShieldDamage(amount), nil
	case "":
		shield, hull, err := c.Damage(s.ID(), amount)
		return shield + hull, err
	}
	return nil, fmt.Errorf("damage: unknown target %q", target)
}

// ets <ship> <allocation>|balance
func (c *Context) cmdETS(cmd dispatcher.Command) (any, error) {
	if err := need(cmd, 2); err != nil {
		return nil, err
	}
	s, err := c.Resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(cmd.Args[1], "balance") {
		s.Balance()
		return true, nil
	}
	a, err := parser.ParseAllocation(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	return s.SetAllocation(a.Shield, a.Weapon, a.Engine), nil
}

// transfer <ship> shields|weapons|engines
func (c *Context) cmdTransfer(cmd dispatcher.Command) (any, error) {
	if err := need(cmd, 2); err != nil {
		return nil, err
	}
	s, err := c.Resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(cmd.Args[1]) {
	case "shield", "shields":
		return s.TransferToShields(), nil
	case "weapon", "weapons":
		return s.TransferToWeapons(), nil
	case "engine", "engines":
		return s.TransferToEngines(), nil
	}
	return nil, fmt.Errorf("transfer: unknown subsystem %q", cmd.Args[1])
}

// afterburner <ship> on|off
func (c *Context) cmdAfterburner(cmd dispatcher.Command) (any, error) {
	if err := need(cmd, 2); err != nil {
		return nil, err
	}
	s, err := c.Resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	on, err := parseSwitch(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	if !on {
		s.DeactivateAfterburner()
		return true, nil
	}
	return s.ActivateAfterburner(), nil
}

// performance <ship> <engine> <weapon> <shield>
func (c *Context) cmdPerformance(cmd dispatcher.Command) (any, error) {
	if err := need(cmd, 4); err != nil {
		return nil, err
	}
	s, err := c.Resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	var v [3]float64
	for i := range v {
		if v[i], err = parser.ParseFloat(cmd.Args[i+1]); err != nil {
			return nil, err
		}
	}
	s.SetPerformance(v[0], v[1], v[2])
	return true, nil
}

// flag <ship> <flag> on|off
func (c *Context) cmdFlag(cmd dispatcher.Command) (any, error) {
	if err := need(cmd, 3); err != nil {
		return nil, err
	}
	s, err := c.Resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	f, err := shipstate.ParseFlag(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	on, err := parseSwitch(cmd.Args[2])
	if err != nil {
		return nil, err
	}
	return s.State().SetFlag(f, on), nil
}

// team <ship> <team> [reason]
func (c *Context) cmdTeam(cmd dispatcher.Command) (any, error) {
	if err := need(cmd, 2); err != nil {
		return nil, err
	}
	s, err := c.Resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	t, err := parser.ParseTeam(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	reason := "script"
	if len(cmd.Args) > 2 {
		reason = strings.Join(cmd.Args[2:], " ")
	}
	return true, c.SetTeam(s.ID(), t, reason)
}

// observe <ship> <team>|clear
func (c *Context) cmdObserve(cmd dispatcher.Command) (any, error) {
	if err := need(cmd, 2); err != nil {
		return nil, err
	}
	s, err := c.Resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(cmd.Args[1], "clear") {
		return true, c.teams.ClearObservedTeam(s.ID())
	}
	t, err := parser.ParseTeam(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	return true, c.teams.SetObservedTeam(s.ID(), t)
}

// ignore <attacker> <target> [off]
func (c *Context) cmdIgnore(cmd dispatcher.Command) (any, error) {
	if err := need(cmd, 2); err != nil {
		return nil, err
	}
	a, err := c.Resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	t, err := c.Resolve(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	if len(cmd.Args) > 2 {
		on, err := parseSwitch(cmd.Args[2])
		if err != nil {
			return nil, err
		}
		if !on {
			return true, c.teams.Unignore(a.ID(), t.ID())
		}
	}
	return true, c.teams.Ignore(a.ID(), t.ID())
}

// relation <factionA> <factionB> <friendly|hostile|neutral> [permanent]
func (c *Context) cmdRelation(cmd dispatcher.Command) (any, error) {
	if err := need(cmd, 3); err != nil {
		return nil, err
	}
	rel, err := team.ParseRelation(cmd.Args[2])
	if err != nil {
		return nil, err
	}
	permanent := len(cmd.Args) > 3 && strings.EqualFold(cmd.Args[3], "permanent")
	return true, c.teams.SetFactionRelationship(cmd.Args[0], cmd.Args[1], rel, permanent)
}

// targets <ship> [team...]
func (c *Context) cmdTargets(cmd dispatcher.Command) (any, error) {
	if err := need(cmd, 1); err != nil {
		return nil, err
	}
	s, err := c.Resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	var teams []core.Team
	for _, arg := range cmd.Args[1:] {
		t, err := parser.ParseTeam(arg)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	ids := c.teams.ValidTargets(s.ID(), teams...)
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if e, ok := c.teams.Entry(id); ok {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

// tick [count] [dt]
func (c *Context) cmdTick(cmd dispatcher.Command) (any, error) {
	count, dt := 1, c.tickLen
	if len(cmd.Args) > 0 {
		n, err := strconv.Atoi(cmd.Args[0])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("tick: invalid count %q", cmd.Args[0])
		}
		count = n
	}
	if len(cmd.Args) > 1 {
		d, err := parser.ParseDuration(cmd.Args[1])
		if err != nil {
			return nil, err
		}
		dt = d
	}
	for i := 0; i < count; i++ {
		c.Tick(dt)
	}
	return c.SimTime(), nil
}
