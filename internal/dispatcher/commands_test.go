package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCommands_SyncHandler(t *testing.T) {
	c := NewCommands(&testLogger{})

	called := false
	c.Register("spawn", func(cmd Command) (any, error) {
		called = true
		return strings.Join(cmd.Args, ","), nil
	})

	result, err := c.Dispatch(Command{Name: "SPAWN", Args: []string{"a", "b"}})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
	if result != "a,b" {
		t.Errorf("expected 'a,b', got %v", result)
	}
}

func TestCommands_UnknownCommand(t *testing.T) {
	c := NewCommands(nil)

	_, err := c.Dispatch(Command{Name: "warp"})

	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestCommands_LoggedHandlerError(t *testing.T) {
	logger := &testLogger{}
	c := NewCommands(logger)

	c.Register("damage", func(Command) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	if _, err := c.Dispatch(Command{Name: "damage", Line: 4}); err == nil {
		t.Error("expected handler error to be returned")
	}

	if !logger.hasPrefix("ERROR") {
		t.Error("expected error log message")
	}
}

func TestCommands_HasHandlerAndNames(t *testing.T) {
	c := NewCommands(nil)

	c.Register("tick", func(Command) (any, error) { return nil, nil })
	c.Register("ETS", func(Command) (any, error) { return nil, nil })

	if !c.HasHandler("Tick") {
		t.Error("expected handler to exist")
	}
	if c.HasHandler("depart") {
		t.Error("expected handler to not exist")
	}
	if got := fmt.Sprint(c.Names()); got != "[ets tick]" {
		t.Errorf("unexpected names %s", got)
	}
}
