package dispatcher

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrUnknownCommand is returned when no handler is registered for a command.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one scripted instruction, e.g. "damage Alpha 1 hull 40".
type Command struct {
	Name string
	Args []string
	// Line is the 1-based source line, zero when not read from a script.
	Line int
}

// CommandFunc processes a command and returns a result.
type CommandFunc func(Command) (any, error)

// Commands routes script commands to their handlers. Registration happens
// before use; dispatch runs on the simulation goroutine.
type Commands struct {
	handlers map[string]CommandFunc
	logger   Logger
}

// NewCommands creates an empty command table.
func NewCommands(logger Logger) *Commands {
	return &Commands{
		handlers: make(map[string]CommandFunc),
		logger:   logger,
	}
}

// Register adds a handler for the given command. Only Logged applies to
// commands; they always run synchronously.
func (c *Commands) Register(name string, h CommandFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = c.withLogging(name, handler)
	}
	c.handlers[strings.ToLower(name)] = handler
}

// Dispatch routes a command to its registered handler.
func (c *Commands) Dispatch(cmd Command) (any, error) {
	h, ok := c.handlers[strings.ToLower(cmd.Name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
	}
	return h(cmd)
}

// HasHandler returns true if a handler is registered for the command.
func (c *Commands) HasHandler(name string) bool {
	_, ok := c.handlers[strings.ToLower(name)]
	return ok
}

// Names lists the registered commands in sorted order.
func (c *Commands) Names() []string {
	out := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c *Commands) withLogging(name string, h CommandFunc) CommandFunc {
	return func(cmd Command) (any, error) {
		if c.logger == nil {
			return h(cmd)
		}
		start := time.Now()
		c.logger.Debug("handling command", "command", name, "args", len(cmd.Args), "line", cmd.Line)

		result, err := h(cmd)

		if err != nil {
			c.logger.Error("command failed", "command", name, "line", cmd.Line, "duration", time.Since(start), "error", err)
		} else {
			c.logger.Debug("command complete", "command", name, "duration", time.Since(start))
		}

		return result, err
	}
}
