package service

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// TextDispatcher resolves a state name to zero-or-one bill text fetch
// operation, invoked with the bill's internal id. An unregistered state is
// a normal, non-fatal case reported through the handled flag.
type TextDispatcher interface {
	Dispatch(ctx context.Context, stateName string, billID int) (handled bool, err error)
}

// CommandDispatcher maps state names to external commands that fetch bill
// text. The mapping comes from configuration.
type CommandDispatcher struct {
	commands map[string]string
}

// NewCommandDispatcher creates a dispatcher over a state-to-command mapping.
// State names are matched case-insensitively; configuration keys arrive
// lowercased.
func NewCommandDispatcher(commands map[string]string) *CommandDispatcher {
	normalized := make(map[string]string, len(commands))
	for state, command := range commands {
		normalized[strings.ToLower(state)] = command
	}
	return &CommandDispatcher{commands: normalized}
}

// Dispatch runs the command registered for the state, passing the bill id
// as the single argument
func (d *CommandDispatcher) Dispatch(ctx context.Context, stateName string, billID int) (bool, error) {
	name, ok := d.commands[strings.ToLower(stateName)]
	if !ok {
		return false, nil
	}

	cmd := exec.CommandContext(ctx, name, strconv.Itoa(billID))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return true, fmt.Errorf("bill text command %s failed: %w", name, err)
	}

	return true, nil
}
