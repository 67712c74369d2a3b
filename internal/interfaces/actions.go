package interfaces

import (
	"context"

	"github.com/ternarybob/argus/internal/models"
)

// Dispatcher executes registered actions by name. Command strings are
// "<name> <argument tail>" as typed into the chat interface; the tail is
// parsed with shell-style quoting and validated against the action's spec.
type Dispatcher interface {
	// Has reports whether an action is registered under name
	Has(name string) bool

	// Execute parses and runs a full command string and returns the
	// handler's raw result.
	Execute(ctx context.Context, command string) (interface{}, error)

	// Commands returns planner projections for the named actions,
	// or all actions when filter is nil.
	Commands(filter []string) map[string]models.Command
}
