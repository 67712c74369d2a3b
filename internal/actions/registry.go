package actions

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/models"
)

// Handler executes an action with validated arguments. The returned value is
// either a terminal value (string or structured data) or a job-launch
// sentinel string carrying the new job's ID.
type Handler func(ctx context.Context, args Args) (interface{}, error)

var (
	// ErrAlreadyRegistered is returned when an action name is taken
	ErrAlreadyRegistered = fmt.Errorf("action already registered")
	// ErrInvalidSpec is returned when a spec's name does not match the
	// registration name
	ErrInvalidSpec = fmt.Errorf("invalid action spec")
	// ErrNotFound is returned when no action is registered under a name
	ErrNotFound = fmt.Errorf("action not found")
)

type entry struct {
	spec    *models.ActionSpec
	handler Handler
}

// Registry owns the authoritative mapping from action name to handler and
// spec. Writes happen only during startup and extension loading; after that
// the registry is read-mostly.
type Registry struct {
	entries map[string]*entry
	logger  arbor.ILogger
	mu      sync.RWMutex
}

// NewRegistry creates an empty action registry
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// Register adds an action. The spec may be nil for passthrough actions that
// accept any arguments; a non-nil spec must carry the same name.
func (r *Registry) Register(name string, spec *models.ActionSpec, handler Handler) error {
	if name == "" {
		return fmt.Errorf("action name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if spec != nil && spec.Name != name {
		return fmt.Errorf("%w: spec name %q does not match %q", ErrInvalidSpec, spec.Name, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.entries[name] = &entry{spec: spec, handler: handler}

	if r.logger != nil {
		r.logger.Debug().Str("action", name).Msg("Action registered")
	}
	return nil
}

// Has reports whether an action is registered under name
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Get returns the handler and spec for an action
func (r *Registry) Get(name string) (Handler, *models.ActionSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, nil, false
	}
	return e.handler, e.spec, true
}

// List returns the specs of all registered actions keyed by name. Actions
// registered without a spec appear with a minimal synthesized spec.
func (r *Registry) List() map[string]*models.ActionSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*models.ActionSpec, len(r.entries))
	for name, e := range r.entries {
		if e.spec != nil {
			out[name] = e.spec
		} else {
			out[name] = &models.ActionSpec{Name: name}
		}
	}
	return out
}

// Names returns all registered action names sorted alphabetically
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commands derives planner projections for the named actions, or for all
// actions when filter is nil.
func (r *Registry) Commands(filter []string) map[string]models.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var wanted map[string]bool
	if filter != nil {
		wanted = make(map[string]bool, len(filter))
		for _, name := range filter {
			wanted[name] = true
		}
	}

	out := make(map[string]models.Command)
	for name, e := range r.entries {
		if wanted != nil && !wanted[name] {
			continue
		}
		if e.spec != nil {
			out[name] = e.spec.ToCommand()
		} else {
			out[name] = models.Command{Name: name}
		}
	}
	return out
}

// Execute parses a full command string, validates the arguments against the
// action's spec and runs the handler. Handler panics are normalized into
// failure results so a misbehaving action cannot take down the caller.
func (r *Registry) Execute(ctx context.Context, command string) (result interface{}, err error) {
	name, tail := SplitCommand(command)
	if name == "" {
		return nil, fmt.Errorf("empty command")
	}

	handler, spec, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	args := ParseArgs(tail)
	if err := ValidateArgs(spec, args); err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			if r.logger != nil {
				r.logger.Error().Str("action", name).Msgf("Action handler panicked: %v", rec)
			}
			result = nil
			err = fmt.Errorf("action %s panicked: %v", name, rec)
		}
	}()

	return handler(ctx, args)
}
