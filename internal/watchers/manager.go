package watchers

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/interfaces"
)

// webhookListener is the slice of the webhook server the manager drives:
// route registration before start, then lifecycle.
type webhookListener interface {
	interfaces.WebhookRouter
	Start() error
	Stop(ctx context.Context) error
}

// Manager owns the watcher registry and lifecycle. Only watchers named in
// the active list are started; each runs as a managed job. Watchers that
// expose webhook routes register them before the listener starts.
type Manager struct {
	registered map[string]interfaces.Watcher
	active     []string
	jobs       interfaces.JobControl
	bus        interfaces.EventBus
	webhooks   webhookListener
	logger     arbor.ILogger

	runnerIDs map[string]string // watcher name -> job ID
	mu        sync.Mutex
}

// NewManager creates a watcher manager
func NewManager(active []string, jobs interfaces.JobControl, bus interfaces.EventBus, webhooks webhookListener, logger arbor.ILogger) *Manager {
	return &Manager{
		registered: make(map[string]interfaces.Watcher),
		active:     active,
		jobs:       jobs,
		bus:        bus,
		webhooks:   webhooks,
		logger:     logger,
		runnerIDs:  make(map[string]string),
	}
}

// Register adds a watcher to the registry. Registration alone does not
// start it; the watcher must also appear in the active list.
func (m *Manager) Register(w interfaces.Watcher) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.registered[w.Name()]; exists {
		return fmt.Errorf("watcher already registered: %s", w.Name())
	}
	m.registered[w.Name()] = w
	m.logger.Debug().Str("watcher", w.Name()).Msg("Watcher registered")
	return nil
}

// Start initializes and launches the active watchers, then starts the
// webhook listener. A watcher that fails Init is skipped; it does not
// prevent the others from starting.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range m.active {
		w, ok := m.registered[name]
		if !ok {
			m.logger.Warn().Str("watcher", name).Msg("Active watcher is not registered, skipping")
			continue
		}

		if err := w.Init(ctx); err != nil {
			m.logger.Error().Err(err).Str("watcher", name).Msg("Watcher init failed, skipping")
			continue
		}

		// Webhook routes must exist before the listener accepts traffic
		if registrar, ok := w.(interfaces.RouteRegistrar); ok && m.webhooks != nil {
			registrar.RegisterRoutes(m.webhooks)
		}

		runner := NewRunner(w, m.bus, m.jobs, m.logger)
		jobID, err := m.jobs.Submit(ctx, runner)
		if err != nil {
			m.logger.Error().Err(err).Str("watcher", name).Msg("Failed to submit watcher job")
			continue
		}
		m.runnerIDs[name] = jobID
		m.logger.Info().Str("watcher", name).Str("job_id", jobID).Msg("Watcher started")
	}

	if m.webhooks != nil {
		if err := m.webhooks.Start(); err != nil {
			return fmt.Errorf("failed to start webhook listener: %w", err)
		}
	}

	return nil
}

// Stop stops all running watchers, then the webhook listener
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	ids := make(map[string]string, len(m.runnerIDs))
	for name, id := range m.runnerIDs {
		ids[name] = id
	}
	m.runnerIDs = make(map[string]string)
	m.mu.Unlock()

	for name, jobID := range ids {
		if ok := m.jobs.Stop(ctx, jobID); !ok {
			m.logger.Warn().Str("watcher", name).Str("job_id", jobID).Msg("Watcher job was not running")
		}
	}

	if m.webhooks != nil {
		if err := m.webhooks.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop webhook listener: %w", err)
		}
	}

	return nil
}

// Names returns the registered watcher names
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.registered))
	for name := range m.registered {
		names = append(names, name)
	}
	return names
}
