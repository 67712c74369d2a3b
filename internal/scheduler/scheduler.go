package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/actions"
	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
)

const retryDelay = 60 * time.Second

// Scheduler runs named commands on fixed-minute intervals. Rows persist so
// enable state and last-run survive restarts; config supplies the command
// and interval, the store supplies the runtime state.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher interfaces.Dispatcher
	storage    interfaces.ScheduledActionStorage
	logger     arbor.ILogger

	schedules    map[string]*models.ScheduledAction
	entries      map[string]cron.EntryID
	retryPending map[string]bool
	running      bool
	mu           sync.Mutex
}

// New creates a scheduler
func New(dispatcher interfaces.Dispatcher, storage interfaces.ScheduledActionStorage, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		cron:         cron.New(),
		dispatcher:   dispatcher,
		storage:      storage,
		logger:       logger,
		schedules:    make(map[string]*models.ScheduledAction),
		entries:      make(map[string]cron.EntryID),
		retryPending: make(map[string]bool),
	}
}

// LoadConfig registers every configured schedule. Command and interval come
// from config; enabled state and last-run come from the store when a
// persisted row exists.
func (s *Scheduler) LoadConfig(ctx context.Context, schedules []common.ScheduleConfig) error {
	for _, sc := range schedules {
		action := &models.ScheduledAction{
			Name:            sc.Name,
			Command:         sc.Command,
			IntervalMinutes: sc.IntervalMinutes,
			Enabled:         sc.Enabled,
		}

		if persisted, err := s.storage.GetScheduledAction(ctx, sc.Name); err == nil && persisted != nil {
			action.Enabled = persisted.Enabled
			action.LastRun = persisted.LastRun
		}

		if err := s.Schedule(ctx, action); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", sc.Name, err)
		}
	}
	return nil
}

// Schedule registers one scheduled action. The command's action must exist
// in the registry; unknown actions are rejected up front.
func (s *Scheduler) Schedule(ctx context.Context, action *models.ScheduledAction) error {
	if action.Name == "" {
		return fmt.Errorf("schedule name is required")
	}
	if action.IntervalMinutes <= 0 {
		return fmt.Errorf("schedule %s: interval must be positive, got %d", action.Name, action.IntervalMinutes)
	}

	name, _ := actions.SplitCommand(action.Command)
	if !s.dispatcher.Has(name) {
		return fmt.Errorf("schedule %s references unknown action: %s", action.Name, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.schedules[action.Name] = action

	if err := s.storage.SaveScheduledAction(ctx, action); err != nil {
		return fmt.Errorf("failed to persist schedule %s: %w", action.Name, err)
	}

	if action.Enabled && s.running {
		if err := s.addEntry(action); err != nil {
			return err
		}
	}

	s.logger.Info().
		Str("schedule", action.Name).
		Str("command", action.Command).
		Int("interval_minutes", action.IntervalMinutes).
		Bool("enabled", action.Enabled).
		Msg("Schedule registered")

	return nil
}

// Start begins ticking enabled schedules. Each runs every IntervalMinutes.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.running = true

	for _, action := range s.schedules {
		if action.Enabled {
			if err := s.addEntry(action); err != nil {
				return err
			}
		}
	}

	s.cron.Start()
	s.logger.Info().Int("schedules", len(s.entries)).Msg("Scheduler started")
	return nil
}

// Stop halts all ticking. Running executions finish on their own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false

	s.cron.Stop()
	for name, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
	s.logger.Info().Msg("Scheduler stopped")
}

// Enable turns a schedule on. Enabling an already-enabled schedule is a
// no-op that still reports success.
func (s *Scheduler) Enable(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, ok := s.schedules[name]
	if !ok {
		return fmt.Errorf("schedule not found: %s", name)
	}
	if action.Enabled {
		return nil
	}

	action.Enabled = true
	if err := s.storage.SaveScheduledAction(ctx, action); err != nil {
		action.Enabled = false
		return fmt.Errorf("failed to persist schedule %s: %w", name, err)
	}

	if s.running {
		if err := s.addEntry(action); err != nil {
			return err
		}
	}

	s.logger.Info().Str("schedule", name).Msg("Schedule enabled")
	return nil
}

// Disable turns a schedule off. Disabling an already-disabled schedule is
// a no-op that still reports success.
func (s *Scheduler) Disable(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, ok := s.schedules[name]
	if !ok {
		return fmt.Errorf("schedule not found: %s", name)
	}
	if !action.Enabled {
		return nil
	}

	action.Enabled = false
	if err := s.storage.SaveScheduledAction(ctx, action); err != nil {
		action.Enabled = true
		return fmt.Errorf("failed to persist schedule %s: %w", name, err)
	}

	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}

	s.logger.Info().Str("schedule", name).Msg("Schedule disabled")
	return nil
}

// Status describes the scheduler's runtime state
type Status struct {
	Running  bool `json:"running"`
	Total    int  `json:"total"`
	Enabled  int  `json:"enabled"`
	Retrying int  `json:"retrying"`
}

// Status reports whether the scheduler is ticking and how many schedules
// it holds
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running:  s.running,
		Total:    len(s.schedules),
		Retrying: len(s.retryPending),
	}
	for _, action := range s.schedules {
		if action.Enabled {
			status.Enabled++
		}
	}
	return status
}

// List returns all registered schedules sorted by name
func (s *Scheduler) List() []*models.ScheduledAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*models.ScheduledAction, 0, len(s.schedules))
	for _, action := range s.schedules {
		result = append(result, action)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// addEntry adds the cron entry for an enabled schedule. Caller holds the lock.
func (s *Scheduler) addEntry(action *models.ScheduledAction) error {
	if _, exists := s.entries[action.Name]; exists {
		return nil
	}

	name := action.Name
	spec := fmt.Sprintf("@every %dm", action.IntervalMinutes)
	id, err := s.cron.AddFunc(spec, func() {
		s.run(name)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron entry for %s: %w", name, err)
	}
	s.entries[name] = id
	return nil
}

// run executes one schedule tick. Failures get one retry after a fixed
// delay; a failing retry waits for the next regular tick.
func (s *Scheduler) run(name string) {
	s.mu.Lock()
	action, ok := s.schedules[name]
	if !ok || !action.Enabled {
		s.mu.Unlock()
		return
	}
	command := action.Command
	s.mu.Unlock()

	s.logger.Info().Str("schedule", name).Str("command", command).Msg("Schedule tick")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.dispatcher.Execute(ctx, command); err != nil {
		s.logger.Warn().Err(err).Str("schedule", name).Msg("Scheduled command failed")
		s.scheduleRetry(name)
		return
	}

	now := time.Now()
	s.mu.Lock()
	if current, ok := s.schedules[name]; ok {
		current.LastRun = &now
		if err := s.storage.SaveScheduledAction(context.Background(), current); err != nil {
			s.logger.Warn().Err(err).Str("schedule", name).Msg("Failed to persist last run")
		}
	}
	s.mu.Unlock()
}

// scheduleRetry arms a single delayed re-run. At most one retry is pending
// per schedule.
func (s *Scheduler) scheduleRetry(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retryPending[name] || !s.running {
		return
	}
	s.retryPending[name] = true

	time.AfterFunc(retryDelay, func() {
		s.mu.Lock()
		delete(s.retryPending, name)
		retry := s.running
		action, ok := s.schedules[name]
		if ok {
			retry = retry && action.Enabled
		} else {
			retry = false
		}
		s.mu.Unlock()

		if !retry {
			return
		}

		s.logger.Info().Str("schedule", name).Msg("Retrying failed schedule")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.dispatcher.Execute(ctx, action.Command); err != nil {
			s.logger.Warn().Err(err).Str("schedule", name).Msg("Schedule retry failed, waiting for next tick")
			return
		}

		now := time.Now()
		s.mu.Lock()
		if current, ok := s.schedules[name]; ok {
			current.LastRun = &now
			if err := s.storage.SaveScheduledAction(context.Background(), current); err != nil {
				s.logger.Warn().Err(err).Str("schedule", name).Msg("Failed to persist last run")
			}
		}
		s.mu.Unlock()
	})
}
