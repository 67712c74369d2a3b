package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
)

// ErrWaitTimeout is returned by WaitForResult when the job does not reach a
// terminal state within the timeout.
var ErrWaitTimeout = fmt.Errorf("timed out waiting for job result")

// managedJob pairs the runtime job with its durable record
type managedJob struct {
	job      interfaces.Job
	record   *models.Job
	done     chan struct{}
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// Manager is the single source of truth for long-running work. One instance
// per process, constructed at startup and passed by reference.
type Manager struct {
	jobs     map[string]*managedJob
	storage  interfaces.JobStorage
	notifier interfaces.Notifier
	logger   arbor.ILogger
	mu       sync.Mutex
}

// NewManager creates a job manager backed by the given storage and notifier
func NewManager(storage interfaces.JobStorage, notifier interfaces.Notifier, logger arbor.ILogger) *Manager {
	return &Manager{
		jobs:     make(map[string]*managedJob),
		storage:  storage,
		notifier: notifier,
		logger:   logger,
	}
}

// Submit registers the job, persists its pending record and starts it. The
// call returns after Start; jobs are free to return quickly from Start and
// finish in background goroutines. A job whose Start fails is removed from
// the registry before the error surfaces.
func (m *Manager) Submit(ctx context.Context, job interfaces.Job) (string, error) {
	if job == nil {
		return "", fmt.Errorf("job cannot be nil")
	}
	jobID := job.ID()
	if jobID == "" {
		return "", fmt.Errorf("job ID is required")
	}

	record := models.NewJob(job.Type())
	record.ID = jobID

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	managed := &managedJob{
		job:    job,
		record: record,
		done:   make(chan struct{}),
		cancel: cancel,
	}

	m.mu.Lock()
	if _, exists := m.jobs[jobID]; exists {
		m.mu.Unlock()
		cancel()
		return "", fmt.Errorf("job already submitted: %s", jobID)
	}
	m.jobs[jobID] = managed
	m.mu.Unlock()

	if err := m.storage.SaveJob(ctx, record); err != nil {
		m.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to persist pending job")
	}

	if err := job.Start(jobCtx); err != nil {
		m.mu.Lock()
		delete(m.jobs, jobID)
		m.mu.Unlock()
		cancel()

		record.MarkFailed(err.Error())
		if saveErr := m.storage.SaveJob(ctx, record); saveErr != nil {
			m.logger.Warn().Err(saveErr).Str("job_id", jobID).Msg("Failed to persist failed job")
		}
		return "", fmt.Errorf("failed to start job %s: %w", jobID, err)
	}

	m.logger.Info().
		Str("job_id", jobID).
		Str("type", job.Type()).
		Msg("Job submitted")

	return jobID, nil
}

// Get returns a snapshot of the in-memory job record
func (m *Manager) Get(jobID string) (*models.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	managed, ok := m.jobs[jobID]
	if !ok {
		return nil, false
	}
	return managed.record.Clone(), true
}

// List returns job record snapshots matching the filter. Records are cloned
// under the lock and filtered outside it so listing does not block
// submissions.
func (m *Manager) List(opts *interfaces.JobListOptions) []*models.Job {
	m.mu.Lock()
	records := make([]*models.Job, 0, len(m.jobs))
	for _, managed := range m.jobs {
		records = append(records, managed.record.Clone())
	}
	m.mu.Unlock()

	if opts == nil {
		return records
	}

	filtered := make([]*models.Job, 0, len(records))
	for _, r := range records {
		if opts.Status != "" && r.Status != opts.Status {
			continue
		}
		if opts.Type != "" && r.Type != opts.Type {
			continue
		}
		filtered = append(filtered, r)
		if opts.Limit > 0 && len(filtered) >= opts.Limit {
			break
		}
	}
	return filtered
}

// Stop cancels a job: invokes its stop handler exactly once, marks the
// record cancelled and persists it. Returns false for unknown jobs;
// stopping an already-terminal job is a no-op returning true.
func (m *Manager) Stop(ctx context.Context, jobID string) bool {
	m.mu.Lock()
	managed, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if managed.record.IsTerminal() {
		m.mu.Unlock()
		return true
	}
	m.mu.Unlock()

	managed.stopOnce.Do(func() {
		managed.job.Stop()
	})

	m.transition(ctx, managed, func(r *models.Job) { r.MarkCancelled() })
	return true
}

// MarkRunning transitions a pending job to running
func (m *Manager) MarkRunning(ctx context.Context, jobID string) {
	m.mu.Lock()
	managed, ok := m.jobs[jobID]
	if !ok || managed.record.IsTerminal() {
		m.mu.Unlock()
		return
	}
	managed.record.MarkRunning()
	snapshot := managed.record.Clone()
	m.mu.Unlock()

	if err := m.storage.SaveJob(ctx, snapshot); err != nil {
		m.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to persist running job")
	}
}

// AppendOutput appends one line to the job's output stream and flushes the
// record. Outputs are append-only while the job runs and are never
// truncated in storage.
func (m *Manager) AppendOutput(ctx context.Context, jobID string, line string) {
	m.mu.Lock()
	managed, ok := m.jobs[jobID]
	if !ok || managed.record.IsTerminal() {
		m.mu.Unlock()
		return
	}
	if managed.record.Result == nil {
		managed.record.Result = &models.JobResult{Outputs: []string{}}
	}
	managed.record.Result.Outputs = append(managed.record.Result.Outputs, line)
	managed.record.UpdatedAt = time.Now()
	snapshot := managed.record.Clone()
	m.mu.Unlock()

	if err := m.storage.SaveJob(ctx, snapshot); err != nil {
		m.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to flush job output")
	}
}

// Complete transitions a job to completed with the given result
func (m *Manager) Complete(ctx context.Context, jobID string, result *models.JobResult) {
	m.mu.Lock()
	managed, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return
	}
	m.transition(ctx, managed, func(r *models.Job) { r.MarkCompleted(result) })
}

// Fail transitions a job to failed with an error message
func (m *Manager) Fail(ctx context.Context, jobID string, errMsg string) {
	m.mu.Lock()
	managed, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return
	}
	m.transition(ctx, managed, func(r *models.Job) { r.MarkFailed(errMsg) })
}

// transition applies a terminal transition idempotently: the first one wins,
// persists the record, closes the done channel and produces exactly one
// notification.
func (m *Manager) transition(ctx context.Context, managed *managedJob, apply func(*models.Job)) {
	m.mu.Lock()
	if managed.record.IsTerminal() {
		m.mu.Unlock()
		return
	}
	apply(managed.record)
	snapshot := managed.record.Clone()
	m.mu.Unlock()

	if err := m.storage.SaveJob(ctx, snapshot); err != nil {
		m.logger.Warn().Err(err).Str("job_id", snapshot.ID).Msg("Failed to persist terminal job")
	}

	close(managed.done)
	managed.cancel()

	m.logger.Info().
		Str("job_id", snapshot.ID).
		Str("type", snapshot.Type).
		Str("status", string(snapshot.Status)).
		Msg("Job finished")

	m.notifyTerminal(ctx, snapshot)
}

// notifyTerminal sends the single human-readable completion notification
func (m *Manager) notifyTerminal(ctx context.Context, record *models.Job) {
	if m.notifier == nil {
		return
	}

	var text string
	switch record.Status {
	case models.JobStatusCompleted:
		text = fmt.Sprintf("Job %s (%s) completed in %s", record.ID, record.Type, record.Duration().Round(time.Millisecond))
	case models.JobStatusFailed:
		text = fmt.Sprintf("Job %s (%s) failed after %s: %s", record.ID, record.Type, record.Duration().Round(time.Millisecond), record.Error)
	case models.JobStatusCancelled:
		text = fmt.Sprintf("Job %s (%s) cancelled after %s", record.ID, record.Type, record.Duration().Round(time.Millisecond))
	default:
		return
	}

	if err := m.notifier.SendMessage(ctx, text); err != nil {
		m.logger.Warn().Err(err).Str("job_id", record.ID).Msg("Failed to send job notification")
	}
}

// WaitForResult blocks until the job reaches a terminal state or the
// timeout elapses. On timeout it returns ErrWaitTimeout.
func (m *Manager) WaitForResult(ctx context.Context, jobID string, timeout time.Duration) (*models.JobResult, error) {
	m.mu.Lock()
	managed, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-managed.done:
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s after %s", ErrWaitTimeout, jobID, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	m.mu.Lock()
	record := managed.record.Clone()
	m.mu.Unlock()
	if record.Status == models.JobStatusFailed {
		return record.Result, fmt.Errorf("job %s failed: %s", jobID, record.Error)
	}
	return record.Result, nil
}

// MostRecentFinished returns the terminal job with the latest completion
// time, or nil when none has finished yet.
func (m *Manager) MostRecentFinished() *models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *models.Job
	for _, managed := range m.jobs {
		r := managed.record
		if !r.IsTerminal() || r.CompletedAt == nil {
			continue
		}
		if latest == nil || r.CompletedAt.After(*latest.CompletedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil
	}
	return latest.Clone()
}
