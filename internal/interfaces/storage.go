package interfaces

import (
	"context"

	"github.com/ternarybob/argus/internal/models"
)

// JobStorage persists durable job records. Writes happen on every status
// transition and on output flushes, keyed by job ID.
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)
	DeleteJob(ctx context.Context, jobID string) error
}

// EventLogStorage persists append-only handler invocation records
type EventLogStorage interface {
	SaveEventLog(ctx context.Context, log *models.EventLog) error
	ListEventLogs(ctx context.Context, trigger string, limit int) ([]*models.EventLog, error)
}

// ScheduledActionStorage persists scheduler rows so enable state and
// last-run survive restarts
type ScheduledActionStorage interface {
	SaveScheduledAction(ctx context.Context, action *models.ScheduledAction) error
	GetScheduledAction(ctx context.Context, name string) (*models.ScheduledAction, error)
	ListScheduledActions(ctx context.Context) ([]*models.ScheduledAction, error)
}

// WatcherStateStorage persists per-key watcher checkpoints as idempotent
// upserts keyed by the external identifier (e.g. repository URL)
type WatcherStateStorage interface {
	SaveWatcherState(ctx context.Context, state *models.WatcherState) error
	GetWatcherState(ctx context.Context, key string) (*models.WatcherState, error)
}

// NotificationStorage persists the append-only notification queue
type NotificationStorage interface {
	SaveNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, limit int) ([]*models.Notification, error)
}

// StorageManager aggregates the storage surfaces and owns the connection
type StorageManager interface {
	JobStorage() JobStorage
	EventLogStorage() EventLogStorage
	ScheduledActionStorage() ScheduledActionStorage
	WatcherStateStorage() WatcherStateStorage
	NotificationStorage() NotificationStorage
	Close() error
}
