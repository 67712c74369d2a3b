package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/argus/internal/models"
)

// Job is a long-running unit of work managed by the job manager.
// Start begins the work; it may return quickly after launching background
// goroutines that report completion through JobControl. Stop signals
// internal loops to exit and releases resources.
type Job interface {
	ID() string
	Type() string
	Start(ctx context.Context) error
	Stop()
}

// JobListOptions filters job listings
type JobListOptions struct {
	Status models.JobStatus
	Type   string
	Limit  int
}

// JobControl is the narrow surface jobs and callers use to interact with the
// job manager without depending on the concrete type.
type JobControl interface {
	Submit(ctx context.Context, job Job) (string, error)
	Get(jobID string) (*models.Job, bool)
	List(opts *JobListOptions) []*models.Job
	Stop(ctx context.Context, jobID string) bool
	WaitForResult(ctx context.Context, jobID string, timeout time.Duration) (*models.JobResult, error)
	MostRecentFinished() *models.Job

	// Progress reporting used by running jobs
	MarkRunning(ctx context.Context, jobID string)
	AppendOutput(ctx context.Context, jobID string, line string)
	Complete(ctx context.Context, jobID string, result *models.JobResult)
	Fail(ctx context.Context, jobID string, errMsg string)
}
