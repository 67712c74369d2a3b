package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
)

// Reporter is the slice of the manager a running task uses to report
// progress and completion.
type Reporter interface {
	MarkRunning(ctx context.Context, jobID string)
	AppendOutput(ctx context.Context, jobID string, line string)
	Complete(ctx context.Context, jobID string, result *models.JobResult)
	Fail(ctx context.Context, jobID string, errMsg string)
}

// TaskFunc does the actual work of a task job. It may append output lines
// through the emit callback; the returned result becomes the job's terminal
// result. A returned error fails the job.
type TaskFunc func(ctx context.Context, emit func(line string)) (*models.JobResult, error)

// Task is a function-backed job: Start launches the function in a goroutine
// and reports the outcome through the manager. Used by actions that need to
// run real work without defining a dedicated job type.
type Task struct {
	id       string
	jobType  string
	fn       TaskFunc
	reporter Reporter
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewTask creates a task job of the given type
func NewTask(jobType string, reporter Reporter, fn TaskFunc) *Task {
	return &Task{
		id:       uuid.New().String(),
		jobType:  jobType,
		fn:       fn,
		reporter: reporter,
	}
}

// ID returns the job ID
func (t *Task) ID() string { return t.id }

// Type returns the job type
func (t *Task) Type() string { return t.jobType }

// Start launches the task function in the background
func (t *Task) Start(ctx context.Context) error {
	if t.fn == nil {
		return fmt.Errorf("task function is required")
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.reporter.MarkRunning(runCtx, t.id)

	go func() {
		defer cancel()

		emit := func(line string) {
			t.reporter.AppendOutput(runCtx, t.id, line)
		}

		result, err := t.fn(runCtx, emit)
		if err != nil {
			// A cancelled task has already been transitioned by the manager
			if runCtx.Err() == nil {
				t.reporter.Fail(context.WithoutCancel(runCtx), t.id, err.Error())
			}
			return
		}
		t.reporter.Complete(context.WithoutCancel(runCtx), t.id, result)
	}()

	return nil
}

// Stop signals the task function to exit
func (t *Task) Stop() {
	t.stopOnce.Do(func() {
		if t.cancel != nil {
			t.cancel()
		}
	})
}

var _ interfaces.Job = (*Task)(nil)
