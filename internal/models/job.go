package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal returns true for completed, failed and cancelled
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// JobResult holds the outcome of a job. Outputs is append-only while the
// job is running and is persisted exactly as produced.
type JobResult struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Outputs []string               `json:"outputs"`
}

// Output joins the accumulated output lines into a single string
func (r *JobResult) Output() string {
	if r == nil {
		return ""
	}
	out := ""
	for i, line := range r.Outputs {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}

// Job is the durable record of a long-running unit of work.
// Status transitions are monotonic: pending -> running -> terminal.
type Job struct {
	ID          string     `json:"id" badgerhold:"key"`
	Type        string     `json:"type"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Result      *JobResult `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewJob creates a pending job record of the given type
func NewJob(jobType string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Result:    &JobResult{Outputs: []string{}},
	}
}

// Clone returns a deep copy of the record. Callers that hand records out
// of a lock-guarded registry clone first so readers never observe
// concurrent transitions.
func (j *Job) Clone() *Job {
	copied := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		copied.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		copied.CompletedAt = &t
	}
	if j.Result != nil {
		result := *j.Result
		result.Outputs = append([]string(nil), j.Result.Outputs...)
		if j.Result.Data != nil {
			result.Data = make(map[string]interface{}, len(j.Result.Data))
			for k, v := range j.Result.Data {
				result.Data[k] = v
			}
		}
		copied.Result = &result
	}
	return &copied
}

// MarkRunning transitions the job to running
func (j *Job) MarkRunning() {
	j.Status = JobStatusRunning
	now := time.Now()
	j.StartedAt = &now
	j.UpdatedAt = now
}

// MarkCompleted transitions the job to completed with the given result
func (j *Job) MarkCompleted(result *JobResult) {
	j.Status = JobStatusCompleted
	if result != nil {
		// Preserve outputs already appended during the run
		if len(result.Outputs) == 0 && j.Result != nil {
			result.Outputs = j.Result.Outputs
		}
		j.Result = result
	} else if j.Result != nil {
		j.Result.Success = true
	}
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkFailed transitions the job to failed with an error message
func (j *Job) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.Error = errMsg
	if j.Result != nil {
		j.Result.Success = false
	}
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkCancelled transitions the job to cancelled
func (j *Job) MarkCancelled() {
	j.Status = JobStatusCancelled
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// IsTerminal returns true if the job reached a terminal status
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// Duration returns the wall time between creation and completion,
// or elapsed time so far for a non-terminal job.
func (j *Job) Duration() time.Duration {
	start := j.CreatedAt
	if j.StartedAt != nil {
		start = *j.StartedAt
	}
	if j.CompletedAt != nil {
		return j.CompletedAt.Sub(start)
	}
	return time.Since(start)
}
