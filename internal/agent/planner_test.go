package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/actions"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
)

// scriptedLLM replays canned responses in order
type scriptedLLM struct {
	responses []string
	mu        sync.Mutex
	calls     int
	received  [][]interfaces.Message
}

func (l *scriptedLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.received = append(l.received, append([]interfaces.Message(nil), messages...))
	if l.calls >= len(l.responses) {
		return "", fmt.Errorf("no scripted response for call %d", l.calls+1)
	}
	response := l.responses[l.calls]
	l.calls++
	return response, nil
}

type plannerDispatcher struct {
	execute  func(ctx context.Context, command string) (interface{}, error)
	mu       sync.Mutex
	commands []string
}

func (d *plannerDispatcher) Has(name string) bool { return true }

func (d *plannerDispatcher) Execute(ctx context.Context, command string) (interface{}, error) {
	d.mu.Lock()
	d.commands = append(d.commands, command)
	d.mu.Unlock()
	if d.execute != nil {
		return d.execute(ctx, command)
	}
	return "ok", nil
}

func (d *plannerDispatcher) Commands(filter []string) map[string]models.Command {
	return map[string]models.Command{
		"scan": {Name: "scan", Description: "Scan a contract"},
	}
}

func (d *plannerDispatcher) executed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// plannerJobControl only implements WaitForResult meaningfully; the rest of
// the JobControl surface is unused by the planner.
type plannerJobControl struct {
	waitForResult func(ctx context.Context, jobID string, timeout time.Duration) (*models.JobResult, error)
}

func (j *plannerJobControl) Submit(ctx context.Context, job interfaces.Job) (string, error) {
	return "", fmt.Errorf("not supported")
}
func (j *plannerJobControl) Get(jobID string) (*models.Job, bool)              { return nil, false }
func (j *plannerJobControl) List(opts *interfaces.JobListOptions) []*models.Job { return nil }
func (j *plannerJobControl) Stop(ctx context.Context, jobID string) bool        { return false }
func (j *plannerJobControl) MostRecentFinished() *models.Job                    { return nil }
func (j *plannerJobControl) MarkRunning(ctx context.Context, jobID string)      {}
func (j *plannerJobControl) AppendOutput(ctx context.Context, jobID string, line string) {}
func (j *plannerJobControl) Complete(ctx context.Context, jobID string, result *models.JobResult) {}
func (j *plannerJobControl) Fail(ctx context.Context, jobID string, errMsg string)                {}

func (j *plannerJobControl) WaitForResult(ctx context.Context, jobID string, timeout time.Duration) (*models.JobResult, error) {
	if j.waitForResult != nil {
		return j.waitForResult(ctx, jobID, timeout)
	}
	return nil, fmt.Errorf("no job: %s", jobID)
}

func newTestPlanner(llm *scriptedLLM, dispatcher *plannerDispatcher, jobs *plannerJobControl, maxSteps int) *Planner {
	if dispatcher == nil {
		dispatcher = &plannerDispatcher{}
	}
	if jobs == nil {
		jobs = &plannerJobControl{}
	}
	return NewPlanner(llm, dispatcher, jobs, maxSteps, 10*time.Second, arbor.NewLogger())
}

func TestExecuteTaskCompletesOnFinalStep(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"thought": "inspect the contract", "command": "scan 0xabc", "is_final": false}`,
		`{"thought": "all clear", "output": "no critical findings", "is_final": true}`,
	}}
	dispatcher := &plannerDispatcher{}
	planner := newTestPlanner(llm, dispatcher, nil, 10)

	run, err := planner.ExecuteTask(context.Background(), "audit 0xabc")
	require.NoError(t, err)

	assert.Equal(t, models.PlannerStatusCompleted, run.Status)
	assert.Equal(t, "no critical findings", run.Output)
	assert.Len(t, run.Steps, 2)
	assert.Equal(t, []string{"scan 0xabc"}, dispatcher.executed())
	assert.False(t, run.EndedAt.IsZero())
}

func TestExecuteTaskForcesFinalOnRepeatedCommand(t *testing.T) {
	repeated := `{"thought": "try again", "command": "/search x", "is_final": false}`
	llm := &scriptedLLM{responses: []string{repeated, repeated, repeated}}
	dispatcher := &plannerDispatcher{
		execute: func(ctx context.Context, command string) (interface{}, error) {
			return "no results", nil
		},
	}
	planner := newTestPlanner(llm, dispatcher, nil, 10)

	run, err := planner.ExecuteTask(context.Background(), "find x")
	require.NoError(t, err)

	// The third occurrence is converted into a forced final answer that
	// surfaces the last result instead of executing again.
	assert.Equal(t, models.PlannerStatusCompleted, run.Status)
	assert.Contains(t, run.Output, "no results")
	assert.Len(t, run.Steps, 3)
	assert.Equal(t, []string{"/search x", "/search x"}, dispatcher.executed())
	assert.Len(t, llm.received, 3)
}

func TestExecuteTaskRepeatWithoutResultKeepsGoing(t *testing.T) {
	// Same command name every time but every execution errors: there is no
	// result to surface, so the loop runs until a different outcome appears.
	llm := &scriptedLLM{responses: []string{
		`{"thought": "try", "command": "scan 0xabc", "is_final": false}`,
		`{"thought": "retry", "command": "scan 0xabc", "is_final": false}`,
		`{"thought": "third time", "command": "scan 0xabc", "is_final": false}`,
		`{"thought": "give up", "output": "scan endpoint is down", "is_final": true}`,
	}}
	dispatcher := &plannerDispatcher{
		execute: func(ctx context.Context, command string) (interface{}, error) {
			return nil, fmt.Errorf("rpc unreachable")
		},
	}
	planner := newTestPlanner(llm, dispatcher, nil, 10)

	run, err := planner.ExecuteTask(context.Background(), "audit 0xabc")
	require.NoError(t, err)
	assert.Equal(t, models.PlannerStatusCompleted, run.Status)
	assert.Equal(t, "scan endpoint is down", run.Output)
	assert.Len(t, dispatcher.executed(), 3)
}

func TestExecuteTaskEmptyCommandJustResponds(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"thought": "summarize progress", "command": "", "output": "notes so far", "is_final": false}`,
		`{"thought": "done", "output": "final answer", "is_final": true}`,
	}}
	dispatcher := &plannerDispatcher{}
	planner := newTestPlanner(llm, dispatcher, nil, 10)

	run, err := planner.ExecuteTask(context.Background(), "audit")
	require.NoError(t, err)
	assert.Equal(t, models.PlannerStatusCompleted, run.Status)
	assert.Equal(t, "final answer", run.Output)
	require.Len(t, run.Steps, 2)
	assert.Equal(t, "notes so far", run.Steps[0].OutputData)

	// Nothing was dispatched for the empty command
	assert.Empty(t, dispatcher.executed())
}

func TestExecuteTaskAwaitsBackgroundJob(t *testing.T) {
	jobID := "3d1c2b4a-0000-4000-8000-000000000001"
	llm := &scriptedLLM{responses: []string{
		`{"thought": "kick off a deep scan", "command": "deep_scan 0xabc", "is_final": false}`,
		`{"thought": "report", "output": "scan finished clean", "is_final": true}`,
	}}
	dispatcher := &plannerDispatcher{
		execute: func(ctx context.Context, command string) (interface{}, error) {
			return actions.JobSentinel(jobID), nil
		},
	}

	var waited string
	jobs := &plannerJobControl{
		waitForResult: func(ctx context.Context, id string, timeout time.Duration) (*models.JobResult, error) {
			waited = id
			return &models.JobResult{Success: true, Outputs: []string{"3 contracts scanned", "0 findings"}}, nil
		},
	}
	planner := newTestPlanner(llm, dispatcher, jobs, 10)

	run, err := planner.ExecuteTask(context.Background(), "deep audit")
	require.NoError(t, err)
	require.Equal(t, jobID, waited)

	// The job's output, not the sentinel, goes back to the model
	assert.Contains(t, run.Steps[0].OutputData, "3 contracts scanned")
	secondCall := llm.received[1]
	feedback := secondCall[len(secondCall)-1]
	assert.Contains(t, feedback.Content, "0 findings")
	assert.NotContains(t, feedback.Content, jobID)
}

func TestExecuteTaskFailsWhenBackgroundJobFails(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"thought": "kick off", "command": "deep_scan 0xabc", "is_final": false}`,
		`{"thought": "give up", "output": "scan unavailable", "is_final": true}`,
	}}
	dispatcher := &plannerDispatcher{
		execute: func(ctx context.Context, command string) (interface{}, error) {
			return actions.JobSentinel("job-x"), nil
		},
	}
	jobs := &plannerJobControl{
		waitForResult: func(ctx context.Context, id string, timeout time.Duration) (*models.JobResult, error) {
			return nil, fmt.Errorf("job %s failed: rpc down", id)
		},
	}
	planner := newTestPlanner(llm, dispatcher, jobs, 10)

	// A failing job is an execution error: it goes back to the model and the
	// run continues.
	run, err := planner.ExecuteTask(context.Background(), "deep audit")
	require.NoError(t, err)
	assert.Equal(t, models.PlannerStatusCompleted, run.Status)
	assert.Contains(t, run.Steps[0].OutputData, "rpc down")
}

func TestExecuteTaskStepLimit(t *testing.T) {
	step := `{"thought": "n", "command": "%s", "is_final": false}`
	llm := &scriptedLLM{responses: []string{
		fmt.Sprintf(step, "projects"),
		fmt.Sprintf(step, "scan 0xabc"),
		fmt.Sprintf(step, "github_commits uniswap"),
	}}
	planner := newTestPlanner(llm, nil, nil, 3)

	run, err := planner.ExecuteTask(context.Background(), "never ends")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step limit reached")
	assert.Equal(t, models.PlannerStatusFailed, run.Status)
	assert.Len(t, run.Steps, 3)
}

func TestExecuteTaskFailsOnUnparseableResponse(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"I refuse to emit JSON."}}
	planner := newTestPlanner(llm, nil, nil, 10)

	run, err := planner.ExecuteTask(context.Background(), "audit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unparseable plan step")
	assert.Equal(t, models.PlannerStatusFailed, run.Status)
}

func TestExecuteTaskFeedsExecutionErrorsBack(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"thought": "first try", "command": "scan bad-address", "is_final": false}`,
		`{"thought": "fix the address", "command": "scan 0xabc", "is_final": false}`,
		`{"thought": "done", "output": "clean", "is_final": true}`,
	}}
	dispatcher := &plannerDispatcher{
		execute: func(ctx context.Context, command string) (interface{}, error) {
			if command == "scan bad-address" {
				return nil, fmt.Errorf("invalid address")
			}
			return "ok", nil
		},
	}
	planner := newTestPlanner(llm, dispatcher, nil, 10)

	run, err := planner.ExecuteTask(context.Background(), "audit")
	require.NoError(t, err)
	assert.Equal(t, models.PlannerStatusCompleted, run.Status)
	assert.Len(t, run.Steps, 3)
	assert.Contains(t, run.Steps[0].OutputData, "invalid address")

	// The model saw the error in a user turn before its second response
	secondCall := llm.received[1]
	feedback := secondCall[len(secondCall)-1]
	assert.Equal(t, "user", feedback.Role)
	assert.Contains(t, feedback.Content, "invalid address")
}

func TestSystemPromptListsCommands(t *testing.T) {
	dispatcher := &plannerDispatcher{}
	prompt := BuildSystemPrompt(dispatcher.Commands(nil))
	assert.Contains(t, prompt, "scan")
	assert.Contains(t, prompt, "is_final")
}
