package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/actions"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
)

// Run is the audit record of one planning loop
type Run struct {
	ID        string                 `json:"id"`
	Task      string                 `json:"task"`
	Status    models.PlannerStatus   `json:"status"`
	Steps     []models.ExecutionStep `json:"steps"`
	Output    string                 `json:"output,omitempty"`
	Error     string                 `json:"error,omitempty"`
	StartedAt time.Time              `json:"started_at"`
	EndedAt   time.Time              `json:"ended_at"`
}

// Planner drives the bounded plan-execute-observe loop. Each iteration
// asks the LLM for one step, executes its command, and feeds the result
// back. The loop ends on is_final, the step ceiling, the timeout, or a
// forced final answer when the model keeps reissuing the same command.
type Planner struct {
	llm        interfaces.LLMService
	dispatcher interfaces.Dispatcher
	jobs       interfaces.JobControl
	maxSteps   int
	timeout    time.Duration
	logger     arbor.ILogger
}

// NewPlanner creates a planner. maxSteps and timeout fall back to 10 steps
// and 300 seconds when unset.
func NewPlanner(llm interfaces.LLMService, dispatcher interfaces.Dispatcher, jobs interfaces.JobControl, maxSteps int, timeout time.Duration, logger arbor.ILogger) *Planner {
	if maxSteps <= 0 {
		maxSteps = 10
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &Planner{
		llm:        llm,
		dispatcher: dispatcher,
		jobs:       jobs,
		maxSteps:   maxSteps,
		timeout:    timeout,
		logger:     logger,
	}
}

// ExecuteTask runs the planning loop for a task. The returned Run carries
// the full step history whether the run completed or failed.
func (p *Planner) ExecuteTask(ctx context.Context, task string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Task:      task,
		Status:    models.PlannerStatusStarted,
		StartedAt: time.Now(),
	}

	loopCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.logger.Info().
		Str("run_id", run.ID).
		Str("task", task).
		Int("max_steps", p.maxSteps).
		Msg("Planner run started")

	messages := []interfaces.Message{
		{Role: "system", Content: BuildSystemPrompt(p.dispatcher.Commands(nil))},
		{Role: "user", Content: BuildTaskPrompt(task)},
	}

	var commandHistory []string
	var lastResult *string

	for stepNum := 1; stepNum <= p.maxSteps; stepNum++ {
		if loopCtx.Err() != nil {
			return p.fail(run, fmt.Errorf("task timed out after %s", p.timeout))
		}

		run.Status = models.PlannerStatusInProgress

		response, err := p.llm.Chat(loopCtx, messages)
		if err != nil {
			return p.fail(run, fmt.Errorf("llm request failed: %w", err))
		}
		messages = append(messages, interfaces.Message{Role: "assistant", Content: response})

		step, err := ParsePlanStep(response)
		if err != nil {
			return p.fail(run, fmt.Errorf("unparseable plan step: %w", err))
		}

		record := models.ExecutionStep{
			StepNumber: stepNum,
			Action:     step.Command,
			Reasoning:  step.Thought,
			Timestamp:  time.Now(),
		}

		if step.IsFinal {
			record.OutputData = step.Output
			run.Steps = append(run.Steps, record)
			run.Status = models.PlannerStatusCompleted
			run.Output = step.Output
			run.EndedAt = time.Now()
			p.logger.Info().
				Str("run_id", run.ID).
				Int("steps", stepNum).
				Msg("Planner run completed")
			return run, nil
		}

		// Empty command means the model just responded; record the step
		// and keep going
		if step.Command == "" {
			record.OutputData = step.Output
			run.Steps = append(run.Steps, record)
			messages = append(messages, interfaces.Message{
				Role:    "user",
				Content: "Continue with the task. Issue a command, or finish with is_final=true.",
			})
			continue
		}

		name, _ := actions.SplitCommand(step.Command)

		// Loop breaker: the model has reissued this command after already
		// seeing its result once. Force a final answer surfacing the last
		// result instead of burning the remaining steps.
		if lastResult != nil && occurrences(commandHistory, name) >= 2 {
			record.OutputData = *lastResult
			run.Steps = append(run.Steps, record)
			run.Status = models.PlannerStatusCompleted
			run.Output = *lastResult
			run.EndedAt = time.Now()
			p.logger.Info().
				Str("run_id", run.ID).
				Str("command", name).
				Int("steps", stepNum).
				Msg("Planner run force-completed on repeated command")
			return run, nil
		}

		result, err := p.execute(loopCtx, step.Command)
		commandHistory = append(commandHistory, name)
		if err != nil {
			record.OutputData = err.Error()
			run.Steps = append(run.Steps, record)
			// Execution errors go back to the model; it may recover
			messages = append(messages, interfaces.Message{
				Role:    "user",
				Content: BuildErrorMessage(step.Command, err),
			})
			continue
		}

		record.OutputData = result
		run.Steps = append(run.Steps, record)
		lastResult = &result
		messages = append(messages, interfaces.Message{
			Role:    "user",
			Content: BuildResultMessage(step.Command, result),
		})
	}

	return p.fail(run, fmt.Errorf("step limit reached (%d) without a final answer", p.maxSteps))
}

// execute dispatches one command. Results that announce a background job
// are awaited; the job's terminal result replaces the sentinel.
func (p *Planner) execute(ctx context.Context, command string) (string, error) {
	result, err := p.dispatcher.Execute(ctx, command)
	if err != nil {
		return "", err
	}

	if jobID, ok := actions.JobIDFromResult(result); ok {
		p.logger.Debug().Str("job_id", jobID).Msg("Awaiting background job result")

		deadline := p.timeout
		if d, ok := ctx.Deadline(); ok {
			deadline = time.Until(d)
		}

		jobResult, err := p.jobs.WaitForResult(ctx, jobID, deadline)
		if err != nil {
			return "", fmt.Errorf("job %s failed: %w", jobID, err)
		}
		return jobResult.Output(), nil
	}

	return fmt.Sprintf("%v", result), nil
}

// occurrences counts how many times name appears in history
func occurrences(history []string, name string) int {
	n := 0
	for _, h := range history {
		if h == name {
			n++
		}
	}
	return n
}

func (p *Planner) fail(run *Run, err error) (*Run, error) {
	run.Status = models.PlannerStatusFailed
	run.Error = err.Error()
	run.EndedAt = time.Now()
	p.logger.Warn().
		Err(err).
		Str("run_id", run.ID).
		Int("steps", len(run.Steps)).
		Msg("Planner run failed")
	return run, err
}
