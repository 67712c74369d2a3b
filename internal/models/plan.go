package models

import "time"

// PlanStep is the structured object the planner extracts from each LLM
// response. All four fields are required; a response missing any of them is
// rejected and the run fails.
type PlanStep struct {
	Thought string `json:"thought"`
	Command string `json:"command"`
	Output  string `json:"output"`
	IsFinal bool   `json:"is_final"`
}

// ExecutionStep is the audit record appended for every planner step
type ExecutionStep struct {
	StepNumber int       `json:"step_number"`
	Action     string    `json:"action"`
	InputData  string    `json:"input_data,omitempty"`
	OutputData string    `json:"output_data,omitempty"`
	Reasoning  string    `json:"reasoning,omitempty"`
	NextAction string    `json:"next_action,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// PlannerStatus tracks the state machine of a planner run
type PlannerStatus string

const (
	PlannerStatusStarted    PlannerStatus = "started"
	PlannerStatusInProgress PlannerStatus = "in_progress"
	PlannerStatusCompleted  PlannerStatus = "completed"
	PlannerStatusFailed     PlannerStatus = "failed"
)
