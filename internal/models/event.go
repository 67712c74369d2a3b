package models

import (
	"time"

	"github.com/google/uuid"
)

// HandlerResult is the outcome of a single event handler invocation
type HandlerResult struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// EventLog is the append-only record written for every handler invocation,
// success or failure. Result holds either the HandlerResult fields or an
// error record of the form {"success": false, "error": "<message>"}.
type EventLog struct {
	ID          string                 `json:"id" badgerhold:"key"`
	HandlerName string                 `json:"handler_name"`
	Trigger     string                 `json:"trigger"`
	Result      map[string]interface{} `json:"result"`
	CreatedAt   time.Time              `json:"created_at"`
}

// NewEventLog creates an event log row for a handler invocation
func NewEventLog(handlerName, trigger string, result map[string]interface{}) *EventLog {
	return &EventLog{
		ID:          uuid.New().String(),
		HandlerName: handlerName,
		Trigger:     trigger,
		Result:      result,
		CreatedAt:   time.Now(),
	}
}
