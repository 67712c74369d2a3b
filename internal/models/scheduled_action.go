package models

import "time"

// ScheduledAction is a configured periodic invocation of a registered action.
// Command is a single action invocation exactly as it would be typed into the
// chat interface, e.g. "sync_projects platform=immunefi".
type ScheduledAction struct {
	Name            string     `json:"name" badgerhold:"key"`
	Command         string     `json:"command"`
	IntervalMinutes int        `json:"interval_minutes"`
	Enabled         bool       `json:"enabled"`
	LastRun         *time.Time `json:"last_run,omitempty"`
}
