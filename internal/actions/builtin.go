package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
)

// ScheduleControl is the slice of the scheduler the built-in actions need
type ScheduleControl interface {
	Enable(ctx context.Context, name string) error
	Disable(ctx context.Context, name string) error
	List() []*models.ScheduledAction
}

// BuiltinDeps carries the collaborators the built-in actions close over
type BuiltinDeps struct {
	Jobs      interfaces.JobControl
	Scheduler ScheduleControl
	Notifier  interfaces.Notifier
}

// RegisterBuiltins registers the self-hosted admin actions: job inspection,
// schedule control and notification sending. Called once from the
// composition root before extensions load.
func RegisterBuiltins(reg *Registry, deps BuiltinDeps) error {
	type registration struct {
		spec    *models.ActionSpec
		handler Handler
	}

	regs := []registration{
		{
			spec: &models.ActionSpec{
				Name:        "help",
				Description: "List available actions with their arguments",
				AgentHint:   "Use to discover what actions exist before planning",
			},
			handler: func(ctx context.Context, args Args) (interface{}, error) {
				var b strings.Builder
				for _, name := range reg.Names() {
					_, spec, _ := reg.Get(name)
					b.WriteString("/" + name)
					if spec != nil {
						for _, a := range spec.Args {
							if a.Required {
								b.WriteString(fmt.Sprintf(" <%s>", a.Name))
							} else {
								b.WriteString(fmt.Sprintf(" [%s]", a.Name))
							}
						}
						if spec.Description != "" {
							b.WriteString(" - " + spec.Description)
						}
					}
					b.WriteString("\n")
				}
				return b.String(), nil
			},
		},
		{
			spec: &models.ActionSpec{
				Name:        "list_actions",
				Description: "Return the action catalog as JSON",
			},
			handler: func(ctx context.Context, args Args) (interface{}, error) {
				return reg.Commands(nil), nil
			},
		},
		{
			spec: &models.ActionSpec{
				Name:        "list_jobs",
				Description: "List jobs, optionally filtered by status",
				Args: []models.ArgSpec{
					{Name: "status", Description: "pending, running, completed, failed or cancelled", Required: false},
				},
			},
			handler: func(ctx context.Context, args Args) (interface{}, error) {
				_, spec, _ := reg.Get("list_jobs")
				opts := &interfaces.JobListOptions{}
				if status, ok := args.Get(spec, "status"); ok {
					opts.Status = models.JobStatus(status)
				}
				jobs := deps.Jobs.List(opts)
				sort.Slice(jobs, func(i, j int) bool {
					return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
				})
				var b strings.Builder
				for _, j := range jobs {
					b.WriteString(fmt.Sprintf("%s  %-10s %-9s %s\n", j.ID, j.Type, j.Status, j.CreatedAt.Format("2006-01-02 15:04:05")))
				}
				if b.Len() == 0 {
					return "No jobs found", nil
				}
				return b.String(), nil
			},
		},
		{
			spec: &models.ActionSpec{
				Name:        "get_job",
				Description: "Get a job record by ID",
				Args: []models.ArgSpec{
					{Name: "job_id", Description: "Job ID", Required: true},
				},
			},
			handler: func(ctx context.Context, args Args) (interface{}, error) {
				_, spec, _ := reg.Get("get_job")
				jobID, _ := args.Get(spec, "job_id")
				job, ok := deps.Jobs.Get(jobID)
				if !ok {
					return nil, fmt.Errorf("job not found: %s", jobID)
				}
				data, err := json.MarshalIndent(job, "", "  ")
				if err != nil {
					return nil, fmt.Errorf("failed to render job: %w", err)
				}
				return string(data), nil
			},
		},
		{
			spec: &models.ActionSpec{
				Name:        "get_job_result",
				Description: "Get the full output stream of a finished job",
				Args: []models.ArgSpec{
					{Name: "job_id", Description: "Job ID", Required: true},
				},
			},
			handler: func(ctx context.Context, args Args) (interface{}, error) {
				_, spec, _ := reg.Get("get_job_result")
				jobID, _ := args.Get(spec, "job_id")
				job, ok := deps.Jobs.Get(jobID)
				if !ok {
					return nil, fmt.Errorf("job not found: %s", jobID)
				}
				if !job.IsTerminal() {
					return fmt.Sprintf("Job %s is still %s", jobID, job.Status), nil
				}
				if job.Result == nil {
					return "", nil
				}
				return job.Result.Output(), nil
			},
		},
		{
			spec: &models.ActionSpec{
				Name:        "stop_job",
				Description: "Cancel a running job",
				Args: []models.ArgSpec{
					{Name: "job_id", Description: "Job ID", Required: true},
				},
			},
			handler: func(ctx context.Context, args Args) (interface{}, error) {
				_, spec, _ := reg.Get("stop_job")
				jobID, _ := args.Get(spec, "job_id")
				if !deps.Jobs.Stop(ctx, jobID) {
					return nil, fmt.Errorf("job not found or not running: %s", jobID)
				}
				return fmt.Sprintf("Job %s cancelled", jobID), nil
			},
		},
		{
			spec: &models.ActionSpec{
				Name:        "list_schedules",
				Description: "List scheduled actions and their state",
			},
			handler: func(ctx context.Context, args Args) (interface{}, error) {
				var b strings.Builder
				for _, s := range deps.Scheduler.List() {
					state := "disabled"
					if s.Enabled {
						state = "enabled"
					}
					lastRun := "never"
					if s.LastRun != nil {
						lastRun = s.LastRun.Format("2006-01-02 15:04:05")
					}
					b.WriteString(fmt.Sprintf("%-20s %-8s every %dm  last run %s  (%s)\n", s.Name, state, s.IntervalMinutes, lastRun, s.Command))
				}
				if b.Len() == 0 {
					return "No scheduled actions", nil
				}
				return b.String(), nil
			},
		},
		{
			spec: &models.ActionSpec{
				Name:        "enable_schedule",
				Description: "Enable a scheduled action",
				Args: []models.ArgSpec{
					{Name: "name", Description: "Schedule name", Required: true},
				},
			},
			handler: func(ctx context.Context, args Args) (interface{}, error) {
				_, spec, _ := reg.Get("enable_schedule")
				name, _ := args.Get(spec, "name")
				if err := deps.Scheduler.Enable(ctx, name); err != nil {
					return nil, err
				}
				return fmt.Sprintf("Schedule %s enabled", name), nil
			},
		},
		{
			spec: &models.ActionSpec{
				Name:        "disable_schedule",
				Description: "Disable a scheduled action",
				Args: []models.ArgSpec{
					{Name: "name", Description: "Schedule name", Required: true},
				},
			},
			handler: func(ctx context.Context, args Args) (interface{}, error) {
				_, spec, _ := reg.Get("disable_schedule")
				name, _ := args.Get(spec, "name")
				if err := deps.Scheduler.Disable(ctx, name); err != nil {
					return nil, err
				}
				return fmt.Sprintf("Schedule %s disabled", name), nil
			},
		},
		{
			spec: &models.ActionSpec{
				Name:        "notify",
				Description: "Send a notification message",
				Args: []models.ArgSpec{
					{Name: "message", Description: "Message text", Required: true},
				},
			},
			handler: func(ctx context.Context, args Args) (interface{}, error) {
				_, spec, _ := reg.Get("notify")
				msg, _ := args.Get(spec, "message")
				if err := deps.Notifier.SendMessage(ctx, msg); err != nil {
					return nil, fmt.Errorf("failed to send notification: %w", err)
				}
				return "Notification sent", nil
			},
		},
	}

	for _, r := range regs {
		if err := reg.Register(r.spec.Name, r.spec, r.handler); err != nil {
			return fmt.Errorf("failed to register builtin %s: %w", r.spec.Name, err)
		}
	}
	return nil
}
