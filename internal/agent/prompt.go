package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/argus/internal/models"
)

// BuildSystemPrompt renders the planner's system prompt: the response
// contract plus a catalog of every available command.
func BuildSystemPrompt(commands map[string]models.Command) string {
	var b strings.Builder

	b.WriteString(`You are an autonomous research agent. You accomplish tasks by executing commands, one per step.

Respond to every message with a single JSON object and nothing else:

{
  "thought": "your reasoning about the current state and what to do next",
  "command": "<command_name> [arguments]",
  "output": "findings to report so far",
  "is_final": false
}

Rules:
- Execute exactly one command per step.
- Set "is_final" to true only when the task is complete; put the full answer in "output".
- Leave "command" empty to respond without executing anything this step.
- Arguments may be positional or name=value pairs. Quote values containing spaces.
- Commands that start background jobs return a job ID; the job's result is delivered to you in the next step.

Available commands:

`)

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cmd := commands[name]
		b.WriteString(fmt.Sprintf("## %s\n", cmd.Name))
		if cmd.Description != "" {
			b.WriteString(cmd.Description + "\n")
		}
		if len(cmd.RequiredParams) > 0 {
			b.WriteString("Required: " + strings.Join(cmd.RequiredParams, ", ") + "\n")
		}
		if len(cmd.OptionalParams) > 0 {
			b.WriteString("Optional: " + strings.Join(cmd.OptionalParams, ", ") + "\n")
		}
		if cmd.Help != "" {
			b.WriteString("Usage: " + cmd.Help + "\n")
		}
		if cmd.Hint != "" {
			b.WriteString("Hint: " + cmd.Hint + "\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// BuildTaskPrompt renders the opening user message for a task
func BuildTaskPrompt(task string) string {
	return fmt.Sprintf("Task: %s\n\nBegin with your first step.", task)
}

// BuildResultMessage renders a command result as the next user turn
func BuildResultMessage(command string, result string) string {
	return fmt.Sprintf("Result of `%s`:\n\n%s\n\nContinue with your next step, or finish with is_final=true.", command, result)
}

// BuildErrorMessage renders a command failure as the next user turn so the
// model can adjust rather than abort
func BuildErrorMessage(command string, err error) string {
	return fmt.Sprintf("Command `%s` failed: %v\n\nAdjust your approach and continue, or finish with is_final=true.", command, err)
}
