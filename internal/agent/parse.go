package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/argus/internal/models"
)

// ParsePlanStep extracts a plan step from a raw LLM response. Extraction is
// tolerant (markdown code fences are stripped, surrounding prose outside the
// JSON object is ignored) but parsing is strict: thought and is_final must
// be present. An empty command is valid and means the model just responded.
func ParsePlanStep(raw string) (*models.PlanStep, error) {
	text := stripFences(raw)

	// Isolate the outermost JSON object when the model wrapped it in prose
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("response contains no JSON object")
	}
	text = text[start : end+1]

	// Pointer fields distinguish missing keys from zero values
	var probe struct {
		Thought *string `json:"thought"`
		Command *string `json:"command"`
		Output  *string `json:"output"`
		IsFinal *bool   `json:"is_final"`
	}

	decoder := json.NewDecoder(strings.NewReader(text))
	if err := decoder.Decode(&probe); err != nil {
		return nil, fmt.Errorf("invalid plan step JSON: %w", err)
	}

	if probe.Thought == nil {
		return nil, fmt.Errorf("plan step missing required field: thought")
	}
	if probe.IsFinal == nil {
		return nil, fmt.Errorf("plan step missing required field: is_final")
	}

	step := &models.PlanStep{
		Thought: *probe.Thought,
		IsFinal: *probe.IsFinal,
	}
	if probe.Command != nil {
		step.Command = strings.TrimSpace(*probe.Command)
	}
	if probe.Output != nil {
		step.Output = *probe.Output
	}

	return step, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}

	// Drop the opening fence line ("```" or "```json")
	lines = lines[1:]

	// Drop the closing fence if present
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			lines = append(lines[:i], lines[i+1:]...)
			break
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
