package agent

import (
	"strings"
	"testing"
)

func TestParsePlanStep(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantThought string
		wantCommand string
		wantFinal   bool
		wantErr     string
	}{
		{
			name:        "plain json",
			raw:         `{"thought": "check recent commits", "command": "github_commits uniswap", "is_final": false}`,
			wantThought: "check recent commits",
			wantCommand: "github_commits uniswap",
		},
		{
			name: "fenced with language tag",
			raw: "```json\n" +
				`{"thought": "done", "output": "no issues found", "is_final": true}` +
				"\n```",
			wantThought: "done",
			wantFinal:   true,
		},
		{
			name: "fenced without language tag",
			raw: "```\n" +
				`{"thought": "list projects", "command": "projects", "is_final": false}` +
				"\n```",
			wantThought: "list projects",
			wantCommand: "projects",
		},
		{
			name: "prose around json",
			raw: "Here is my next step:\n" +
				`{"thought": "scan", "command": "scan 0xabc", "is_final": false}` +
				"\nLet me know if that works.",
			wantThought: "scan",
			wantCommand: "scan 0xabc",
		},
		{
			name:        "command whitespace trimmed",
			raw:         `{"thought": "t", "command": "  scan 0xabc  ", "is_final": false}`,
			wantThought: "t",
			wantCommand: "scan 0xabc",
		},
		{
			name:      "final step without command",
			raw:       `{"thought": "wrap up", "is_final": true}`,
			wantFinal: true,

			wantThought: "wrap up",
		},
		{
			name:    "missing thought",
			raw:     `{"command": "scan", "is_final": false}`,
			wantErr: "thought",
		},
		{
			name:    "missing is_final",
			raw:     `{"thought": "t", "command": "scan"}`,
			wantErr: "is_final",
		},
		{
			name:        "non-final without command just responds",
			raw:         `{"thought": "thinking out loud", "output": "notes so far", "is_final": false}`,
			wantThought: "thinking out loud",
		},
		{
			name:        "blank command treated as empty",
			raw:         `{"thought": "t", "command": "   ", "is_final": false}`,
			wantThought: "t",
		},
		{
			name:    "no json at all",
			raw:     "I cannot answer that.",
			wantErr: "no JSON object",
		},
		{
			name:    "malformed json",
			raw:     `{"thought": "t", "is_final": }`,
			wantErr: "invalid plan step JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, err := ParsePlanStep(tt.raw)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got step %+v", tt.wantErr, step)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if step.Thought != tt.wantThought {
				t.Errorf("thought: expected %q, got %q", tt.wantThought, step.Thought)
			}
			if step.Command != tt.wantCommand {
				t.Errorf("command: expected %q, got %q", tt.wantCommand, step.Command)
			}
			if step.IsFinal != tt.wantFinal {
				t.Errorf("is_final: expected %v, got %v", tt.wantFinal, step.IsFinal)
			}
		})
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"no fence", `{"a": 1}`, `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"language tag", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"unclosed fence", "```json\n{\"a\": 1}", `{"a": 1}`},
		{"surrounding whitespace", "  ```json\n{\"a\": 1}\n```  ", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.raw); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
