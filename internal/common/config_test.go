package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	if config.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", config.Server.Port)
	}
	if config.Agent.MaxSteps != 10 {
		t.Errorf("expected 10 max steps, got %d", config.Agent.MaxSteps)
	}
	if config.AgentTimeout() != 300*time.Second {
		t.Errorf("expected 300s agent timeout, got %s", config.AgentTimeout())
	}
	if config.Notifications.MaxMessageLength != 4000 {
		t.Errorf("expected 4000 max message length, got %d", config.Notifications.MaxMessageLength)
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "argus.toml")
	content := `
environment = "production"

[server]
port = 9090
host = "0.0.0.0"

[agent]
max_steps = 5
timeout = "120s"

[[schedules]]
name = "hourly-scan"
command = "scan all"
interval_minutes = 60
enabled = true

[watchers]
active = ["github"]

[watchers.github]
repos = ["uniswap/v4-core"]
interval_minutes = 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if !config.IsProduction() {
		t.Error("expected production environment")
	}
	if config.Server.Port != 9090 || config.Server.Host != "0.0.0.0" {
		t.Errorf("unexpected server config %+v", config.Server)
	}
	if config.Agent.MaxSteps != 5 || config.AgentTimeout() != 2*time.Minute {
		t.Errorf("unexpected agent config %+v", config.Agent)
	}
	if len(config.Schedules) != 1 || config.Schedules[0].Name != "hourly-scan" {
		t.Errorf("unexpected schedules %+v", config.Schedules)
	}
	if len(config.Watchers.Active) != 1 || config.Watchers.Active[0] != "github" {
		t.Errorf("unexpected active watchers %v", config.Watchers.Active)
	}
	if config.Watchers.GitHub.IntervalMinutes != 10 {
		t.Errorf("unexpected github interval %d", config.Watchers.GitHub.IntervalMinutes)
	}

	// Unset fields keep their defaults
	if config.Claude.Model == "" {
		t.Error("model default must survive a partial file")
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected default log level, got %q", config.Logging.Level)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/argus.toml"); err == nil {
		t.Fatal("missing file must error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"empty host", func(c *Config) { c.Server.Host = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"empty model", func(c *Config) { c.Claude.Model = "" }},
		{"zero max steps", func(c *Config) { c.Agent.MaxSteps = 0 }},
		{"bad agent timeout", func(c *Config) { c.Agent.Timeout = "five minutes" }},
		{"empty badger path", func(c *Config) { c.Storage.Badger.Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARGUS_SERVER_PORT", "7070")
	t.Setenv("ARGUS_AGENT_TIMEOUT", "90s")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("ARGUS_ACTIVE_WATCHERS", "github, etherscan")

	config, err := LoadFromFile("")
	if err != nil {
		t.Fatal(err)
	}

	if config.Server.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", config.Server.Port)
	}
	if config.AgentTimeout() != 90*time.Second {
		t.Errorf("expected 90s timeout, got %s", config.AgentTimeout())
	}
	if config.Claude.APIKey != "sk-test" {
		t.Errorf("expected env api key, got %q", config.Claude.APIKey)
	}
	want := []string{"github", "etherscan"}
	if len(config.Watchers.Active) != 2 || config.Watchers.Active[0] != want[0] || config.Watchers.Active[1] != want[1] {
		t.Errorf("expected %v, got %v", want, config.Watchers.Active)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 0, "")
	if config.Server.Port != 8080 || config.Server.Host != "localhost" {
		t.Errorf("zero flags must not override, got %+v", config.Server)
	}

	ApplyFlagOverrides(config, 9999, "0.0.0.0")
	if config.Server.Port != 9999 || config.Server.Host != "0.0.0.0" {
		t.Errorf("flags must override, got %+v", config.Server)
	}
}
