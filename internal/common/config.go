package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment   string              `toml:"environment"` // "development" or "production"
	Server        ServerConfig        `toml:"server"`
	Storage       StorageConfig       `toml:"storage"`
	Logging       LoggingConfig       `toml:"logging"`
	Claude        ClaudeConfig        `toml:"claude"`
	Agent         AgentConfig         `toml:"agent"`
	Schedules     []ScheduleConfig    `toml:"schedules"`
	Watchers      WatchersConfig      `toml:"watchers"`
	Extensions    ExtensionsConfig    `toml:"extensions"`
	Notifications NotificationsConfig `toml:"notifications"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"` // "debug", "info", "warn", "error"
	Output []string `toml:"output"`                                      // "stdout", "file"
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`                        // Anthropic API key (ANTHROPIC_API_KEY env takes priority)
	Model     string `toml:"model" validate:"required"`      // Model for planning operations
	MaxTokens int    `toml:"max_tokens" validate:"gt=0"`     // Maximum tokens in response (default: 8192)
	Timeout   string `toml:"timeout"`                        // Request timeout as duration string (default: "2m")
	RateLimit string `toml:"rate_limit"`                     // Minimum interval between requests (default: "1s")
}

// AgentConfig bounds the autonomous planning loop
type AgentConfig struct {
	MaxSteps int    `toml:"max_steps" validate:"gt=0"` // Maximum planning steps per task (default: 10)
	Timeout  string `toml:"timeout"`                   // Overall task timeout as duration string (default: "300s")
}

// ScheduleConfig declares one recurring action
type ScheduleConfig struct {
	Name            string `toml:"name" validate:"required"`
	Command         string `toml:"command" validate:"required"`
	IntervalMinutes int    `toml:"interval_minutes" validate:"gt=0"`
	Enabled         bool   `toml:"enabled"`
}

// WatchersConfig selects which watchers run and configures their sources
type WatchersConfig struct {
	Active []string            `toml:"active"` // Watcher names to start, empty = none
	GitHub GitHubWatcherConfig `toml:"github"`
}

// GitHubWatcherConfig configures the GitHub repository watcher
type GitHubWatcherConfig struct {
	Token           string   `toml:"token"`            // GitHub API token (GITHUB_TOKEN env takes priority)
	Repos           []string `toml:"repos"`            // "owner/repo" entries to poll
	IntervalMinutes int      `toml:"interval_minutes"` // Poll interval (default: 5)
}

// ExtensionsConfig selects which registered extensions load at startup
type ExtensionsConfig struct {
	Active []string `toml:"active"` // Extension names to load, "_"-prefixed entries are skipped
	Dir    string   `toml:"dir"`    // Directory scanned for extension manifests (default: "./extensions")
}

// NotificationsConfig configures outbound notification fan-out
type NotificationsConfig struct {
	ChatEnabled      bool `toml:"chat_enabled"`       // Enable the websocket chat notifier
	MaxMessageLength int  `toml:"max_message_length"` // Split chat messages above this length (default: 4000)
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in argus.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Claude: ClaudeConfig{
			APIKey:    "",
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 8192,
			Timeout:   "2m",
			RateLimit: "1s",
		},
		Agent: AgentConfig{
			MaxSteps: 10,
			Timeout:  "300s",
		},
		Watchers: WatchersConfig{
			Active: []string{},
			GitHub: GitHubWatcherConfig{
				IntervalMinutes: 5,
			},
		},
		Extensions: ExtensionsConfig{
			Active: []string{},
			Dir:    "./extensions",
		},
		Notifications: NotificationsConfig{
			ChatEnabled:      true,
			MaxMessageLength: 4000,
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.ParseDuration(c.Agent.Timeout); err != nil {
		return fmt.Errorf("invalid agent timeout %q: %w", c.Agent.Timeout, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ARGUS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("ARGUS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("ARGUS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("ARGUS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("ARGUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("ARGUS_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("ARGUS_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // ARGUS_ prefix takes priority
	}
	if model := os.Getenv("ARGUS_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("ARGUS_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}

	if maxSteps := os.Getenv("ARGUS_AGENT_MAX_STEPS"); maxSteps != "" {
		if ms, err := strconv.Atoi(maxSteps); err == nil {
			config.Agent.MaxSteps = ms
		}
	}
	if timeout := os.Getenv("ARGUS_AGENT_TIMEOUT"); timeout != "" {
		config.Agent.Timeout = timeout
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		config.Watchers.GitHub.Token = token
	}
	if token := os.Getenv("ARGUS_GITHUB_TOKEN"); token != "" {
		config.Watchers.GitHub.Token = token
	}

	if active := os.Getenv("ARGUS_ACTIVE_WATCHERS"); active != "" {
		watchers := []string{}
		for _, w := range strings.Split(active, ",") {
			if trimmed := strings.TrimSpace(w); trimmed != "" {
				watchers = append(watchers, trimmed)
			}
		}
		config.Watchers.Active = watchers
	}

	if active := os.Getenv("ARGUS_ACTIVE_EXTENSIONS"); active != "" {
		exts := []string{}
		for _, e := range strings.Split(active, ",") {
			if trimmed := strings.TrimSpace(e); trimmed != "" {
				exts = append(exts, trimmed)
			}
		}
		config.Extensions.Active = exts
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// AgentTimeout returns the parsed agent loop timeout
func (c *Config) AgentTimeout() time.Duration {
	d, err := time.ParseDuration(c.Agent.Timeout)
	if err != nil {
		return 300 * time.Second
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
