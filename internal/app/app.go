package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/actions"
	"github.com/ternarybob/argus/internal/agent"
	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/events"
	"github.com/ternarybob/argus/internal/extensions"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/jobs"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/notify"
	"github.com/ternarybob/argus/internal/scheduler"
	"github.com/ternarybob/argus/internal/server"
	"github.com/ternarybob/argus/internal/storage/badger"
	"github.com/ternarybob/argus/internal/watchers"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	EventBus       interfaces.EventBus
	Notifier       interfaces.Notifier
	JobManager     *jobs.Manager
	Registry       *actions.Registry
	Scheduler      *scheduler.Scheduler
	LLMService     interfaces.LLMService
	Planner        *agent.Planner
	WebhookServer  *server.WebhookServer
	WatcherManager *watchers.Manager
	Extensions     *extensions.Loader

	chat *notify.ChatNotifier
}

// New initializes the application with all dependencies. Nothing is
// started yet; Start launches the runtime pieces.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	if logger == nil {
		logger = common.GetLogger()
	}

	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Storage first; everything durable hangs off it
	storageManager, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager
	logger.Debug().
		Str("storage", "badger").
		Str("path", cfg.Storage.Badger.Path).
		Msg("Storage layer initialized")

	// Event bus persists one log row per handler invocation
	app.EventBus = events.NewBus(storageManager.EventLogStorage(), logger)

	// Notification fan-out: persistent queue always, chat when enabled
	targets := []interfaces.Notifier{
		notify.NewStoreNotifier(storageManager.NotificationStorage(), logger),
	}
	if cfg.Notifications.ChatEnabled {
		app.chat = notify.NewChatNotifier(cfg.Notifications.MaxMessageLength, logger)
		targets = append(targets, app.chat)
	}
	app.Notifier = notify.NewMultiNotifier(logger, targets...)

	app.JobManager = jobs.NewManager(storageManager.JobStorage(), app.Notifier, logger)

	app.Registry = actions.NewRegistry(logger)
	app.Scheduler = scheduler.New(app.Registry, storageManager.ScheduledActionStorage(), logger)

	if err := actions.RegisterBuiltins(app.Registry, actions.BuiltinDeps{
		Jobs:      app.JobManager,
		Scheduler: app.Scheduler,
		Notifier:  app.Notifier,
	}); err != nil {
		return nil, fmt.Errorf("failed to register built-in actions: %w", err)
	}

	// LLM and planner are optional: without an API key the rest of the
	// system still runs, only run_task is missing
	if cfg.Claude.APIKey != "" {
		llm, err := agent.NewClaudeService(&cfg.Claude, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
		}
		app.LLMService = llm
		app.Planner = agent.NewPlanner(llm, app.Registry, app.JobManager, cfg.Agent.MaxSteps, cfg.AgentTimeout(), logger)

		if err := app.registerPlannerAction(); err != nil {
			return nil, fmt.Errorf("failed to register planner action: %w", err)
		}
	} else {
		logger.Warn().Msg("No Anthropic API key configured, agent planning is disabled")
	}

	// Inbound HTTP surface
	app.WebhookServer = server.NewWebhookServer(cfg.Server.Host, cfg.Server.Port, logger)
	app.WebhookServer.Register("quicknode", server.NewQuickNodeHandler(app.EventBus, logger))
	app.WebhookServer.Register("github", server.NewGitHubWebhookHandler(app.EventBus, logger))
	if app.chat != nil {
		app.WebhookServer.RegisterRaw("/ws/notifications", http.HandlerFunc(app.chat.HandleWS))
	}

	app.WatcherManager = watchers.NewManager(cfg.Watchers.Active, app.JobManager, app.EventBus, app.WebhookServer, logger)
	if err := app.WatcherManager.Register(watchers.NewGitHubWatcher(&cfg.Watchers.GitHub, storageManager.WatcherStateStorage(), logger)); err != nil {
		return nil, fmt.Errorf("failed to register github watcher: %w", err)
	}

	app.Extensions = extensions.NewLoader(cfg.Extensions, logger)

	logger.Info().Msg("Application initialization complete")

	return app, nil
}

// Start launches the runtime: extensions, scheduler, watchers and the
// webhook listener
func (a *App) Start(ctx context.Context) error {
	// Extensions first so their actions and watchers exist before
	// schedules and webhook routes reference them
	if err := a.Extensions.Load(extensions.Deps{
		Actions:  a.Registry,
		Bus:      a.EventBus,
		Watchers: a.WatcherManager,
		Notifier: a.Notifier,
		Jobs:     a.JobManager,
		Logger:   a.Logger,
	}); err != nil {
		return fmt.Errorf("failed to load extensions: %w", err)
	}

	if err := a.Scheduler.LoadConfig(ctx, a.Config.Schedules); err != nil {
		return fmt.Errorf("failed to load schedules: %w", err)
	}
	if err := a.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Watcher manager also starts the webhook listener once routes are in
	if err := a.WatcherManager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watchers: %w", err)
	}

	a.Logger.Info().
		Str("address", fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port)).
		Msg("Application started")

	return nil
}

// registerPlannerAction exposes the planning loop as the run_task action.
// The run executes as a background job; callers get the job handle.
func (a *App) registerPlannerAction() error {
	spec := &models.ActionSpec{
		Name:        "run_task",
		Description: "Run an autonomous research task through the agent planner",
		HelpText:    "run_task <task description>",
		AgentHint:   "Use for multi-step research goals that need planning",
		Args: []models.ArgSpec{
			{Name: "task", Description: "Natural-language task description", Required: true},
		},
	}

	return a.Registry.Register("run_task", spec, func(ctx context.Context, args actions.Args) (interface{}, error) {
		task, ok := args.Get(spec, "task")
		if !ok || task == "" {
			return nil, fmt.Errorf("task is required")
		}

		job := jobs.NewTask("agent_task", a.JobManager, func(jobCtx context.Context, emit func(string)) (*models.JobResult, error) {
			run, err := a.Planner.ExecuteTask(jobCtx, task)
			if run != nil {
				for _, step := range run.Steps {
					emit(fmt.Sprintf("step %d: %s", step.StepNumber, step.Action))
				}
			}
			if err != nil {
				return nil, err
			}
			if run.Output != "" {
				emit(run.Output)
			}
			return &models.JobResult{
				Success: true,
				Message: run.Output,
			}, nil
		})

		jobID, err := a.JobManager.Submit(ctx, job)
		if err != nil {
			return nil, fmt.Errorf("failed to start task job: %w", err)
		}
		return actions.JobSentinel(jobID), nil
	})
}

// Close shuts components down in reverse dependency order
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.Scheduler.Stop()

	if err := a.WatcherManager.Stop(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to stop watchers")
	}

	if a.chat != nil {
		a.chat.Close()
	}

	if err := a.EventBus.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close event bus")
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
