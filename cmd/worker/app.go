package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/augur/internal/compact"
	"github.com/phrazzld/augur/internal/config"
	"github.com/phrazzld/augur/internal/jobs"
	"github.com/phrazzld/augur/internal/planner"
	"github.com/phrazzld/augur/internal/platform/gemini"
	"github.com/phrazzld/augur/internal/platform/postgres"
	"github.com/phrazzld/augur/internal/platform/todoist"
	"github.com/phrazzld/augur/internal/store"
	"github.com/phrazzld/augur/internal/sync"
)

// planRefresher rebuilds and caches one user's plan payload.
type planRefresher interface {
	Refresh(ctx context.Context, userID, chatID string) error
}

// syncRunner runs one push or reconcile pass for a user.
type syncRunner interface {
	Run(ctx context.Context, userID string, attempt int) error
}

// compactRunner prunes one user's expired inbox items.
type compactRunner interface {
	Run(ctx context.Context, userID string) error
}

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	taskStore    store.TaskStore
	goalStore    store.GoalStore
	linkStore    store.LinkStore
	mappingStore store.MappingStore
	inboxStore   store.InboxStore
	eventStore   store.EventStore
	planCache    store.PlanCacheStore

	// Job processing
	queue      jobs.Queue
	dispatcher *jobs.Dispatcher

	// Topic services
	planService     planRefresher
	pushEngine      syncRunner
	reconcileEngine syncRunner
	compactor       compactRunner
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize stores
	app.taskStore = postgres.NewPostgresTaskStore(db)
	app.goalStore = postgres.NewPostgresGoalStore(db)
	app.linkStore = postgres.NewPostgresLinkStore(db)
	app.mappingStore = postgres.NewPostgresMappingStore(db)
	app.inboxStore = postgres.NewPostgresInboxStore(db)
	app.eventStore = postgres.NewPostgresEventStore(db)
	app.planCache = postgres.NewPostgresPlanCacheStore(db)
	app.queue = postgres.NewPostgresQueue(db)

	// The rewriter is optional: without an API key every plan is served
	// deterministically.
	var rewriter planner.Rewriter
	if cfg.LLM.GeminiAPIKey != "" {
		geminiRewriter, err := gemini.NewRewriter(ctx, logger, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize plan rewriter: %w", err)
		}
		rewriter = geminiRewriter
		logger.Info("plan rewriter initialized", "model", cfg.LLM.ModelName)
	} else {
		logger.Info("plan rewriter disabled, no Gemini API key configured")
	}

	app.planService = planner.NewService(
		app.taskStore,
		app.goalStore,
		app.linkStore,
		app.planCache,
		app.eventStore,
		rewriter,
		planner.Config{
			TopNToday:           cfg.Planner.TopNToday,
			TopNNext:            cfg.Planner.TopNNext,
			WeightUrgency:       cfg.Planner.WeightUrgency,
			WeightImpact:        cfg.Planner.WeightImpact,
			WeightGoalAlignment: cfg.Planner.WeightGoalAlignment,
			WeightStaleness:     cfg.Planner.WeightStaleness,
		},
		logger,
	)

	// Both sync engines share one tracker client and retry settings that
	// mirror the dispatcher's, so failure events report accurate budgets.
	tracker := todoist.NewClient(cfg.Todoist)
	syncConfig := sync.Config{
		MaxAttempts: cfg.Worker.MaxAttempts,
		BackoffCap:  time.Duration(cfg.Worker.BackoffCapSeconds) * time.Second,
		PageSize:    cfg.Sync.ReconcilePageSize,
	}
	app.pushEngine = sync.NewPushEngine(
		db, app.mappingStore, app.eventStore, tracker, syncConfig, logger)
	app.reconcileEngine = sync.NewReconcileEngine(
		db, app.taskStore, app.mappingStore, app.eventStore, tracker, syncConfig, logger)

	app.compactor = compact.NewCompactor(
		db, app.inboxStore, app.taskStore, app.eventStore, cfg.Retention.TranscriptDays, logger)

	app.dispatcher = jobs.NewDispatcher(app.queue, app.eventStore, jobs.DispatcherConfig{
		MaxAttempts: cfg.Worker.MaxAttempts,
		PopTimeout:  time.Duration(cfg.Worker.PopTimeoutSeconds) * time.Second,
		BackoffCap:  time.Duration(cfg.Worker.BackoffCapSeconds) * time.Second,
	}, logger)
	app.registerHandlers()

	logger.Info("application initialized successfully")
	return app, nil
}

// registerHandlers binds every known topic to its handler.
func (app *application) registerHandlers() {
	app.dispatcher.Register(jobs.TopicPlanRefresh, app.handlePlanRefresh)
	app.dispatcher.Register(jobs.TopicTodoistSync, app.handleTodoistSync)
	app.dispatcher.Register(jobs.TopicTodoistReconcile, app.handleTodoistReconcile)
	app.dispatcher.Register(jobs.TopicMemoryCompact, app.handleMemoryCompact)
}

// Run consumes the job queue until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	return app.dispatcher.Run(ctx)
}

// handlePlanRefresh rebuilds the plan payload for the user in the job.
func (app *application) handlePlanRefresh(ctx context.Context, job jobs.Envelope) error {
	var payload struct {
		UserID string `json:"user_id"`
		ChatID string `json:"chat_id"`
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", job.Topic, err)
	}
	if payload.UserID == "" {
		return fmt.Errorf("%s payload missing user_id", job.Topic)
	}

	return app.planService.Refresh(ctx, payload.UserID, payload.ChatID)
}

// handleTodoistSync pushes the user's local task changes to the tracker.
func (app *application) handleTodoistSync(ctx context.Context, job jobs.Envelope) error {
	userID, err := requireUserID(job)
	if err != nil {
		return err
	}
	return app.pushEngine.Run(ctx, userID, job.Attempt)
}

// handleTodoistReconcile pulls remote tracker state back into local tasks.
func (app *application) handleTodoistReconcile(ctx context.Context, job jobs.Envelope) error {
	userID, err := requireUserID(job)
	if err != nil {
		return err
	}
	return app.reconcileEngine.Run(ctx, userID, job.Attempt)
}

// handleMemoryCompact prunes expired inbox items. The user id is optional;
// an empty one compacts every user.
func (app *application) handleMemoryCompact(ctx context.Context, job jobs.Envelope) error {
	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", job.Topic, err)
	}
	return app.compactor.Run(ctx, payload.UserID)
}

// requireUserID extracts the mandatory user_id from a job payload. A missing
// id is an error so the job follows the normal retry path and lands in the
// dead-letter queue where an operator can inspect it.
func requireUserID(job jobs.Envelope) (string, error) {
	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return "", fmt.Errorf("failed to decode %s payload: %w", job.Topic, err)
	}
	if payload.UserID == "" {
		return "", fmt.Errorf("%s payload missing user_id", job.Topic)
	}
	return payload.UserID, nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Close database connection
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
