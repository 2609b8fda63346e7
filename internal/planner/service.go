package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/augur/internal/events"
	"github.com/phrazzld/augur/internal/platform/logger"
	"github.com/phrazzld/augur/internal/store"
)

// Service rebuilds plan payloads and caches them for consumers.
type Service struct {
	tasks    store.TaskStore
	goals    store.GoalStore
	links    store.LinkStore
	cache    store.PlanCacheStore
	sink     events.Sink
	rewriter Rewriter
	config   Config
	logger   *slog.Logger

	// now is swapped out in tests for deterministic payloads
	now func() time.Time
}

// NewService creates a plan refresh service. rewriter may be nil, in which
// case the deterministic payload is cached directly.
func NewService(
	tasks store.TaskStore,
	goals store.GoalStore,
	links store.LinkStore,
	cache store.PlanCacheStore,
	sink events.Sink,
	rewriter Rewriter,
	config Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		tasks:    tasks,
		goals:    goals,
		links:    links,
		cache:    cache,
		sink:     sink,
		rewriter: rewriter,
		config:   config,
		logger:   logger.With("component", "plan_service"),
		now:      time.Now,
	}
}

// Refresh rebuilds the plan for one user and upserts it into the plan
// cache. A failing or invalid rewrite falls back to the deterministic
// payload and is recorded as a plan_rewrite_fallback event, never as a
// job failure.
func (s *Service) Refresh(ctx context.Context, userID, chatID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With("user_id", userID)

	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}
	goals, err := s.goals.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load goals: %w", err)
	}
	links, err := s.links.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load links: %w", err)
	}

	now := s.now().UTC()
	payload := Build(Snapshot{Tasks: tasks, Goals: goals, Links: links}, now, s.config)
	raw, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal plan payload: %w", err)
	}

	final := raw
	rewritten := false
	if s.rewriter != nil {
		reworked, rwErr := s.rewriter.Rewrite(ctx, raw)
		if rwErr == nil {
			rwErr = ValidatePayload(reworked)
		}
		if rwErr != nil {
			s.fallback(ctx, log, userID, rwErr)
		} else {
			final = reworked
			rewritten = true
		}
	}

	entry := &store.PlanCacheEntry{
		UserID:      userID,
		ChatID:      chatID,
		Payload:     final,
		GeneratedAt: now,
	}
	if err := s.cache.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("failed to cache plan: %w", err)
	}

	log.Info("plan refreshed",
		"today_count", len(payload.TodayPlan),
		"next_count", len(payload.NextActions),
		"blocked_count", len(payload.BlockedItems),
		"rewritten", rewritten)
	return nil
}

// fallback records a rewrite failure and keeps the deterministic payload.
func (s *Service) fallback(ctx context.Context, log *slog.Logger, userID string, cause error) {
	log.Warn("plan rewrite failed, keeping deterministic payload", "error", cause.Error())

	event, err := events.New(events.RequestIDFromContext(ctx), userID, events.TypePlanRewriteFallback, map[string]any{
		"error":   cause.Error(),
		"context": "worker_plan_refresh",
	})
	if err != nil {
		log.Error("failed to build fallback event", "error", err)
		return
	}
	if err := s.sink.Emit(ctx, event); err != nil {
		log.Error("failed to emit fallback event", "error", err)
	}
}
