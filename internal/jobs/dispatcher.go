package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/augur/internal/events"
	"github.com/phrazzld/augur/internal/platform/logger"
)

// HandlerFunc processes one job envelope. A nil return acknowledges the
// job; an error schedules a retry or, once attempts are exhausted, a move
// to the dead-letter queue.
type HandlerFunc func(ctx context.Context, job Envelope) error

// DispatcherConfig holds tunables for the dispatch loop.
type DispatcherConfig struct {
	// MaxAttempts is the delivery budget per job before dead-lettering
	MaxAttempts int

	// PopTimeout bounds each blocking queue wait
	PopTimeout time.Duration

	// BackoffCap is the upper bound for the exponential retry delay
	BackoffCap time.Duration
}

// DefaultDispatcherConfig returns a DispatcherConfig with the standard
// retry budget and wait times.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxAttempts: 5,
		PopTimeout:  5 * time.Second,
		BackoffCap:  60 * time.Second,
	}
}

// errorPause is how long the loop rests after a queue failure before
// polling again.
const errorPause = 5 * time.Second

// Dispatcher pops envelopes from the default queue and routes them to
// registered topic handlers. Failed jobs are retried with exponential
// backoff until their attempt budget runs out, then moved to the
// dead-letter queue. Every outcome is recorded as an audit event.
type Dispatcher struct {
	queue    Queue
	sink     events.Sink
	handlers map[string]HandlerFunc
	config   DispatcherConfig
	logger   *slog.Logger

	// sleep is swapped out in tests to avoid real backoff waits
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDispatcher creates a Dispatcher. Zero config fields fall back to
// DefaultDispatcherConfig values.
func NewDispatcher(queue Queue, sink events.Sink, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if config.MaxAttempts < 1 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.PopTimeout <= 0 {
		config.PopTimeout = defaults.PopTimeout
	}
	if config.BackoffCap <= 0 {
		config.BackoffCap = defaults.BackoffCap
	}

	return &Dispatcher{
		queue:    queue,
		sink:     sink,
		handlers: make(map[string]HandlerFunc),
		config:   config,
		logger:   logger.With("component", "dispatcher"),
		sleep:    sleepContext,
	}
}

// Register binds a handler to a topic. Registering the same topic twice
// panics, since it indicates a wiring bug in main.
func (d *Dispatcher) Register(topic string, handler HandlerFunc) {
	if _, dup := d.handlers[topic]; dup {
		panic(fmt.Sprintf("jobs: duplicate handler registration for topic %q", topic))
	}
	d.handlers[topic] = handler
}

// Run consumes the default queue until ctx is cancelled, returning the
// context's error. Queue failures are logged and followed by a short pause
// so a broken backend cannot spin the loop hot.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("worker loop started",
		"queue", DefaultQueue,
		"max_attempts", d.config.MaxAttempts)

	for {
		if err := ctx.Err(); err != nil {
			d.logger.Info("worker loop stopping", "reason", err.Error())
			return err
		}

		raw, ok, err := d.queue.Pop(ctx, DefaultQueue, d.config.PopTimeout)
		if err != nil {
			if ctx.Err() == nil {
				d.logger.Error("failed to pop from queue", "error", err)
				_ = d.sleep(ctx, errorPause)
			}
			continue
		}
		if !ok {
			continue
		}

		d.dispatch(ctx, raw)
	}
}

// dispatch decodes and processes one raw queue entry.
func (d *Dispatcher) dispatch(ctx context.Context, raw []byte) {
	env, err := Decode(raw)
	if err != nil {
		d.logger.Error("dropping undecodable job", "error", err)
		return
	}

	log := d.logger.With(
		"job_id", env.JobID,
		"topic", env.Topic,
		"attempt", env.Attempt)

	handler, ok := d.handlers[env.Topic]
	if !ok {
		// A routing mistake, not a transient failure. Never retried,
		// never dead-lettered.
		log.Warn("unknown topic, dropping job")
		return
	}

	log.Info("processing job")
	ctx = logger.WithLogger(ctx, log)
	ctx = events.WithRequestID(ctx, "job_"+env.JobID)

	if err := handler(ctx, env); err != nil {
		log.Error("job failed", "error", err)
		d.handleFailure(ctx, env, err)
		return
	}

	log.Info("job completed")
	d.emit(ctx, env, events.TypeWorkerTopicCompleted, map[string]any{
		"topic": env.Topic,
	})
}

// handleFailure reschedules a failed job with exponential backoff, or
// moves it to the dead-letter queue once its attempt budget is spent.
func (d *Dispatcher) handleFailure(ctx context.Context, env Envelope, cause error) {
	log := logger.FromContextOrDefault(ctx, d.logger)

	if env.Attempt >= d.config.MaxAttempts {
		d.emit(ctx, env, events.TypeWorkerMovedToDLQ, map[string]any{
			"topic":        env.Topic,
			"attempt":      env.Attempt,
			"max_attempts": d.config.MaxAttempts,
			"queue":        DeadLetterQueue,
		})

		raw, err := env.Encode()
		if err != nil {
			log.Error("failed to encode job for dead-letter queue", "error", err)
			return
		}
		if err := d.queue.Push(ctx, DeadLetterQueue, raw); err != nil {
			log.Error("failed to push job to dead-letter queue", "error", err)
			return
		}
		log.Warn("job moved to dead-letter queue")
		return
	}

	delay := BackoffDelay(env.Attempt, d.config.BackoffCap)
	d.emit(ctx, env, events.TypeWorkerRetryScheduled, map[string]any{
		"topic":         env.Topic,
		"attempt":       env.Attempt,
		"max_attempts":  d.config.MaxAttempts,
		"queue":         DefaultQueue,
		"delay_seconds": int(delay / time.Second),
		"error":         cause.Error(),
	})
	log.Info("retry scheduled", "delay_seconds", int(delay/time.Second))

	if err := d.sleep(ctx, delay); err != nil {
		// The envelope already left the queue; an interrupted backoff
		// drops the job.
		log.Warn("backoff interrupted, job not requeued", "error", err)
		return
	}

	next := env
	next.Attempt = env.Attempt + 1
	raw, err := next.Encode()
	if err != nil {
		log.Error("failed to encode job for retry", "error", err)
		return
	}
	if err := d.queue.Push(ctx, DefaultQueue, raw); err != nil {
		log.Error("failed to requeue job", "error", err)
	}
}

// emit writes an audit event attributed to the job's user. Sink failures
// are logged and swallowed; they never change a job's outcome.
func (d *Dispatcher) emit(ctx context.Context, env Envelope, eventType string, payload map[string]any) {
	event, err := events.New("job_"+env.JobID, env.UserID(), eventType, payload)
	if err != nil {
		d.logger.Error("failed to build event", "event_type", eventType, "error", err)
		return
	}
	if err := d.sink.Emit(ctx, event); err != nil {
		d.logger.Error("failed to emit event", "event_type", eventType, "error", err)
	}
}

// BackoffDelay returns min(2^attempt, limit) seconds. The sync engines use
// the same curve when they report the delay a failed job will wait before
// its next attempt.
func BackoffDelay(attempt int, limit time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d <= 0 || d > limit {
		return limit
	}
	return d
}

// sleepContext waits for d or until ctx is cancelled, whichever comes
// first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
