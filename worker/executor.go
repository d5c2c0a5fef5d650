// Package worker runs claimed jobs. The Executor is the catch boundary
// around one processor invocation; the Pool runs N polling goroutines for
// one job type plus heartbeat and stale-job reaping.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/ext"
	"github.com/KennethAtchon/Loctelli-sub005/job"
	"github.com/KennethAtchon/Loctelli-sub005/middleware"
)

// Executor runs one claimed job through the middleware chain and the bound
// processor, then reports the outcome to the store. It never retries by
// itself: the store applies the retry policy.
type Executor struct {
	processors *job.Registry
	extensions *ext.Registry
	store      job.Store
	retry      jobs.RetryPolicy
	mw         middleware.Middleware
	logger     *slog.Logger
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(
	processors *job.Registry,
	extensions *ext.Registry,
	store job.Store,
	retry jobs.RetryPolicy,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	return &Executor{
		processors: processors,
		extensions: extensions,
		store:      store,
		retry:      retry,
		mw:         middleware.Chain(mws...),
		logger:     logger,
	}
}

// Execute processes j. On success the result is stored and the job
// completes. On failure the error is handed to the store together with
// the backoff delay for the next attempt. A job interrupted because ctx
// was cancelled is released back to waiting without using up an attempt.
// The processor error is returned.
func (e *Executor) Execute(ctx context.Context, j *job.Job) error {
	start := time.Now()

	processor, ok := e.processors.Get(j.Type)
	if !ok {
		return e.handleFailure(ctx, j, jobs.Permanent(fmt.Errorf("%w: no processor for %q", jobs.ErrUnknownJobType, j.Type)))
	}

	ctx = job.WithProgress(ctx, func(ctx context.Context, pct int) error {
		return e.store.SetProgress(context.WithoutCancel(ctx), j.Type, j.ID, pct)
	})

	payload := j.Payload
	res, err := e.mw(ctx, j, func(ctx context.Context) (any, error) {
		return processor.Process(ctx, payload)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return e.handleInterrupted(ctx, j, err)
		}
		return e.handleFailure(ctx, j, err)
	}

	encoded, err := json.Marshal(res)
	if err != nil {
		return e.handleFailure(ctx, j, jobs.Permanent(fmt.Errorf("encode result: %w", err)))
	}
	return e.handleSuccess(ctx, j, encoded, time.Since(start))
}

func (e *Executor) handleSuccess(ctx context.Context, j *job.Job, result []byte, elapsed time.Duration) error {
	// Store writes survive cancellation of the job context at shutdown.
	sctx := context.WithoutCancel(ctx)
	if err := e.store.Complete(sctx, j, result); err != nil {
		e.logger.Error("failed to record job completion",
			slog.String("job_id", j.ID),
			slog.String("job_type", string(j.Type)),
			slog.String("error", err.Error()),
		)
		return err
	}
	e.extensions.EmitJobCompleted(sctx, j, elapsed)
	return nil
}

// handleInterrupted returns a job cancelled at shutdown to the queue with
// its attempt refunded.
func (e *Executor) handleInterrupted(ctx context.Context, j *job.Job, cause error) error {
	if err := e.store.Release(context.WithoutCancel(ctx), j); err != nil {
		e.logger.Error("failed to release interrupted job",
			slog.String("job_id", j.ID),
			slog.String("job_type", string(j.Type)),
			slog.String("error", err.Error()),
		)
		return cause
	}
	e.logger.Info("job released on shutdown",
		slog.String("job_id", j.ID),
		slog.String("job_type", string(j.Type)),
		slog.Int("attempt", j.Attempts),
	)
	return cause
}

func (e *Executor) handleFailure(ctx context.Context, j *job.Job, cause error) error {
	sctx := context.WithoutCancel(ctx)
	delay := e.retry.Delay(j.Attempts)

	state, err := e.store.Fail(sctx, j, cause, delay)
	if err != nil {
		e.logger.Error("failed to record job failure",
			slog.String("job_id", j.ID),
			slog.String("job_type", string(j.Type)),
			slog.String("cause", cause.Error()),
			slog.String("error", err.Error()),
		)
		return cause
	}

	if state == job.StateDelayed {
		e.extensions.EmitJobRetrying(sctx, j, cause, j.RunAt)
		e.logger.Info("job scheduled for retry",
			slog.String("job_id", j.ID),
			slog.String("job_type", string(j.Type)),
			slog.Int("attempt", j.Attempts),
			slog.Int("max_attempts", j.MaxAttempts),
			slog.Duration("delay", delay),
		)
		return cause
	}

	e.extensions.EmitJobFailed(sctx, j, cause)
	e.logger.Warn("job failed",
		slog.String("job_id", j.ID),
		slog.String("job_type", string(j.Type)),
		slog.Int("attempts", j.Attempts),
		slog.Bool("permanent", jobs.IsPermanent(cause)),
		slog.String("error", cause.Error()),
	)
	return cause
}
