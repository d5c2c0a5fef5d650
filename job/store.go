package job

import (
	"context"
	"time"
)

// Store is the durable queue store contract. It owns job state and the
// retry accounting: the engine only reports outcomes.
type Store interface {
	// Enqueue assigns an ID and persists j as waiting, or delayed when
	// RunAt is in the future.
	Enqueue(ctx context.Context, j *Job) error

	// Dequeue makes due delayed jobs of type t visible, then atomically
	// claims one waiting job, marks it active and increments Attempts.
	// It returns nil, nil when nothing is waiting. The returned job is the
	// caller's own copy.
	Dequeue(ctx context.Context, t Type, workerID string) (*Job, error)

	// Get returns the job, or jobs.ErrJobNotFound.
	Get(ctx context.Context, t Type, jobID string) (*Job, error)

	// Complete records result and moves the job to completed.
	Complete(ctx context.Context, j *Job, result []byte) error

	// Fail records cause. The job moves to delayed with RunAt = now+delay
	// while attempts remain and cause is not permanent, otherwise to
	// failed. The resulting state is returned.
	Fail(ctx context.Context, j *Job, cause error, delay time.Duration) (State, error)

	// Release returns an active job to waiting without consuming an
	// attempt.
	Release(ctx context.Context, j *Job) error

	// SetProgress records progress (0..100) for an active job.
	SetProgress(ctx context.Context, t Type, jobID string, pct int) error

	// Heartbeat refreshes the liveness timestamp of an active job.
	Heartbeat(ctx context.Context, t Type, jobID string) error

	// ReapStale resolves active jobs whose heartbeat is older than
	// threshold: back to waiting while attempts remain, otherwise failed
	// with LostWorkerError. It returns how many jobs were reaped.
	ReapStale(ctx context.Context, t Type, threshold time.Duration) (int, error)

	// Counts returns a snapshot of the queue of type t.
	Counts(ctx context.Context, t Type) (StatsView, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources owned by the store.
	Close() error
}

// LostWorkerError is the LastError recorded for a job whose worker stopped
// heartbeating after its final attempt.
const LostWorkerError = "worker lost (heartbeat expired)"

// ResolveFailure is the retry decision every store applies in Fail: the
// next state for a job whose attempt just failed.
func ResolveFailure(j *Job, permanent bool) State {
	if permanent || j.Attempts >= j.MaxAttempts {
		return StateFailed
	}
	return StateDelayed
}
