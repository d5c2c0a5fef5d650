package ext

import (
	"context"
	"time"

	"github.com/KennethAtchon/Loctelli-sub005/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// JobEnqueued is called after the store accepted a job.
type JobEnqueued interface {
	OnJobEnqueued(ctx context.Context, j *job.Job) error
}

// JobStarted is called when a worker claims a job, before processing.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobCompleted is called after a job's result has been stored.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobRetrying is called when the store scheduled another attempt.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, j *job.Job, err error, nextRunAt time.Time) error
}

// JobFailed is called when a job became terminally failed.
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// CronFired is called when a recurring entry enqueued a job.
type CronFired interface {
	OnCronFired(ctx context.Context, entryName, jobID string) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
