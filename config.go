package jobs

import (
	"time"

	"github.com/KennethAtchon/Loctelli-sub005/backoff"
)

// Config holds configuration for the queue manager and its worker pools.
type Config struct {
	// Concurrency is the number of jobs processed concurrently per type.
	Concurrency int

	// TypeConcurrency overrides Concurrency for individual job types.
	TypeConcurrency map[string]int

	// PollInterval is how often an idle worker polls its queue.
	PollInterval time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration

	// HeartbeatInterval is how often active jobs send heartbeats.
	HeartbeatInterval time.Duration

	// StaleJobThreshold is how long before an active job without a
	// heartbeat is returned to its queue.
	StaleJobThreshold time.Duration

	// Retry controls store-level retries of failed processor invocations.
	Retry RetryPolicy

	// Retention bounds how many terminal jobs the store keeps per type.
	Retention Retention
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:       5,
		PollInterval:      1 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		HeartbeatInterval: 10 * time.Second,
		StaleJobThreshold: 2 * time.Minute,
		Retry:             DefaultRetryPolicy(),
		Retention:         DefaultRetention(),
	}
}

// ConcurrencyFor returns the worker count for the given job type.
func (c Config) ConcurrencyFor(jobType string) int {
	if n, ok := c.TypeConcurrency[jobType]; ok && n > 0 {
		return n
	}
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return 1
}

// RetryPolicy is the explicit retry configuration applied by the store
// when a processor returns an error.
type RetryPolicy struct {
	// MaxAttempts is the default total number of attempts for a job,
	// including the first. Per-job options override it.
	MaxAttempts int

	// Backoff computes the delay before the next attempt. Attempt n is
	// the number of attempts already consumed.
	Backoff backoff.Strategy
}

// DefaultRetryPolicy returns three attempts with exponential backoff
// starting at two seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     backoff.NewExponential(2*time.Second, time.Minute),
	}
}

// Delay returns the wait before the attempt following attempt n.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff.Delay(attempt)
}

// Retention bounds the number of terminal jobs kept per job type.
type Retention struct {
	Completed int
	Failed    int
}

// DefaultRetention keeps the last 100 completed and 500 failed jobs.
func DefaultRetention() Retention {
	return Retention{Completed: 100, Failed: 500}
}
