package cron

import (
	"encoding/json"
	"fmt"
	"time"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/job"
)

// Entry is a recurring enqueue of one job.
type Entry struct {
	// Name identifies the entry in logs, hooks and the admin API.
	Name string `json:"name"`

	// Schedule is a cron expression (e.g., "*/5 * * * *" or "@every 30s").
	Schedule string `json:"schedule"`

	// Type is the job type enqueued on each tick.
	Type job.Type `json:"type"`

	// Payload is enqueued unchanged on every tick.
	Payload json.RawMessage `json:"payload,omitempty"`

	// MaxAttempts overrides the engine default when positive.
	MaxAttempts int `json:"maxAttempts,omitempty"`
}

func (e Entry) validate() error {
	if e.Name == "" {
		return fmt.Errorf("cron: entry name is required")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("cron: entry %q: %w: %q", e.Name, jobs.ErrUnknownJobType, e.Type)
	}
	if len(e.Payload) > 0 && !json.Valid(e.Payload) {
		return fmt.Errorf("cron: entry %q: %w", e.Name, jobs.ErrInvalidPayload)
	}
	if _, err := ParseSchedule(e.Schedule); err != nil {
		return fmt.Errorf("cron: entry %q: invalid schedule %q: %w", e.Name, e.Schedule, err)
	}
	return nil
}

func (e Entry) options() []job.Option {
	if e.MaxAttempts > 0 {
		return []job.Option{job.WithMaxAttempts(e.MaxAttempts)}
	}
	return nil
}

// EntryStatus describes a scheduled entry.
type EntryStatus struct {
	Entry
	NextRunAt *time.Time `json:"nextRunAt,omitempty"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty"`
	LastJobID string     `json:"lastJobId,omitempty"`
}
