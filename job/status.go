package job

import (
	"encoding/json"
	"time"
)

// Status is the canonical job status exposed to callers.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusNotFound   Status = "not_found"
	StatusError      Status = "error"
)

// canonical is the fixed store-native to canonical mapping.
var canonical = map[State]Status{
	StateWaiting:   StatusPending,
	StateDelayed:   StatusPending,
	StateActive:    StatusProcessing,
	StateCompleted: StatusCompleted,
	StateFailed:    StatusFailed,
}

// Canonical maps a store-native state to its canonical status. States the
// table does not know map to StatusError.
func Canonical(s State) Status {
	if st, ok := canonical[s]; ok {
		return st
	}
	return StatusError
}

// StatusView is what a caller polling a job sees.
type StatusView struct {
	JobID       string          `json:"jobId"`
	Type        Type            `json:"type,omitempty"`
	Status      Status          `json:"status"`
	Progress    int             `json:"progress"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Attempts    int             `json:"attempts,omitempty"`
	MaxAttempts int             `json:"maxAttempts,omitempty"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// View builds the canonical status view of j. Result is only populated
// for completed jobs and Error only for failed ones.
func View(j *Job) StatusView {
	created := j.CreatedAt
	v := StatusView{
		JobID:       j.ID,
		Type:        j.Type,
		Status:      Canonical(j.State),
		Progress:    j.Progress,
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		CreatedAt:   &created,
		CompletedAt: cloneTime(j.CompletedAt),
	}
	switch v.Status {
	case StatusCompleted:
		v.Result = cloneBytes(j.Result)
	case StatusFailed:
		v.Error = j.LastError
	case StatusError:
		v.Error = "unrecognized store state " + string(j.State)
	}
	return v
}

// StatsView is a point-in-time snapshot of one queue. The counters may be
// read at slightly different instants.
type StatsView struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Delayed   int64 `json:"delayed"`
}
