package job

import (
	"encoding/json"
	"time"
)

// Type selects the queue a job is placed on and the processor that runs it.
type Type string

// The closed set of job types the engine knows about.
const (
	TypeBulkSend    Type = "notification-bulk-send"
	TypeDataExport  Type = "data-export"
	TypeGenericTask Type = "generic-task"
)

// Types returns every known job type.
func Types() []Type {
	return []Type{TypeBulkSend, TypeDataExport, TypeGenericTask}
}

// Valid reports whether t is one of the known job types.
func (t Type) Valid() bool {
	switch t {
	case TypeBulkSend, TypeDataExport, TypeGenericTask:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// State is the store-native lifecycle state of a job. Callers never see it;
// the queue manager translates it with Canonical.
type State string

const (
	// StateWaiting means the job is visible to workers.
	StateWaiting State = "waiting"
	// StateDelayed means the job becomes visible at RunAt (initial delay
	// or retry backoff).
	StateDelayed State = "delayed"
	// StateActive means a worker has claimed the job.
	StateActive State = "active"
	// StateCompleted means the processor returned a result.
	StateCompleted State = "completed"
	// StateFailed means attempts are exhausted or the error was permanent.
	StateFailed State = "failed"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Job is one unit of deferred work. Jobs are mutated only by the store and
// by the worker that claimed them.
type Job struct {
	ID           string          `json:"id" msgpack:"id"`
	Type         Type            `json:"type" msgpack:"type"`
	Payload      json.RawMessage `json:"payload" msgpack:"payload"`
	State        State           `json:"state" msgpack:"state"`
	PriorityHint int             `json:"priority_hint,omitempty" msgpack:"priority_hint,omitempty"`
	MaxAttempts  int             `json:"max_attempts" msgpack:"max_attempts"`
	Attempts     int             `json:"attempts" msgpack:"attempts"`
	Progress     int             `json:"progress" msgpack:"progress"`
	Result       json.RawMessage `json:"result,omitempty" msgpack:"result,omitempty"`
	LastError    string          `json:"last_error,omitempty" msgpack:"last_error,omitempty"`
	WorkerID     string          `json:"worker_id,omitempty" msgpack:"worker_id,omitempty"`
	RunAt        time.Time       `json:"run_at" msgpack:"run_at"`
	CreatedAt    time.Time       `json:"created_at" msgpack:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty" msgpack:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty" msgpack:"completed_at,omitempty"`
	HeartbeatAt  *time.Time      `json:"heartbeat_at,omitempty" msgpack:"heartbeat_at,omitempty"`
}

// New builds a job of the given type from an encoded payload and options.
// The store assigns ID and State on Enqueue.
func New(t Type, payload json.RawMessage, o Options) *Job {
	now := time.Now().UTC()
	j := &Job{
		Type:         t,
		Payload:      payload,
		PriorityHint: o.PriorityHint,
		MaxAttempts:  o.MaxAttempts,
		RunAt:        now,
		CreatedAt:    now,
	}
	if o.Delay > 0 {
		j.RunAt = now.Add(o.Delay)
	}
	if j.MaxAttempts < 1 {
		j.MaxAttempts = 1
	}
	return j
}

// Clone returns a deep copy of j so that no two goroutines share a payload.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.Payload = cloneBytes(j.Payload)
	cp.Result = cloneBytes(j.Result)
	cp.StartedAt = cloneTime(j.StartedAt)
	cp.CompletedAt = cloneTime(j.CompletedAt)
	cp.HeartbeatAt = cloneTime(j.HeartbeatAt)
	return &cp
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
