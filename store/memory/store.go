// Package memory implements job.Store in process memory. It mirrors the
// Redis store's semantics (FIFO waiting list, delayed set, retention) and
// is intended for tests and single-process development.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/id"
	"github.com/KennethAtchon/Loctelli-sub005/job"
)

var _ job.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithRetention bounds the terminal jobs kept per type.
func WithRetention(r jobs.Retention) Option {
	return func(s *Store) { s.retention = r }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type queue struct {
	waiting   []string
	delayed   map[string]struct{}
	active    map[string]struct{}
	completed []string
	failed    []string
}

func newQueue() *queue {
	return &queue{
		delayed: make(map[string]struct{}),
		active:  make(map[string]struct{}),
	}
}

// Store is a fully in-memory job.Store. Safe for concurrent access.
type Store struct {
	mu        sync.Mutex
	jobs      map[string]*job.Job
	queues    map[job.Type]*queue
	retention jobs.Retention
	now       func() time.Time
	closed    bool
}

// New returns a new empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		jobs:      make(map[string]*job.Job),
		queues:    make(map[job.Type]*queue),
		retention: jobs.DefaultRetention(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func key(t job.Type, jobID string) string { return string(t) + "/" + jobID }

func (s *Store) queue(t job.Type) *queue {
	q, ok := s.queues[t]
	if !ok {
		q = newQueue()
		s.queues[t] = q
	}
	return q
}

// Ping fails once the store is closed.
func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return jobs.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Subsequent calls fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Enqueue assigns an id and stores j as waiting or delayed.
func (s *Store) Enqueue(_ context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return jobs.ErrStoreClosed
	}

	j.ID = id.NewJobID()
	now := s.now()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	if j.RunAt.IsZero() {
		j.RunAt = now
	}

	q := s.queue(j.Type)
	if j.RunAt.After(now) {
		j.State = job.StateDelayed
		q.delayed[j.ID] = struct{}{}
	} else {
		j.State = job.StateWaiting
		s.pushWaiting(q, j)
	}
	s.jobs[key(j.Type, j.ID)] = j.Clone()
	return nil
}

// pushWaiting appends to the tail, or puts hinted jobs at the head.
func (s *Store) pushWaiting(q *queue, j *job.Job) {
	if j.PriorityHint > 0 {
		q.waiting = append([]string{j.ID}, q.waiting...)
		return
	}
	q.waiting = append(q.waiting, j.ID)
}

// promote moves due delayed jobs to waiting in RunAt order.
func (s *Store) promote(t job.Type, q *queue, now time.Time) {
	if len(q.delayed) == 0 {
		return
	}
	due := make([]*job.Job, 0)
	for jobID := range q.delayed {
		j := s.jobs[key(t, jobID)]
		if j != nil && !j.RunAt.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, k int) bool { return due[i].RunAt.Before(due[k].RunAt) })
	for _, j := range due {
		delete(q.delayed, j.ID)
		j.State = job.StateWaiting
		s.pushWaiting(q, j)
	}
}

// Dequeue claims the next waiting job of type t.
func (s *Store) Dequeue(_ context.Context, t job.Type, workerID string) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, jobs.ErrStoreClosed
	}

	now := s.now()
	q := s.queue(t)
	s.promote(t, q, now)

	for len(q.waiting) > 0 {
		jobID := q.waiting[0]
		q.waiting = q.waiting[1:]
		j := s.jobs[key(t, jobID)]
		if j == nil {
			continue
		}
		j.State = job.StateActive
		j.Attempts++
		j.WorkerID = workerID
		started := now
		j.StartedAt = &started
		hb := now
		j.HeartbeatAt = &hb
		q.active[jobID] = struct{}{}
		return j.Clone(), nil
	}
	return nil, nil
}

// Get returns a copy of the job.
func (s *Store) Get(_ context.Context, t job.Type, jobID string) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, jobs.ErrStoreClosed
	}
	j, ok := s.jobs[key(t, jobID)]
	if !ok {
		return nil, jobs.ErrJobNotFound
	}
	return j.Clone(), nil
}

// activeJob returns the stored job if it is still claimed.
func (s *Store) activeJob(t job.Type, jobID string) (*job.Job, *queue, error) {
	if s.closed {
		return nil, nil, jobs.ErrStoreClosed
	}
	j, ok := s.jobs[key(t, jobID)]
	if !ok {
		return nil, nil, jobs.ErrJobNotFound
	}
	q := s.queue(t)
	if _, ok := q.active[jobID]; !ok {
		return nil, nil, fmt.Errorf("%w: job %s is %s", jobs.ErrInvalidState, jobID, j.State)
	}
	return j, q, nil
}

// Complete stores result and moves the job to completed.
func (s *Store) Complete(_ context.Context, j *job.Job, result []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, q, err := s.activeJob(j.Type, j.ID)
	if err != nil {
		return err
	}
	now := s.now()
	delete(q.active, j.ID)
	stored.State = job.StateCompleted
	stored.Result = append([]byte(nil), result...)
	stored.Progress = 100
	stored.CompletedAt = &now
	stored.HeartbeatAt = nil
	q.completed = s.retain(j.Type, append(q.completed, j.ID), s.retention.Completed)

	*j = *stored.Clone()
	return nil
}

// Fail records cause and either schedules a retry or fails the job.
func (s *Store) Fail(_ context.Context, j *job.Job, cause error, delay time.Duration) (job.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, q, err := s.activeJob(j.Type, j.ID)
	if err != nil {
		return "", err
	}
	now := s.now()
	delete(q.active, j.ID)
	stored.LastError = cause.Error()
	stored.HeartbeatAt = nil
	stored.WorkerID = ""

	next := job.ResolveFailure(stored, jobs.IsPermanent(cause))
	stored.State = next
	if next == job.StateDelayed {
		stored.RunAt = now.Add(delay)
		q.delayed[j.ID] = struct{}{}
	} else {
		stored.CompletedAt = &now
		q.failed = s.retain(j.Type, append(q.failed, j.ID), s.retention.Failed)
	}

	*j = *stored.Clone()
	return next, nil
}

// retain drops the oldest ids beyond limit and deletes their records.
func (s *Store) retain(t job.Type, ids []string, limit int) []string {
	if limit <= 0 || len(ids) <= limit {
		return ids
	}
	drop := len(ids) - limit
	for _, jobID := range ids[:drop] {
		delete(s.jobs, key(t, jobID))
	}
	return slices.Clone(ids[drop:])
}

// Release puts an active job back at the head of its queue and refunds
// the attempt consumed by Dequeue.
func (s *Store) Release(_ context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, q, err := s.activeJob(j.Type, j.ID)
	if err != nil {
		return err
	}
	delete(q.active, j.ID)
	stored.State = job.StateWaiting
	stored.Attempts = max(stored.Attempts-1, 0)
	stored.StartedAt = nil
	stored.HeartbeatAt = nil
	stored.WorkerID = ""
	q.waiting = append([]string{j.ID}, q.waiting...)
	return nil
}

// SetProgress records progress for an active job.
func (s *Store) SetProgress(_ context.Context, t job.Type, jobID string, pct int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, _, err := s.activeJob(t, jobID)
	if err != nil {
		return err
	}
	stored.Progress = min(max(pct, 0), 100)
	return nil
}

// Heartbeat refreshes the liveness timestamp of an active job.
func (s *Store) Heartbeat(_ context.Context, t job.Type, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, _, err := s.activeJob(t, jobID)
	if err != nil {
		return err
	}
	now := s.now()
	stored.HeartbeatAt = &now
	return nil
}

// ReapStale resolves active jobs with an expired heartbeat. The attempt
// they consumed is kept, so a job on its last attempt fails instead of
// being requeued.
func (s *Store) ReapStale(_ context.Context, t job.Type, threshold time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, jobs.ErrStoreClosed
	}

	now := s.now()
	cutoff := now.Add(-threshold)
	q := s.queue(t)
	stale := make([]*job.Job, 0)
	for jobID := range q.active {
		j := s.jobs[key(t, jobID)]
		if j != nil && j.HeartbeatAt != nil && j.HeartbeatAt.Before(cutoff) {
			stale = append(stale, j)
		}
	}
	sort.Slice(stale, func(i, k int) bool { return stale[i].HeartbeatAt.Before(*stale[k].HeartbeatAt) })
	for _, j := range stale {
		delete(q.active, j.ID)
		j.HeartbeatAt = nil
		j.WorkerID = ""
		if job.ResolveFailure(j, false) == job.StateFailed {
			j.State = job.StateFailed
			j.LastError = job.LostWorkerError
			j.CompletedAt = &now
			q.failed = s.retain(t, append(q.failed, j.ID), s.retention.Failed)
			continue
		}
		j.State = job.StateWaiting
		j.StartedAt = nil
		q.waiting = append(q.waiting, j.ID)
	}
	return len(stale), nil
}

// Counts returns the queue snapshot for type t.
func (s *Store) Counts(_ context.Context, t job.Type) (job.StatsView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return job.StatsView{}, jobs.ErrStoreClosed
	}
	q := s.queue(t)
	return job.StatsView{
		Waiting:   int64(len(q.waiting)),
		Active:    int64(len(q.active)),
		Succeeded: int64(len(q.completed)),
		Failed:    int64(len(q.failed)),
		Delayed:   int64(len(q.delayed)),
	}, nil
}
