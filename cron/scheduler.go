package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/KennethAtchon/Loctelli-sub005/job"
)

// ErrUnknownEntry is returned by Trigger for a name no entry carries.
var ErrUnknownEntry = errors.New("cron: unknown entry")

// EnqueueFunc is the callback the scheduler uses to enqueue jobs.
// engine.Engine.Enqueue satisfies it.
type EnqueueFunc func(ctx context.Context, t job.Type, payload any, opts ...job.Option) (string, error)

// Emitter emits cron lifecycle events.
// ext.Registry satisfies this interface via EmitCronFired.
type Emitter interface {
	EmitCronFired(ctx context.Context, entryName, jobID string)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// WithEmitter sets the hook emitter.
func WithEmitter(e Emitter) SchedulerOption {
	return func(s *Scheduler) { s.emitter = e }
}

// WithLocation sets the time zone schedules are evaluated in. Default UTC.
func WithLocation(loc *time.Location) SchedulerOption {
	return func(s *Scheduler) { s.location = loc }
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

type scheduled struct {
	entry   Entry
	id      cronlib.EntryID
	lastRun *time.Time
	lastJob string
}

// Scheduler fires its entries on their schedules.
type Scheduler struct {
	enqueue  EnqueueFunc
	emitter  Emitter
	logger   *slog.Logger
	location *time.Location

	cron *cronlib.Cron

	mu      sync.Mutex
	entries map[string]*scheduled
	order   []string
	running bool
}

// NewScheduler validates entries and returns a stopped Scheduler. Entry
// names must be unique.
func NewScheduler(entries []Entry, enqueue EnqueueFunc, opts ...SchedulerOption) (*Scheduler, error) {
	if enqueue == nil {
		return nil, fmt.Errorf("cron: enqueue func is required")
	}
	s := &Scheduler{
		enqueue:  enqueue,
		logger:   slog.Default(),
		location: time.UTC,
		entries:  make(map[string]*scheduled, len(entries)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cronlib.New(
		cronlib.WithParser(cronParser),
		cronlib.WithLocation(s.location),
		cronlib.WithChain(cronlib.SkipIfStillRunning(cronlib.DiscardLogger)),
	)

	for _, e := range entries {
		if err := e.validate(); err != nil {
			return nil, err
		}
		if _, dup := s.entries[e.Name]; dup {
			return nil, fmt.Errorf("cron: duplicate entry %q", e.Name)
		}
		sc := &scheduled{entry: e}
		entryID, err := s.cron.AddFunc(e.Schedule, func() { s.fire(context.Background(), sc) })
		if err != nil {
			return nil, fmt.Errorf("cron: entry %q: %w", e.Name, err)
		}
		sc.id = entryID
		s.entries[e.Name] = sc
		s.order = append(s.order, e.Name)
	}
	return s, nil
}

// Start begins firing entries. It returns immediately.
func (s *Scheduler) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("cron scheduler started", slog.Int("entries", len(s.order)))
	return nil
}

// Stop stops scheduling and waits for in-flight enqueues or ctx expiry.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("cron scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger fires the named entry now, outside its schedule.
func (s *Scheduler) Trigger(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	sc, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntry, name)
	}
	return s.fire(ctx, sc)
}

// Entries returns the entries in declaration order with their next and
// last run times.
func (s *Scheduler) Entries() []EntryStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]EntryStatus, 0, len(s.order))
	for _, name := range s.order {
		sc := s.entries[name]
		st := EntryStatus{Entry: sc.entry, LastJobID: sc.lastJob}
		if sc.lastRun != nil {
			t := *sc.lastRun
			st.LastRunAt = &t
		}
		if next := s.cron.Entry(sc.id).Next; !next.IsZero() {
			st.NextRunAt = &next
		}
		out = append(out, st)
	}
	return out
}

func (s *Scheduler) fire(ctx context.Context, sc *scheduled) (string, error) {
	e := sc.entry
	var payload any = json.RawMessage(`{}`)
	if len(e.Payload) > 0 {
		payload = e.Payload
	}

	jobID, err := s.enqueue(ctx, e.Type, payload, e.options()...)
	if err != nil {
		s.logger.Error("cron enqueue error",
			slog.String("cron_name", e.Name),
			slog.String("job_type", e.Type.String()),
			slog.String("error", err.Error()),
		)
		return "", err
	}

	now := time.Now().UTC()
	s.mu.Lock()
	sc.lastRun = &now
	sc.lastJob = jobID
	s.mu.Unlock()

	if s.emitter != nil {
		s.emitter.EmitCronFired(ctx, e.Name, jobID)
	}
	s.logger.Info("cron fired",
		slog.String("cron_name", e.Name),
		slog.String("job_type", e.Type.String()),
		slog.String("job_id", jobID),
	)
	return jobID, nil
}
