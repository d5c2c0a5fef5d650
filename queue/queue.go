package queue

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/KennethAtchon/Loctelli-sub005/job"
)

// Config defines admission limits for one job type.
type Config struct {
	// Type is the job type the limits apply to.
	Type job.Type

	// MaxConcurrency limits how many jobs of this type may run at once in
	// this process, below the pool's worker count. Zero means no extra
	// limit.
	MaxConcurrency int

	// RatePerMinute is the sustained number of jobs per minute that may
	// start. Zero disables rate limiting.
	RatePerMinute float64

	// Burst is the token-bucket burst size. Defaults to 1 when
	// RatePerMinute is set.
	Burst int
}

type typeState struct {
	config  Config
	limiter *rate.Limiter
	active  int
}

func newTypeState(cfg Config) *typeState {
	ts := &typeState{config: cfg}
	if cfg.RatePerMinute > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		ts.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerMinute/60), burst)
	}
	return ts
}

// Manager gates job starts per type. It is safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	types map[job.Type]*typeState
}

// NewManager creates a Manager. Types without a Config have no limits.
func NewManager(configs ...Config) *Manager {
	m := &Manager{types: make(map[job.Type]*typeState, len(configs))}
	for _, cfg := range configs {
		m.types[cfg.Type] = newTypeState(cfg)
	}
	return m
}

// Acquire reports whether a job of type t may start now. On true the
// caller MUST call Release when the job finishes.
func (m *Manager) Acquire(t job.Type) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.types[t]
	if ts == nil {
		return true
	}
	if ts.config.MaxConcurrency > 0 && ts.active >= ts.config.MaxConcurrency {
		return false
	}
	if ts.limiter != nil && !ts.limiter.Allow() {
		return false
	}
	ts.active++
	return true
}

// Release frees the slot taken by a successful Acquire.
func (m *Manager) Release(t job.Type) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts := m.types[t]; ts != nil && ts.active > 0 {
		ts.active--
	}
}

// Configure replaces (or adds) the limits for cfg.Type, keeping the
// current active count.
func (m *Manager) Configure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := newTypeState(cfg)
	if existing := m.types[cfg.Type]; existing != nil {
		ts.active = existing.active
	}
	m.types[cfg.Type] = ts
}

// ActiveCount returns the number of admitted, unreleased jobs of type t.
func (m *Manager) ActiveCount(t job.Type) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts := m.types[t]; ts != nil {
		return ts.active
	}
	return 0
}
