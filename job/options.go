package job

import "time"

// Options configures a single enqueue call.
type Options struct {
	// Delay defers visibility to workers. Zero means immediately visible.
	Delay time.Duration

	// MaxAttempts bounds store-level attempts, including the first.
	// Zero means the engine's retry policy default.
	MaxAttempts int

	// PriorityHint is advisory. Stores may move a job with a positive hint
	// to the front of its queue; no ordering guarantee is made.
	PriorityHint int
}

// Option is a functional option for an enqueue call.
type Option func(*Options)

// WithDelay defers the job by d.
func WithDelay(d time.Duration) Option {
	return func(o *Options) {
		o.Delay = d
	}
}

// WithMaxAttempts sets the total number of attempts for the job.
func WithMaxAttempts(n int) Option {
	return func(o *Options) {
		o.MaxAttempts = n
	}
}

// WithPriorityHint sets the advisory priority of the job.
func WithPriorityHint(p int) Option {
	return func(o *Options) {
		o.PriorityHint = p
	}
}

// Apply builds Options from defaultAttempts and opts.
func Apply(defaultAttempts int, opts ...Option) Options {
	o := Options{MaxAttempts: defaultAttempts}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = defaultAttempts
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	return o
}
