package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/ext"
	"github.com/KennethAtchon/Loctelli-sub005/job"
	mw "github.com/KennethAtchon/Loctelli-sub005/middleware"
	"github.com/KennethAtchon/Loctelli-sub005/observability"
	"github.com/KennethAtchon/Loctelli-sub005/queue"
	"github.com/KennethAtchon/Loctelli-sub005/task"
	"github.com/KennethAtchon/Loctelli-sub005/worker"
)

const instrumentationName = "github.com/KennethAtchon/Loctelli-sub005"

type binding struct {
	t job.Type
	p job.Processor
}

// Engine is the queue manager.
type Engine struct {
	store      job.Store
	config     jobs.Config
	processors *job.Registry
	tasks      *task.Registry
	extensions *ext.Registry
	executor   *worker.Executor
	logger     *slog.Logger

	bindings []binding
	userExts []ext.Extension
	mws      []mw.Middleware

	queueConfigs []queue.Config
	queueManager *queue.Manager

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	mu      sync.Mutex
	running bool
	pools   []*worker.Pool
}

// Option configures an Engine.
type Option func(*Engine)

// WithProcessor binds p to job type t. Each type may be bound once.
func WithProcessor(t job.Type, p job.Processor) Option {
	return func(e *Engine) {
		e.bindings = append(e.bindings, binding{t: t, p: p})
	}
}

// WithTaskRegistry binds the generic-task processor over r and enables
// ExecuteTask and ExecuteServiceMethod.
func WithTaskRegistry(r *task.Registry) Option {
	return func(e *Engine) { e.tasks = r }
}

// WithConfig sets the engine configuration.
func WithConfig(cfg jobs.Config) Option {
	return func(e *Engine) { e.config = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithExtension registers a lifecycle extension.
func WithExtension(x ext.Extension) Option {
	return func(e *Engine) { e.userExts = append(e.userExts, x) }
}

// WithMiddleware appends middleware after the built-in chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(e *Engine) { e.mws = append(e.mws, m) }
}

// WithQueueConfig registers per-type rate and concurrency limits.
func WithQueueConfig(configs ...queue.Config) Option {
	return func(e *Engine) { e.queueConfigs = append(e.queueConfigs, configs...) }
}

// WithTracerProvider sets the TracerProvider used by the tracing
// middleware. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracerProvider = tp }
}

// WithMeterProvider sets the MeterProvider used by the metrics middleware
// and the observability extension. The global provider is used otherwise.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.meterProvider = mp }
}

// New builds an engine over store. Binding errors (unknown type, duplicate
// binding) are returned here, before any job is accepted.
func New(store job.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, jobs.ErrNoStore
	}

	e := &Engine{
		store:      store,
		config:     jobs.DefaultConfig(),
		processors: job.NewRegistry(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.config.Retry.MaxAttempts < 1 {
		e.config.Retry.MaxAttempts = jobs.DefaultRetryPolicy().MaxAttempts
	}
	if e.config.Retry.Backoff == nil {
		e.config.Retry.Backoff = jobs.DefaultRetryPolicy().Backoff
	}

	if e.tasks != nil {
		e.bindings = append(e.bindings, binding{t: job.TypeGenericTask, p: task.NewProcessor(e.tasks, e.logger)})
	}
	for _, b := range e.bindings {
		if err := e.processors.Bind(b.t, b.p); err != nil {
			return nil, err
		}
	}

	e.extensions = ext.NewRegistry(e.logger)
	for _, x := range e.userExts {
		e.extensions.Register(x)
	}

	var (
		tracingMw mw.Middleware
		metricsMw mw.Middleware
		obsExt    *observability.MetricsExtension
	)
	if e.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(e.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}
	if e.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(e.meterProvider.Meter(instrumentationName))
		obsExt = observability.NewMetricsExtensionWithMeter(e.meterProvider.Meter(instrumentationName + "/observability"))
	} else {
		metricsMw = mw.Metrics()
		obsExt = observability.NewMetricsExtension()
	}
	e.extensions.Register(obsExt)

	// recover → tracing → metrics → logging → user middleware.
	chain := []mw.Middleware{
		mw.Recover(e.logger),
		tracingMw,
		metricsMw,
		mw.Logging(e.logger),
	}
	chain = append(chain, e.mws...)

	e.executor = worker.NewExecutor(e.processors, e.extensions, e.store, e.config.Retry, e.logger, chain...)

	if len(e.queueConfigs) > 0 {
		e.queueManager = queue.NewManager(e.queueConfigs...)
	}
	return e, nil
}

// Enqueue submits a job of type t and returns its id as soon as the
// store has accepted it. payload is encoded as JSON; json.RawMessage is
// stored as is.
func (e *Engine) Enqueue(ctx context.Context, t job.Type, payload any, opts ...job.Option) (string, error) {
	if _, ok := e.processors.Get(t); !ok {
		return "", fmt.Errorf("%w: %q", jobs.ErrUnknownJobType, t)
	}

	raw, err := encodePayload(payload)
	if err != nil {
		return "", err
	}

	j := job.New(t, raw, job.Apply(e.config.Retry.MaxAttempts, opts...))
	if err := e.store.Enqueue(ctx, j); err != nil {
		if !errors.Is(err, jobs.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %w", jobs.ErrStoreUnavailable, err)
		}
		return "", fmt.Errorf("enqueue %s: %w", t, err)
	}

	e.extensions.EmitJobEnqueued(ctx, j)
	e.logger.Debug("job enqueued",
		slog.String("job_id", j.ID),
		slog.String("job_type", string(t)),
		slog.Int("max_attempts", j.MaxAttempts),
	)
	return j.ID, nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, fmt.Errorf("%w: payload is not valid JSON", jobs.ErrInvalidPayload)
		}
		return raw, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jobs.ErrInvalidPayload, err)
	}
	return raw, nil
}

// GetStatus reports the canonical status of a job. It never fails: a
// missing job is not_found and a store fault is error.
func (e *Engine) GetStatus(ctx context.Context, t job.Type, jobID string) job.StatusView {
	if !t.Valid() {
		return job.StatusView{JobID: jobID, Type: t, Status: job.StatusNotFound}
	}

	j, err := e.store.Get(ctx, t, jobID)
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		return job.StatusView{JobID: jobID, Type: t, Status: job.StatusNotFound}
	case err != nil:
		e.logger.Error("job status lookup failed",
			slog.String("job_id", jobID),
			slog.String("job_type", string(t)),
			slog.String("error", err.Error()),
		)
		return job.StatusView{JobID: jobID, Type: t, Status: job.StatusError, Error: err.Error()}
	}
	return job.View(j)
}

// GetStats returns a point-in-time snapshot of the queue for type t.
func (e *Engine) GetStats(ctx context.Context, t job.Type) (job.StatsView, error) {
	if !t.Valid() {
		return job.StatsView{}, fmt.Errorf("%w: %q", jobs.ErrUnknownJobType, t)
	}
	stats, err := e.store.Counts(ctx, t)
	if err != nil {
		return job.StatsView{}, fmt.Errorf("stats %s: %w", t, err)
	}
	return stats, nil
}

// ExecuteTask enqueues a generic-task job invoking the standalone function
// functionName. An unregistered function is rejected before enqueueing.
func (e *Engine) ExecuteTask(ctx context.Context, taskName, functionName string, args []any, tc task.Context, opts ...job.Option) (string, error) {
	return e.executeGeneric(ctx, task.Payload{
		TaskName:     taskName,
		FunctionName: functionName,
		Context:      tc,
	}, args, opts)
}

// ExecuteServiceMethod enqueues a generic-task job invoking methodName on
// targetName. An unregistered target or method is rejected before
// enqueueing with an error listing what is registered.
func (e *Engine) ExecuteServiceMethod(ctx context.Context, taskName, targetName, methodName string, args []any, tc task.Context, opts ...job.Option) (string, error) {
	return e.executeGeneric(ctx, task.Payload{
		TaskName:   taskName,
		TargetName: targetName,
		MethodName: methodName,
		Context:    tc,
	}, args, opts)
}

func (e *Engine) executeGeneric(ctx context.Context, p task.Payload, args []any, opts []job.Option) (string, error) {
	if e.tasks == nil {
		return "", fmt.Errorf("%w: no task registry configured", jobs.ErrTaskNotRegistered)
	}
	if err := e.tasks.Check(p); err != nil {
		return "", err
	}
	encoded, err := task.NewArgs(args...)
	if err != nil {
		return "", err
	}
	p.Args = encoded
	return e.Enqueue(ctx, job.TypeGenericTask, p, opts...)
}

// Start launches one worker pool per bound job type. It returns
// immediately.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil
	}

	for _, t := range e.processors.Types() {
		poolOpts := []worker.PoolOption{
			worker.WithPoolConcurrency(e.config.ConcurrencyFor(string(t))),
			worker.WithPollInterval(e.config.PollInterval),
			worker.WithHeartbeatInterval(e.config.HeartbeatInterval),
			worker.WithStaleJobThreshold(e.config.StaleJobThreshold),
		}
		if e.queueManager != nil {
			poolOpts = append(poolOpts, worker.WithQueueManager(e.queueManager))
		}
		pool := worker.NewPool(t, e.store, e.executor, e.extensions, e.logger, poolOpts...)
		if err := pool.Start(ctx); err != nil {
			return fmt.Errorf("start %s workers: %w", t, err)
		}
		e.pools = append(e.pools, pool)
	}

	e.running = true
	e.logger.Info("queue manager started", slog.Int("pools", len(e.pools)))
	return nil
}

// Stop stops every pool, waiting for in-flight jobs until ctx expires,
// then notifies extensions and closes the store.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	pools := e.pools
	e.pools = nil
	e.running = false
	e.mu.Unlock()

	var g errgroup.Group
	for _, pool := range pools {
		g.Go(func() error { return pool.Stop(ctx) })
	}
	err := g.Wait()

	e.extensions.EmitShutdown(ctx)

	if closeErr := e.store.Close(); closeErr != nil {
		e.logger.Error("store close error", slog.String("error", closeErr.Error()))
		if err == nil {
			err = closeErr
		}
	}
	e.logger.Info("queue manager stopped")
	return err
}

// Ping checks that the store is reachable.
func (e *Engine) Ping(ctx context.Context) error { return e.store.Ping(ctx) }

// Types returns the job types with a bound processor.
func (e *Engine) Types() []job.Type { return e.processors.Types() }

// Extensions returns the extension registry.
func (e *Engine) Extensions() *ext.Registry { return e.extensions }

// Tasks returns the task registry, or nil if none was configured.
func (e *Engine) Tasks() *task.Registry { return e.tasks }

// QueueManager returns the queue manager, or nil if no queue configs
// were provided.
func (e *Engine) QueueManager() *queue.Manager { return e.queueManager }

// Config returns the effective configuration.
func (e *Engine) Config() jobs.Config { return e.config }
