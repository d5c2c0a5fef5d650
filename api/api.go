package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/KennethAtchon/Loctelli-sub005/cron"
	"github.com/KennethAtchon/Loctelli-sub005/job"
	"github.com/KennethAtchon/Loctelli-sub005/task"
)

// Engine is the queue manager surface the API drives.
// engine.Engine satisfies it.
type Engine interface {
	Enqueue(ctx context.Context, t job.Type, payload any, opts ...job.Option) (string, error)
	GetStatus(ctx context.Context, t job.Type, jobID string) job.StatusView
	GetStats(ctx context.Context, t job.Type) (job.StatsView, error)
	ExecuteTask(ctx context.Context, taskName, functionName string, args []any, tc task.Context, opts ...job.Option) (string, error)
	ExecuteServiceMethod(ctx context.Context, taskName, targetName, methodName string, args []any, tc task.Context, opts ...job.Option) (string, error)
	Ping(ctx context.Context) error
}

// Scheduler is the cron surface the API exposes.
// cron.Scheduler satisfies it.
type Scheduler interface {
	Entries() []cron.EntryStatus
	Trigger(ctx context.Context, name string) (string, error)
}

// Option configures an API.
type Option func(*API)

// WithScheduler enables the cron routes.
func WithScheduler(s Scheduler) Option {
	return func(a *API) { a.scheduler = s }
}

// WithLogger sets the API logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.logger = l }
}

// API wires the HTTP handlers to an Engine.
type API struct {
	eng       Engine
	scheduler Scheduler
	validate  *validator.Validate
	logger    *slog.Logger
}

// New creates an API.
func New(eng Engine, opts ...Option) *API {
	a := &API{
		eng:      eng,
		validate: validator.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	a.RegisterRoutes(r)

	return otelhttp.NewHandler(r, "jobengine.api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// RegisterRoutes registers all routes on r.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", a.health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/jobs/{type}", a.enqueue)
		r.Get("/jobs/{type}/{jobId}", a.getStatus)
		r.Get("/queues/{type}/stats", a.getStats)

		r.Post("/tasks", a.executeTask)
		r.Post("/tasks/service", a.executeServiceMethod)

		if a.scheduler != nil {
			r.Get("/crons", a.listCrons)
			r.Post("/crons/{name}/trigger", a.triggerCron)
		}
	})
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	if err := a.eng.Ping(r.Context()); err != nil {
		a.logger.Warn("health check failed", slog.String("error", err.Error()))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
