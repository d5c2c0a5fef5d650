// Command jobengine runs the background job engine: worker pools for every
// bound job type, the optional cron scheduler and the HTTP adapter.
//
// SMS delivery is logged rather than sent; embed the engine packages
// with a provider-backed bulk.Sender to deliver messages.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"github.com/KennethAtchon/Loctelli-sub005/api"
	"github.com/KennethAtchon/Loctelli-sub005/bulk"
	"github.com/KennethAtchon/Loctelli-sub005/config"
	"github.com/KennethAtchon/Loctelli-sub005/cron"
	"github.com/KennethAtchon/Loctelli-sub005/engine"
	"github.com/KennethAtchon/Loctelli-sub005/export"
	"github.com/KennethAtchon/Loctelli-sub005/job"
	"github.com/KennethAtchon/Loctelli-sub005/persistence/postgres"
	"github.com/KennethAtchon/Loctelli-sub005/store"
	"github.com/KennethAtchon/Loctelli-sub005/task"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("jobengine exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Job store.
	var rdb goredis.Cmdable
	if cfg.Redis.Driver == store.DriverRedis {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		rdb = client
	}
	jobStore, err := store.Open(store.Config{
		Driver:    cfg.Redis.Driver,
		Redis:     rdb,
		Prefix:    cfg.Redis.Prefix,
		Codec:     cfg.Redis.Codec,
		Retention: cfg.EngineConfig().Retention,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	if err := jobStore.Ping(ctx); err != nil {
		return fmt.Errorf("job store: %w", err)
	}

	// CRM database.
	var db *postgres.Store
	if cfg.Database.URL != "" {
		db, err = postgres.New(ctx, cfg.Database.URL,
			postgres.WithLogger(logger),
			postgres.WithMaxExportRows(cfg.Database.MaxExportRows),
		)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		if cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				return err
			}
		}
	} else {
		logger.Warn("no database configured: data export, cleanup and campaign bookkeeping are disabled")
	}

	// Processors. The notification builtin enqueues through the engine
	// built below.
	var eng *engine.Engine
	deps := task.Deps{
		Enqueuer: task.EnqueuerFunc(func(ctx context.Context, t job.Type, payload any, opts ...job.Option) (string, error) {
			return eng.Enqueue(ctx, t, payload, opts...)
		}),
	}
	bulkOpts := []bulk.Option{bulk.WithConfig(cfg.BulkConfig()), bulk.WithLogger(logger)}
	engOpts := []engine.Option{
		engine.WithConfig(cfg.EngineConfig()),
		engine.WithLogger(logger),
		engine.WithQueueConfig(cfg.QueueConfigs()...),
	}
	if db != nil {
		deps.Cleaner = db
		bulkOpts = append(bulkOpts, bulk.WithCampaignRecorder(db))
		engOpts = append(engOpts, engine.WithProcessor(job.TypeDataExport, export.NewProcessor(db, logger)))
	}

	registry, err := task.NewRegistry(task.Builtins(deps)...)
	if err != nil {
		return fmt.Errorf("task registry: %w", err)
	}
	engOpts = append(engOpts,
		engine.WithProcessor(job.TypeBulkSend, bulk.NewPipeline(bulk.LogSender{Logger: logger}, bulkOpts...)),
		engine.WithTaskRegistry(registry),
	)

	eng, err = engine.New(jobStore, engOpts...)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	// Scheduler.
	var sched *cron.Scheduler
	apiOpts := []api.Option{api.WithLogger(logger)}
	if cfg.Scheduler.Enabled {
		sched, err = cron.NewScheduler(cfg.CronEntries(), eng.Enqueue,
			cron.WithLogger(logger),
			cron.WithEmitter(eng.Extensions()),
		)
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		apiOpts = append(apiOpts, api.WithScheduler(sched))
	}

	// HTTP adapter.
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.New(eng, apiOpts...).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}

	return shutdown(cfg, logger, srv, sched, eng)
}

func shutdown(cfg *config.Config, logger *slog.Logger, srv *http.Server, sched *cron.Scheduler, eng *engine.Engine) error {
	httpCtx, cancelHTTP := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelHTTP()
	var errs []error
	if err := srv.Shutdown(httpCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	engCtx, cancelEng := context.WithTimeout(context.Background(), cfg.Engine.ShutdownTimeout)
	defer cancelEng()
	if sched != nil {
		if err := sched.Stop(engCtx); err != nil {
			errs = append(errs, fmt.Errorf("cron shutdown: %w", err))
		}
	}
	if err := eng.Stop(engCtx); err != nil {
		errs = append(errs, fmt.Errorf("engine shutdown: %w", err))
	}

	logger.Info("jobengine stopped")
	return errors.Join(errs...)
}
