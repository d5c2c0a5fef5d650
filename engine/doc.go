// Package engine is the queue manager. It binds one processor per job
// type, enqueues work, answers status and stats queries in the canonical
// vocabulary and owns the per-type worker pools.
//
// The package sits above the subsystem packages so that the root jobs
// package, which they all import, never imports them back.
//
// # Building an Engine
//
//	reg, _ := task.NewRegistry(task.Builtins(task.Deps{Cleaner: pg})...)
//
//	eng, err := engine.New(redisStore,
//	    engine.WithProcessor(job.TypeBulkSend, bulk.NewPipeline(sender)),
//	    engine.WithProcessor(job.TypeDataExport, export.NewProcessor(pg, logger)),
//	    engine.WithTaskRegistry(reg),
//	    engine.WithQueueConfig(queue.Config{Type: job.TypeBulkSend, RatePerMinute: 120}),
//	)
//
// # Enqueuing and polling
//
//	id, err := eng.Enqueue(ctx, job.TypeBulkSend, bulk.Payload{...},
//	    job.WithMaxAttempts(5), job.WithDelay(time.Minute))
//
//	view := eng.GetStatus(ctx, job.TypeBulkSend, id) // pending, processing, completed, ...
//
// Enqueue never waits for workers. GetStatus never returns an error: a
// missing job is reported as not_found and a store fault as error.
//
// # Generic tasks
//
//	id, err := eng.ExecuteServiceMethod(ctx, "rescore", "leads", "rescore", []any{leadID}, task.Context{})
//
// The target and method are checked against the task registry before the
// job is enqueued.
package engine
