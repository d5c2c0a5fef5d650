// Package jobs is the root of the Loctelli background-job engine. It lets
// request-handling code enqueue work (bulk notifications, data exports,
// named service-method calls) that runs out-of-band on per-type worker
// pools backed by a durable queue store.
//
// The root package holds what every layer shares: sentinel errors, the
// permanent-failure marker, the engine [Config] and the [RetryPolicy].
// The queue manager itself lives in the engine package.
//
// # Quick Start
//
//	store := redisstore.New(client)
//	eng, err := engine.New(store,
//	    engine.WithProcessor(job.TypeBulkSend, bulk.NewPipeline(sender)),
//	    engine.WithTaskRegistry(registry),
//	)
//	if err != nil { ... }
//	_ = eng.Start(ctx)
//	jobID, err := eng.Enqueue(ctx, job.TypeBulkSend, payload, job.WithDelay(time.Minute))
//
// # Statuses
//
// Stores speak their own vocabulary (waiting, delayed, active, completed,
// failed). Callers only ever see the canonical statuses defined in the job
// package: pending, processing, completed, failed, not_found and error.
package jobs
