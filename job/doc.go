// Package job defines the job entity, its store-native states, the
// canonical status table, the processor contract and the durable store
// interface.
//
// # Lifecycle
//
//	waiting → active → completed
//	delayed → waiting → active → delayed (retry) → ... → failed
//
// The store decides retries: when a processor fails, the worker calls
// [Store.Fail] with the backoff delay and the store moves the job to
// delayed while Attempts < MaxAttempts, or to failed otherwise. Errors
// marked with jobs.Permanent go straight to failed.
//
// # Canonical statuses
//
// [Canonical] maps store-native states to the six statuses callers see:
//
//	waiting, delayed → pending
//	active           → processing
//	completed        → completed
//	failed           → failed
//	(unknown)        → error
//
// not_found and error are also produced by the queue manager when the
// store reports a missing job or an infrastructure fault.
//
// # Processors
//
// A [Processor] turns a payload into a result. [Typed] adapts a function
// over a decoded payload type:
//
//	p := job.Typed(func(ctx context.Context, in ExportRequest) (any, error) {
//	    return exporter.Run(ctx, in)
//	})
//
// Long-running processors report progress with [ReportProgress].
package job
