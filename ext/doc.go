// Package ext lets extensions observe the job lifecycle: recording metrics,
// writing audit logs, alerting on failures.
//
// Each hook is its own interface so an extension implements only what it
// needs:
//
//	type failureAlert struct{ pager Pager }
//
//	func (a *failureAlert) Name() string { return "failure-alert" }
//
//	func (a *failureAlert) OnJobFailed(ctx context.Context, j *job.Job, err error) error {
//	    return a.pager.Notify(ctx, string(j.Type), j.ID, err.Error())
//	}
//
// Hooks:
//
//   - [JobEnqueued]: the store accepted a job
//   - [JobStarted]: a worker claimed a job
//   - [JobCompleted]: the result was stored
//   - [JobRetrying]: the store scheduled another attempt
//   - [JobFailed]: attempts exhausted or the error was permanent
//   - [CronFired]: a recurring entry enqueued a job
//   - [Shutdown]: the engine is stopping
//
// Hook errors are logged and never affect job processing.
package ext
