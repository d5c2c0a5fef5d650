// Package cron enqueues jobs on recurring schedules.
//
// Entries are static: they come from configuration at startup and are
// validated when the [Scheduler] is built, so a bad expression stops the
// process before any worker runs.
//
//	sched, err := cron.NewScheduler([]cron.Entry{{
//	    Name:     "nightly-cleanup",
//	    Schedule: "0 3 * * *",
//	    Type:     job.TypeGenericTask,
//	    Payload:  json.RawMessage(`{"functionName":"cleanupOldData","args":["sms_messages",90]}`),
//	}}, eng.Enqueue, cron.WithEmitter(eng.Extensions()))
//
// Schedules use the standard five-field syntax plus descriptors such as
// "@hourly" and "@every 30s". Every process running a Scheduler fires
// every entry; run a single scheduler per deployment to fire once.
//
// After each successful enqueue the [ext.CronFired] hook fires with the
// entry name and the new job ID.
package cron
