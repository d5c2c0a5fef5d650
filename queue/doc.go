// Package queue gates when dequeued jobs may start, per job type.
//
// The worker pool owns the primary concurrency bound (N workers per type).
// A [Manager] adds optional limits on top: a lower concurrency cap and a
// token-bucket rate (golang.org/x/time/rate), for example to keep export
// jobs from saturating the database:
//
//	m := queue.NewManager(
//	    queue.Config{Type: job.TypeDataExport, MaxConcurrency: 1},
//	    queue.Config{Type: job.TypeBulkSend, RatePerMinute: 30, Burst: 2},
//	)
//
// A job refused by Acquire is released back to the store without
// consuming an attempt.
package queue
