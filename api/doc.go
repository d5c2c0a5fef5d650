// Package api exposes the queue manager over HTTP.
//
// Routes:
//
//	POST /v1/jobs/{type}                 enqueue, 202 {"jobId": ...}
//	GET  /v1/jobs/{type}/{jobId}         canonical status view
//	GET  /v1/queues/{type}/stats         queue counters
//	POST /v1/tasks                       enqueue a registered function
//	POST /v1/tasks/service               enqueue a registered target method
//	GET  /v1/crons                       scheduled entries
//	POST /v1/crons/{name}/trigger        fire an entry now
//	GET  /healthz                        store ping
//
// Authentication and tenant checks are the caller's concern: mount the
// handler behind the CRM's own middleware.
package api
