// Package store selects a job.Store backend from configuration.
//
// Two backends implement the durable queue contract defined in the job
// package:
//
//   - redis: the production store. Lists and sorted sets per job type,
//     Lua scripts for atomic state changes, JSON or MessagePack records.
//   - memory: an in-process store with the same semantics, for tests and
//     local development.
//
// Usage:
//
//	s, err := store.Open(store.Config{
//	    Driver:    store.DriverRedis,
//	    Redis:     client,
//	    Codec:     "msgpack",
//	    Retention: jobs.Retention{Completed: 100, Failed: 500},
//	})
package store
