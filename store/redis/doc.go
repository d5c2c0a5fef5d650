// Package redis implements job.Store on Redis with go-redis.
//
// Layout per job type (prefix defaults to "loctelli:jobs:"):
//
//	{prefix}{type}:wait       LIST  ids visible to workers (LPUSH tail, RPOP head)
//	{prefix}{type}:delayed    ZSET  ids scored by run-at (unix ms)
//	{prefix}{type}:active     ZSET  ids scored by last heartbeat (unix ms)
//	{prefix}{type}:completed  ZSET  ids scored by finish time
//	{prefix}{type}:failed     ZSET  ids scored by finish time
//	{prefix}{type}:job:{id}   HASH  body (codec-encoded job) plus mutable
//	                                 scalars: state, attempts, progress,
//	                                 worker, started_at, heartbeat_at
//
// Promotion of due delayed jobs, claiming, finishing, releasing and
// reaping run as Lua scripts so that list membership and the job's state
// field always change together.
//
// The caller owns the Redis client lifecycle:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redis.New(client, redis.WithCodec(redis.MsgpackCodec{}))
//	if err := s.Ping(ctx); err != nil { ... }
package redis
