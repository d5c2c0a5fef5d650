package redis

import goredis "github.com/redis/go-redis/v9"

// claimScript promotes due delayed ids, then claims the head of the wait
// list.
//
// KEYS: delayed, wait, active
// ARGV: now_ms, promote_limit, job_key_prefix, worker_id
var claimScript = goredis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, id in ipairs(due) do
  redis.call('ZREM', KEYS[1], id)
  redis.call('LPUSH', KEYS[2], id)
  redis.call('HSET', ARGV[3] .. id, 'state', 'waiting')
end
local id = redis.call('RPOP', KEYS[2])
if not id then
  return false
end
local jk = ARGV[3] .. id
if redis.call('EXISTS', jk) == 0 then
  return false
end
redis.call('ZADD', KEYS[3], ARGV[1], id)
redis.call('HINCRBY', jk, 'attempts', 1)
redis.call('HSET', jk, 'state', 'active', 'worker', ARGV[4], 'started_at', ARGV[1], 'heartbeat_at', ARGV[1])
return id
`)

// finishScript moves an active id into its next set and rewrites the body.
// It returns 0 when the id is no longer active.
//
// KEYS: active, target, job
// ARGV: id, score, state, body
var finishScript = goredis.NewScript(`
if redis.call('ZREM', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
redis.call('HSET', KEYS[3], 'state', ARGV[3], 'body', ARGV[4])
redis.call('HDEL', KEYS[3], 'worker', 'heartbeat_at')
if ARGV[3] == 'completed' then
  redis.call('HSET', KEYS[3], 'progress', 100)
end
return 1
`)

// releaseScript returns an active id to the head of the wait list and
// refunds its attempt.
//
// KEYS: active, wait, job
// ARGV: id
var releaseScript = goredis.NewScript(`
if redis.call('ZREM', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('RPUSH', KEYS[2], ARGV[1])
redis.call('HINCRBY', KEYS[3], 'attempts', -1)
redis.call('HSET', KEYS[3], 'state', 'waiting')
redis.call('HDEL', KEYS[3], 'worker', 'started_at', 'heartbeat_at')
return 1
`)

// touchScript updates a field of an active job.
//
// KEYS: active, job
// ARGV: id, field, value, heartbeat_score (empty to leave the score alone)
var touchScript = goredis.NewScript(`
if not redis.call('ZSCORE', KEYS[1], ARGV[1]) then
  return 0
end
if ARGV[4] ~= '' then
  redis.call('ZADD', KEYS[1], 'XX', ARGV[4], ARGV[1])
end
redis.call('HSET', KEYS[2], ARGV[2], ARGV[3])
return 1
`)

// requeueScript moves one active id with an expired heartbeat back to the
// tail of the wait list. It returns 0 when the id is gone or was
// heartbeated after cutoff.
//
// KEYS: active, wait, job
// ARGV: id, cutoff_ms
var requeueScript = goredis.NewScript(`
local score = redis.call('ZSCORE', KEYS[1], ARGV[1])
if not score or tonumber(score) > tonumber(ARGV[2]) then
  return 0
end
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('LPUSH', KEYS[2], ARGV[1])
redis.call('HSET', KEYS[3], 'state', 'waiting')
redis.call('HDEL', KEYS[3], 'worker', 'started_at', 'heartbeat_at')
return 1
`)
