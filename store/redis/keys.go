package redis

import "github.com/KennethAtchon/Loctelli-sub005/job"

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "loctelli:jobs:"

type keys struct {
	prefix string
}

func (k keys) base(t job.Type) string { return k.prefix + string(t) }

// wait returns the LIST of ids visible to workers.
func (k keys) wait(t job.Type) string { return k.base(t) + ":wait" }

// delayed returns the ZSET of ids scored by run-at.
func (k keys) delayed(t job.Type) string { return k.base(t) + ":delayed" }

// active returns the ZSET of claimed ids scored by heartbeat.
func (k keys) active(t job.Type) string { return k.base(t) + ":active" }

func (k keys) completed(t job.Type) string { return k.base(t) + ":completed" }

func (k keys) failed(t job.Type) string { return k.base(t) + ":failed" }

// job returns the HASH holding one job record.
func (k keys) job(t job.Type, jobID string) string { return k.base(t) + ":job:" + jobID }

// jobPrefix is job(t, "") for scripts that build record keys from ids.
func (k keys) jobPrefix(t job.Type) string { return k.base(t) + ":job:" }
