package store

import (
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/job"
	"github.com/KennethAtchon/Loctelli-sub005/store/memory"
	"github.com/KennethAtchon/Loctelli-sub005/store/redis"
)

// Driver names accepted by Open.
const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config selects and configures a job store backend.
type Config struct {
	// Driver is "redis" (default) or "memory".
	Driver string

	// Redis is required for the redis driver. The caller owns it.
	Redis goredis.Cmdable

	// Prefix namespaces Redis keys. Empty means redis.DefaultPrefix.
	Prefix string

	// Codec is "json" (default) or "msgpack".
	Codec string

	Retention jobs.Retention
	Logger    *slog.Logger
}

// Open builds the job store named by cfg.Driver.
func Open(cfg Config) (job.Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Retention == (jobs.Retention{}) {
		cfg.Retention = jobs.DefaultRetention()
	}

	switch cfg.Driver {
	case "", DriverRedis:
		if cfg.Redis == nil {
			return nil, fmt.Errorf("%w: redis driver needs a client", jobs.ErrNoStore)
		}
		opts := []redis.Option{
			redis.WithLogger(cfg.Logger),
			redis.WithCodec(redis.CodecByName(cfg.Codec)),
			redis.WithRetention(cfg.Retention),
		}
		if cfg.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Prefix))
		}
		return redis.New(cfg.Redis, opts...), nil
	case DriverMemory:
		return memory.New(memory.WithRetention(cfg.Retention)), nil
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", jobs.ErrNoStore, cfg.Driver)
	}
}
