package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/backoff"
	"github.com/KennethAtchon/Loctelli-sub005/bulk"
	"github.com/KennethAtchon/Loctelli-sub005/cron"
	"github.com/KennethAtchon/Loctelli-sub005/job"
	"github.com/KennethAtchon/Loctelli-sub005/queue"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "JOBENGINE"

func setDefaults(v *viper.Viper) {
	engine := jobs.DefaultConfig()
	pipeline := bulk.DefaultConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("redis.driver", "redis")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "")
	v.SetDefault("redis.codec", "json")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_export_rows", 50000)
	v.SetDefault("database.migrate", true)

	v.SetDefault("engine.concurrency", engine.Concurrency)
	v.SetDefault("engine.poll_interval", engine.PollInterval)
	v.SetDefault("engine.heartbeat_interval", engine.HeartbeatInterval)
	v.SetDefault("engine.stale_job_threshold", engine.StaleJobThreshold)
	v.SetDefault("engine.shutdown_timeout", engine.ShutdownTimeout)
	v.SetDefault("engine.retry.max_attempts", engine.Retry.MaxAttempts)
	v.SetDefault("engine.retry.backoff", "exponential")
	v.SetDefault("engine.retry.initial_delay", "2s")
	v.SetDefault("engine.retry.max_delay", "1m")
	v.SetDefault("engine.retry.jitter", false)
	v.SetDefault("engine.retention.completed", engine.Retention.Completed)
	v.SetDefault("engine.retention.failed", engine.Retention.Failed)

	v.SetDefault("bulk.max_batch_size", pipeline.MaxBatchSize)
	v.SetDefault("bulk.rate_per_minute", pipeline.RatePerMinute)
	v.SetDefault("bulk.retry_attempts", pipeline.RetryAttempts)

	v.SetDefault("scheduler.enabled", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from defaults, the YAML file at path (skipped
// when path is empty) and JOBENGINE_ environment variables, then
// validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return nil, fmt.Errorf("config: validation failed: %s", strings.Join(msgs, "; "))
		}
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

// EngineConfig maps the engine section to the queue manager configuration.
func (c *Config) EngineConfig() jobs.Config {
	e := c.Engine
	return jobs.Config{
		Concurrency:       e.Concurrency,
		TypeConcurrency:   e.TypeConcurrency,
		PollInterval:      e.PollInterval,
		ShutdownTimeout:   e.ShutdownTimeout,
		HeartbeatInterval: e.HeartbeatInterval,
		StaleJobThreshold: e.StaleJobThreshold,
		Retry: jobs.RetryPolicy{
			MaxAttempts: e.Retry.MaxAttempts,
			Backoff:     e.Retry.strategy(),
		},
		Retention: jobs.Retention{
			Completed: e.Retention.Completed,
			Failed:    e.Retention.Failed,
		},
	}
}

func (r RetryConfig) strategy() backoff.Strategy {
	var s backoff.Strategy
	switch r.Backoff {
	case "constant":
		s = backoff.NewConstant(r.InitialDelay)
	default:
		s = backoff.NewExponential(r.InitialDelay, r.MaxDelay)
	}
	if r.Jitter {
		s = backoff.Jitter(s)
	}
	return s
}

// QueueConfigs returns the per-type admission limits.
func (c *Config) QueueConfigs() []queue.Config {
	out := make([]queue.Config, 0, len(c.Engine.Queues))
	for _, q := range c.Engine.Queues {
		out = append(out, queue.Config{
			Type:           job.Type(q.Type),
			MaxConcurrency: q.MaxConcurrency,
			RatePerMinute:  q.RatePerMinute,
			Burst:          q.Burst,
		})
	}
	return out
}

// BulkConfig maps the bulk section to the dispatch pipeline
// configuration. Per-recipient retries always wait 2^attempt seconds.
func (c *Config) BulkConfig() bulk.Config {
	return bulk.Config{
		MaxBatchSize:  c.Bulk.MaxBatchSize,
		RatePerMinute: c.Bulk.RatePerMinute,
		RetryAttempts: c.Bulk.RetryAttempts,
		Backoff:       backoff.PowerOfTwoSeconds(),
	}
}

// CronEntries converts the scheduler entries.
func (c *Config) CronEntries() []cron.Entry {
	out := make([]cron.Entry, 0, len(c.Scheduler.Entries))
	for _, e := range c.Scheduler.Entries {
		var payload json.RawMessage
		if e.Payload != "" {
			payload = json.RawMessage(e.Payload)
		}
		out = append(out, cron.Entry{
			Name:        e.Name,
			Schedule:    e.Schedule,
			Type:        job.Type(e.Type),
			Payload:     payload,
			MaxAttempts: e.MaxAttempts,
		})
	}
	return out
}

// LogLevel returns the slog level for the log section.
func (c *Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
