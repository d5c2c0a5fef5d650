package config

import (
	"time"
)

// Config holds all process configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Engine    EngineConfig    `mapstructure:"engine" validate:"required"`
	Bulk      BulkConfig      `mapstructure:"bulk" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log" validate:"required"`
}

// ServerConfig contains the HTTP adapter settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// RedisConfig selects the job store.
type RedisConfig struct {
	// Driver is "redis" or "memory".
	Driver   string `mapstructure:"driver" validate:"oneof=redis memory"`
	Addr     string `mapstructure:"addr" validate:"required_if=Driver redis"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix"`
	Codec    string `mapstructure:"codec" validate:"oneof=json msgpack"`
}

// DatabaseConfig points at the CRM database. An empty URL disables the
// cleanup, export and campaign bookkeeping components.
type DatabaseConfig struct {
	URL           string `mapstructure:"url" validate:"omitempty,url"`
	MaxExportRows int    `mapstructure:"max_export_rows" validate:"gte=0"`
	Migrate       bool   `mapstructure:"migrate"`
}

// EngineConfig contains worker pool and retry settings.
type EngineConfig struct {
	Concurrency       int             `mapstructure:"concurrency" validate:"gt=0"`
	TypeConcurrency   map[string]int  `mapstructure:"type_concurrency"`
	PollInterval      time.Duration   `mapstructure:"poll_interval" validate:"gt=0"`
	HeartbeatInterval time.Duration   `mapstructure:"heartbeat_interval" validate:"gte=0"`
	StaleJobThreshold time.Duration   `mapstructure:"stale_job_threshold" validate:"gte=0"`
	ShutdownTimeout   time.Duration   `mapstructure:"shutdown_timeout" validate:"gt=0"`
	Retry             RetryConfig     `mapstructure:"retry"`
	Retention         RetentionConfig `mapstructure:"retention"`
	Queues            []QueueConfig   `mapstructure:"queues" validate:"dive"`
}

// RetryConfig is the store-level retry policy.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"gte=1"`
	Backoff      string        `mapstructure:"backoff" validate:"oneof=constant exponential"`
	InitialDelay time.Duration `mapstructure:"initial_delay" validate:"gte=0"`
	MaxDelay     time.Duration `mapstructure:"max_delay" validate:"gte=0"`
	Jitter       bool          `mapstructure:"jitter"`
}

// RetentionConfig bounds terminal jobs kept per type.
type RetentionConfig struct {
	Completed int `mapstructure:"completed" validate:"gt=0"`
	Failed    int `mapstructure:"failed" validate:"gt=0"`
}

// QueueConfig adds admission limits to one job type.
type QueueConfig struct {
	Type           string  `mapstructure:"type" validate:"required,oneof=notification-bulk-send data-export generic-task"`
	MaxConcurrency int     `mapstructure:"max_concurrency" validate:"gte=0"`
	RatePerMinute  float64 `mapstructure:"rate_per_minute" validate:"gte=0"`
	Burst          int     `mapstructure:"burst" validate:"gte=0"`
}

// BulkConfig contains bulk dispatch pacing.
type BulkConfig struct {
	MaxBatchSize  int `mapstructure:"max_batch_size" validate:"gt=0"`
	RatePerMinute int `mapstructure:"rate_per_minute" validate:"gt=0"`
	RetryAttempts int `mapstructure:"retry_attempts" validate:"gte=1"`
}

// SchedulerConfig lists recurring jobs.
type SchedulerConfig struct {
	Enabled bool            `mapstructure:"enabled"`
	Entries []ScheduleEntry `mapstructure:"entries" validate:"dive"`
}

// ScheduleEntry is one recurring job. Payload is a JSON document kept as
// a string so that key case survives loading.
type ScheduleEntry struct {
	Name        string `mapstructure:"name" validate:"required"`
	Schedule    string `mapstructure:"schedule" validate:"required"`
	Type        string `mapstructure:"type" validate:"required,oneof=notification-bulk-send data-export generic-task"`
	Payload     string `mapstructure:"payload" validate:"omitempty,json"`
	MaxAttempts int    `mapstructure:"max_attempts" validate:"gte=0"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}
