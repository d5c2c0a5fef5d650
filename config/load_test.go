package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KennethAtchon/Loctelli-sub005/config"
	"github.com/KennethAtchon/Loctelli-sub005/job"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "redis", cfg.Redis.Driver)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5, cfg.Engine.Concurrency)
	assert.Equal(t, time.Second, cfg.Engine.PollInterval)
	assert.Equal(t, 3, cfg.Engine.Retry.MaxAttempts)
	assert.Equal(t, 10, cfg.Bulk.MaxBatchSize)
	assert.Equal(t, 60, cfg.Bulk.RatePerMinute)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())

	engine := cfg.EngineConfig()
	assert.Equal(t, 100, engine.Retention.Completed)
	assert.Equal(t, 500, engine.Retention.Failed)
	assert.Equal(t, 2*time.Second, engine.Retry.Delay(0))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JOBENGINE_SERVER_ADDR", ":9090")
	t.Setenv("JOBENGINE_REDIS_DRIVER", "memory")
	t.Setenv("JOBENGINE_ENGINE_CONCURRENCY", "12")
	t.Setenv("JOBENGINE_ENGINE_POLL_INTERVAL", "250ms")
	t.Setenv("JOBENGINE_ENGINE_RETRY_BACKOFF", "constant")
	t.Setenv("JOBENGINE_ENGINE_RETRY_INITIAL_DELAY", "5s")
	t.Setenv("JOBENGINE_BULK_RATE_PER_MINUTE", "120")
	t.Setenv("JOBENGINE_LOG_LEVEL", "debug")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Redis.Driver)
	assert.Equal(t, 12, cfg.Engine.Concurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.EngineConfig().Retry.Delay(4))
	assert.Equal(t, 120, cfg.BulkConfig().RatePerMinute)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, `
engine:
  concurrency: 3
  queues:
    - type: data-export
      max_concurrency: 1
    - type: notification-bulk-send
      rate_per_minute: 30
      burst: 2
scheduler:
  enabled: true
  entries:
    - name: nightly-cleanup
      schedule: "0 3 * * *"
      type: generic-task
      max_attempts: 1
      payload: '{"taskName":"cleanup","functionName":"cleanupOldData","args":["sms_messages",90]}'
`)

	t.Setenv("JOBENGINE_ENGINE_CONCURRENCY", "7")
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Engine.Concurrency, "environment overrides the file")

	queues := cfg.QueueConfigs()
	require.Len(t, queues, 2)
	assert.Equal(t, job.TypeDataExport, queues[0].Type)
	assert.Equal(t, 1, queues[0].MaxConcurrency)
	assert.InDelta(t, 30.0, queues[1].RatePerMinute, 0.001)

	entries := cfg.CronEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "nightly-cleanup", entries[0].Name)
	assert.Equal(t, job.TypeGenericTask, entries[0].Type)
	assert.Equal(t, 1, entries[0].MaxAttempts)
	assert.JSONEq(t, `{"taskName":"cleanup","functionName":"cleanupOldData","args":["sms_messages",90]}`,
		string(entries[0].Payload))
}

func TestLoadValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		envVars map[string]string
		file    string
	}{
		{name: "zero concurrency", envVars: map[string]string{"JOBENGINE_ENGINE_CONCURRENCY": "0"}},
		{name: "unknown driver", envVars: map[string]string{"JOBENGINE_REDIS_DRIVER": "etcd"}},
		{name: "bad log level", envVars: map[string]string{"JOBENGINE_LOG_LEVEL": "fatal"}},
		{name: "bad backoff", envVars: map[string]string{"JOBENGINE_ENGINE_RETRY_BACKOFF": "linear"}},
		{name: "zero completed retention", envVars: map[string]string{"JOBENGINE_ENGINE_RETENTION_COMPLETED": "0"}},
		{name: "negative failed retention", envVars: map[string]string{"JOBENGINE_ENGINE_RETENTION_FAILED": "-1"}},
		{name: "zero bulk rate", envVars: map[string]string{"JOBENGINE_BULK_RATE_PER_MINUTE": "0"}},
		{name: "bad database url", envVars: map[string]string{"JOBENGINE_DATABASE_URL": "not a url"}},
		{
			name: "scheduled payload not JSON",
			file: "scheduler:\n  entries:\n    - name: x\n      schedule: \"@hourly\"\n      type: generic-task\n      payload: \"{\"\n",
		},
		{
			name: "unknown scheduled type",
			file: "scheduler:\n  entries:\n    - name: x\n      schedule: \"@hourly\"\n      type: fax\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.envVars {
				t.Setenv(k, v)
			}
			path := ""
			if tc.file != "" {
				path = writeFile(t, tc.file)
			}

			cfg, err := config.Load(path)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "validation failed")
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
