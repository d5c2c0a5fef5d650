package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/KennethAtchon/Loctelli-sub005/ext"
	"github.com/KennethAtchon/Loctelli-sub005/job"
)

var (
	_ ext.Extension    = (*MetricsExtension)(nil)
	_ ext.JobEnqueued  = (*MetricsExtension)(nil)
	_ ext.JobCompleted = (*MetricsExtension)(nil)
	_ ext.JobRetrying  = (*MetricsExtension)(nil)
	_ ext.JobFailed    = (*MetricsExtension)(nil)
	_ ext.CronFired    = (*MetricsExtension)(nil)
)

const meterName = "github.com/KennethAtchon/Loctelli-sub005/observability"

// MetricsExtension counts job lifecycle transitions per job type with
// OpenTelemetry counters.
type MetricsExtension struct {
	enqueued  metric.Int64Counter
	completed metric.Int64Counter
	retried   metric.Int64Counter
	failed    metric.Int64Counter
	cronFired metric.Int64Counter
	latency   metric.Float64Histogram
}

// NewMetricsExtension uses the global MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter uses the given meter.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc string) metric.Int64Counter {
		c, _ := meter.Int64Counter(name, metric.WithDescription(desc))
		return c
	}
	latency, _ := meter.Float64Histogram("jobs.job.end_to_end",
		metric.WithDescription("Seconds from enqueue to completion"),
		metric.WithUnit("s"),
	)
	return &MetricsExtension{
		enqueued:  counter("jobs.job.enqueued", "Jobs accepted by the store"),
		completed: counter("jobs.job.completed", "Jobs that completed"),
		retried:   counter("jobs.job.retried", "Failed attempts scheduled for retry"),
		failed:    counter("jobs.job.failed", "Jobs that failed terminally"),
		cronFired: counter("jobs.cron.fired", "Recurring entries that enqueued a job"),
		latency:   latency,
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

func typeAttr(j *job.Job) metric.AddOption {
	return metric.WithAttributes(attribute.String("job_type", string(j.Type)))
}

// OnJobEnqueued implements ext.JobEnqueued.
func (m *MetricsExtension) OnJobEnqueued(ctx context.Context, j *job.Job) error {
	m.enqueued.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(ctx context.Context, j *job.Job, _ time.Duration) error {
	m.completed.Add(ctx, 1, typeAttr(j))
	if !j.CreatedAt.IsZero() {
		m.latency.Record(ctx, time.Since(j.CreatedAt).Seconds(),
			metric.WithAttributes(attribute.String("job_type", string(j.Type))))
	}
	return nil
}

// OnJobRetrying implements ext.JobRetrying.
func (m *MetricsExtension) OnJobRetrying(ctx context.Context, j *job.Job, _ error, _ time.Time) error {
	m.retried.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(ctx context.Context, j *job.Job, _ error) error {
	m.failed.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnCronFired implements ext.CronFired.
func (m *MetricsExtension) OnCronFired(ctx context.Context, entryName, _ string) error {
	m.cronFired.Add(ctx, 1, metric.WithAttributes(attribute.String("entry", entryName)))
	return nil
}
