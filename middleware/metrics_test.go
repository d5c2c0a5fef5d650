package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	mw "github.com/KennethAtchon/Loctelli-sub005/middleware"
)

func setupTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestMetrics_RecordsDurationAndAttempts(t *testing.T) {
	reader, mp := setupTestMeter()
	m := mw.MetricsWithMeter(mp.Meter("test"))
	j := newTestJob()

	_, _ = m(context.Background(), j, func(context.Context) (any, error) { return nil, nil })
	_, _ = m(context.Background(), j, func(context.Context) (any, error) { return nil, errors.New("x") })
	_, _ = m(context.Background(), j, func(context.Context) (any, error) { return nil, errors.New("y") })

	rm := collectMetrics(t, reader)

	dur := findMetric(rm, "jobs.process.duration")
	if dur == nil {
		t.Fatal("jobs.process.duration not found")
	}
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("duration data = %T", dur.Data)
	}
	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	if total != 3 {
		t.Errorf("duration count = %d, want 3", total)
	}

	att := findMetric(rm, "jobs.process.attempts")
	if att == nil {
		t.Fatal("jobs.process.attempts not found")
	}
	sum, ok := att.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("attempts data = %T", att.Data)
	}
	byStatus := map[string]int64{}
	for _, dp := range sum.DataPoints {
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		byStatus[status.AsString()] += dp.Value
	}
	if byStatus["ok"] != 1 || byStatus["error"] != 2 {
		t.Errorf("attempts by status = %v", byStatus)
	}
}
