package task

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/bulk"
	"github.com/KennethAtchon/Loctelli-sub005/job"
	"github.com/KennethAtchon/Loctelli-sub005/persistence"
)

// Enqueuer submits a follow-up job. The engine satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, t job.Type, payload any, opts ...job.Option) (string, error)
}

// EnqueuerFunc adapts a function to Enqueuer.
type EnqueuerFunc func(ctx context.Context, t job.Type, payload any, opts ...job.Option) (string, error)

// Enqueue calls f.
func (f EnqueuerFunc) Enqueue(ctx context.Context, t job.Type, payload any, opts ...job.Option) (string, error) {
	return f(ctx, t, payload, opts...)
}

// Deps are the collaborators of the built-in catalog. Entries whose
// collaborator is nil are left out.
type Deps struct {
	Enqueuer Enqueuer
	Cleaner  persistence.Cleaner
	Now      func() time.Time
}

// Builtin function names.
const (
	FnDelay            = "delay"
	FnCalculateSum     = "calculateSum"
	FnFilterData       = "filterData"
	FnTransformData    = "transformData"
	FnSendNotification = "sendNotification"
	FnCleanupOldData   = "cleanupOldData"
	FnGenerateReport   = "generateReport"
)

// Builtins returns the standalone function catalog.
func Builtins(d Deps) []Entry {
	b := builtins{deps: d}
	if b.deps.Now == nil {
		b.deps.Now = time.Now
	}

	entries := []Entry{
		Function(FnDelay, b.delay),
		Function(FnCalculateSum, b.calculateSum),
		Function(FnFilterData, b.filterData),
		Function(FnTransformData, b.transformData),
		Function(FnGenerateReport, b.generateReport),
	}
	if d.Enqueuer != nil {
		entries = append(entries, Function(FnSendNotification, b.sendNotification))
	}
	if d.Cleaner != nil {
		entries = append(entries, Function(FnCleanupOldData, b.cleanupOldData))
	}
	return entries
}

type builtins struct {
	deps Deps
}

func invalid(format string, a ...any) error {
	return jobs.Permanent(fmt.Errorf("%w: "+format, append([]any{jobs.ErrInvalidPayload}, a...)...))
}

// permanentArg marks argument decode errors as permanent.
func permanentArg(err error) error {
	if err != nil && errors.Is(err, jobs.ErrInvalidPayload) {
		return jobs.Permanent(err)
	}
	return err
}

// delay(ms) waits ms milliseconds or until ctx is done.
func (b builtins) delay(ctx context.Context, args Args, _ Context) (any, error) {
	ms, err := args.Int(0)
	if err != nil {
		return nil, permanentArg(err)
	}
	if ms < 0 {
		return nil, invalid("delay must not be negative, got %d", ms)
	}

	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
	}
	return map[string]any{"delayed": ms}, nil
}

// SumResult is the result of calculateSum.
type SumResult struct {
	Sum     float64 `json:"sum"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// calculateSum(numbers) aggregates a list of numbers.
func (b builtins) calculateSum(_ context.Context, args Args, _ Context) (any, error) {
	var numbers []float64
	if err := args.Decode(0, &numbers); err != nil {
		return nil, permanentArg(err)
	}

	res := SumResult{Count: len(numbers)}
	if len(numbers) == 0 {
		return res, nil
	}
	res.Min, res.Max = math.Inf(1), math.Inf(-1)
	for _, n := range numbers {
		res.Sum += n
		res.Min = math.Min(res.Min, n)
		res.Max = math.Max(res.Max, n)
	}
	res.Average = res.Sum / float64(len(numbers))
	return res, nil
}

// filterData(collection, field, value) keeps the items whose field equals
// value.
func (b builtins) filterData(_ context.Context, args Args, _ Context) (any, error) {
	var (
		items []map[string]any
		field string
		value any
	)
	if err := args.Decode(0, &items); err != nil {
		return nil, permanentArg(err)
	}
	if err := args.Decode(1, &field); err != nil {
		return nil, permanentArg(err)
	}
	if err := args.Decode(2, &value); err != nil {
		return nil, permanentArg(err)
	}

	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if v, ok := item[field]; ok && reflect.DeepEqual(v, value) {
			out = append(out, item)
		}
	}
	return out, nil
}

var transforms = map[string]func(string) string{
	"uppercase": strings.ToUpper,
	"lowercase": strings.ToLower,
	"trim":      strings.TrimSpace,
}

// transformData(collection, op, field?) applies a string operation to
// each string item, or to item[field] when field is given.
func (b builtins) transformData(_ context.Context, args Args, _ Context) (any, error) {
	var (
		items []any
		op    string
		field string
	)
	if err := args.Decode(0, &items); err != nil {
		return nil, permanentArg(err)
	}
	if err := args.Decode(1, &op); err != nil {
		return nil, permanentArg(err)
	}
	if args.Has(2) {
		if err := args.Decode(2, &field); err != nil {
			return nil, permanentArg(err)
		}
	}
	fn, ok := transforms[op]
	if !ok {
		return nil, invalid("unknown transform %q", op)
	}

	out := make([]any, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case string:
			out[i] = fn(v)
		case map[string]any:
			if s, ok := v[field].(string); ok && field != "" {
				cp := make(map[string]any, len(v))
				for k, val := range v {
					cp[k] = val
				}
				cp[field] = fn(s)
				out[i] = cp
				continue
			}
			out[i] = v
		default:
			out[i] = v
		}
	}
	return out, nil
}

// sendNotification(recipients, message) fans out through a
// notification-bulk-send job and returns its id.
func (b builtins) sendNotification(ctx context.Context, args Args, _ Context) (any, error) {
	var (
		recipients []string
		message    string
	)
	if err := args.Decode(0, &recipients); err != nil {
		return nil, permanentArg(err)
	}
	if err := args.Decode(1, &message); err != nil {
		return nil, permanentArg(err)
	}
	if message == "" {
		return nil, invalid("message must not be empty")
	}

	jobID, err := b.deps.Enqueuer.Enqueue(ctx, job.TypeBulkSend, bulk.Payload{
		Recipients: recipients,
		Message:    message,
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue notification: %w", err)
	}
	return map[string]any{"jobId": jobID, "recipients": len(recipients)}, nil
}

// CleanupResult is the result of cleanupOldData.
type CleanupResult struct {
	TableName      string    `json:"tableName"`
	CutoffDate     time.Time `json:"cutoffDate"`
	DeletedRecords int64     `json:"deletedRecords"`
}

// cleanupOldData(tableName, days) deletes rows older than days days.
func (b builtins) cleanupOldData(ctx context.Context, args Args, _ Context) (any, error) {
	table, err := args.String(0)
	if err != nil {
		return nil, permanentArg(err)
	}
	days, err := args.Int(1)
	if err != nil {
		return nil, permanentArg(err)
	}
	if days < 1 {
		return nil, invalid("days must be positive, got %d", days)
	}

	cutoff := b.deps.Now().UTC().AddDate(0, 0, -days)
	deleted, err := b.deps.Cleaner.DeleteOlderThan(ctx, table, cutoff)
	if err != nil {
		if errors.Is(err, persistence.ErrUnknownTable) {
			return nil, jobs.Permanent(err)
		}
		return nil, fmt.Errorf("cleanup %s: %w", table, err)
	}
	return CleanupResult{TableName: table, CutoffDate: cutoff, DeletedRecords: deleted}, nil
}

// ReportResult is the result of generateReport.
type ReportResult struct {
	ReportType  string         `json:"reportType"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Parameters  map[string]any `json:"parameters"`
	Status      string         `json:"status"`
}

// generateReport(reportType, params?) records a report request.
func (b builtins) generateReport(_ context.Context, args Args, _ Context) (any, error) {
	reportType, err := args.String(0)
	if err != nil {
		return nil, permanentArg(err)
	}
	if reportType == "" {
		return nil, invalid("report type must not be empty")
	}
	params := map[string]any{}
	if args.Has(1) {
		if err := args.Decode(1, &params); err != nil {
			return nil, permanentArg(err)
		}
	}
	return ReportResult{
		ReportType:  reportType,
		GeneratedAt: b.deps.Now().UTC(),
		Parameters:  params,
		Status:      "generated",
	}, nil
}
