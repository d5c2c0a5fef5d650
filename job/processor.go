package job

import (
	"context"
	"encoding/json"
	"fmt"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
)

// Processor performs the work of one job type. A returned error hands the
// job back to the store, which retries it while attempts remain unless the
// error is marked with jobs.Permanent.
type Processor interface {
	Process(ctx context.Context, payload json.RawMessage) (any, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, payload json.RawMessage) (any, error) {
	return f(ctx, payload)
}

// Typed wraps a handler taking a decoded payload of type T. A payload that
// does not decode is a permanent failure.
func Typed[T any](handler func(ctx context.Context, payload T) (any, error)) Processor {
	return ProcessorFunc(func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, jobs.Permanent(fmt.Errorf("%w: %w", jobs.ErrInvalidPayload, err))
			}
		}
		return handler(ctx, p)
	})
}

type progressKey struct{}

// ProgressFunc persists the progress of the running job.
type ProgressFunc func(ctx context.Context, pct int) error

// WithProgress returns a context carrying fn as the progress reporter.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// ReportProgress records pct (clamped to 0..100) for the job running
// under ctx. It is a no-op outside a worker.
func ReportProgress(ctx context.Context, pct int) error {
	fn, ok := ctx.Value(progressKey{}).(ProgressFunc)
	if !ok || fn == nil {
		return nil
	}
	return fn(ctx, min(max(pct, 0), 100))
}
