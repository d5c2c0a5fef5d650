package middleware

import (
	"context"

	"github.com/KennethAtchon/Loctelli-sub005/job"
)

// Handler is the terminal function that runs the bound processor.
type Handler func(ctx context.Context) (any, error)

// Middleware wraps a Handler with cross-cutting logic. It receives the job
// being executed and MUST call next unless it short-circuits with an error.
type Middleware func(ctx context.Context, j *job.Job, next Handler) (any, error)

// Chain composes middleware. The first middleware in the list is the
// outermost wrapper:
//
//	Chain(recover, tracing, logging) runs recover → tracing → logging → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (any, error) {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw, inner := mws[i], h
			h = func(ctx context.Context) (any, error) {
				return mw(ctx, j, inner)
			}
		}
		return h(ctx)
	}
}
