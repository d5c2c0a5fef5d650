// Package middleware provides composable wrappers around processor
// invocations. The worker executor builds the chain once:
//
//	middleware.Chain(
//	    middleware.Recover(logger),
//	    middleware.Tracing(),
//	    middleware.Metrics(),
//	    middleware.Logging(logger),
//	    userMiddleware...,
//	)
//
// Middleware sees the claimed job (type, id, attempt counters) and the
// processor's result or error. None of them impose a timeout; a processor
// that never returns holds its worker slot until shutdown cancels its
// context.
package middleware
