// Package observability provides an extension that records job lifecycle
// counters with OpenTelemetry. Register it with the engine:
//
//	eng, err := engine.New(store,
//	    engine.WithExtension(observability.NewMetricsExtension()),
//	)
//
// Per-attempt duration and tracing live in the middleware package.
package observability
