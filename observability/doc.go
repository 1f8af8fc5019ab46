// Package observability wires OpenTelemetry tracing and metrics for rtdbkit.
//
// Without Init the global no-op providers are used, so instruments and
// spans cost nothing until an application opts in:
//
//	shutdown, err := observability.Init(ctx, observability.DefaultConfig("rtdb"))
//	defer shutdown(ctx)
//
//	m, err := observability.NewStreamMetrics(observability.Meter("eventsource"))
//	m.RecordEvent(ctx, "put")
package observability
