// Package tracing wires OpenTelemetry spans through cycles, messages and
// HTTP requests.
//
//	tp := tracing.Init("digest-worker", 1.0)
//	defer tp.Shutdown(context.Background())
//
//	ctx, span := tracing.StartSpan(ctx, "poll.cycle")
//	defer span.End()
package tracing
