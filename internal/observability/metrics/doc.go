// Package metrics holds the Prometheus collectors shared across the
// pipeline. All collectors are registered with the default registry and
// exposed on /metrics by both binaries.
//
//	start := time.Now()
//	outcome := svc.Process(ctx, msg)
//	metrics.RecordMessageProcessed(string(outcome), time.Since(start))
package metrics
