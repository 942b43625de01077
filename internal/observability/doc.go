// Package observability groups the logging, metrics and tracing helpers
// shared by the worker, the read API and the operator CLI.
//
// Subpackages:
//   - logging: slog setup and context-scoped loggers
//   - metrics: Prometheus collectors for HTTP and the digest pipeline
//   - tracing: OpenTelemetry tracer provider and HTTP middleware
package observability
