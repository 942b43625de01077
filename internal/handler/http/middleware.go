// Package http assembles the read API: routes, health probes and the
// middleware chain in front of them.
package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/trace"

	"channel-digest/internal/handler/http/requestid"
	"channel-digest/internal/handler/http/respond"
	"channel-digest/internal/handler/http/responsewriter"
	"channel-digest/internal/observability/logging"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain applies mws so that the first one is outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Logging logs one line per request and stores a request-scoped logger in
// the context for handlers to pick up with logging.FromContext.
func Logging(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logging.WithRequestID(r.Context(), logger)
			rw := responsewriter.Wrap(w)

			next.ServeHTTP(rw, r.WithContext(logging.WithLogger(r.Context(), reqLogger)))

			elapsed := time.Since(start)
			level := slog.LevelInfo
			if rw.StatusCode() >= 500 {
				level = slog.LevelWarn
			}
			reqLogger.Log(r.Context(), level, "request completed",
				slog.String("trace_id", trace.SpanFromContext(r.Context()).SpanContext().TraceID().String()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("query", r.URL.RawQuery),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Int("status", rw.StatusCode()),
				slog.Int("bytes", rw.BytesWritten()),
				slog.Duration("duration", elapsed),
			)
		})
	}
}

// Recover turns a handler panic into a 500 and logs the stack.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				logger.Error("panic recovered",
					slog.String("request_id", requestid.FromContext(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)
				if rw, ok := w.(*responsewriter.ResponseWriter); ok && rw.Written() {
					return
				}
				respond.SafeError(w, http.StatusInternalServerError, fmt.Errorf("panic: %v", rec))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
