package http

import (
	"context"
	"net/http"
	"time"

	"channel-digest/internal/handler/http/respond"
)

// Pinger reports cache reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of /health and /ready.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler answers liveness without touching dependencies.
type HealthHandler struct {
	Version string
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.Version,
	})
}

// ReadyHandler pings the cache and answers 503 when it is unreachable.
type ReadyHandler struct {
	Cache   Pinger
	Timeout time.Duration
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    map[string]string{"cache": "ok"},
	}
	code := http.StatusOK
	if h.Cache == nil {
		resp.Checks["cache"] = "not configured"
		resp.Status, code = "not ready", http.StatusServiceUnavailable
	} else if err := h.Cache.Ping(ctx); err != nil {
		resp.Checks["cache"] = respond.SanitizeError(err)
		resp.Status, code = "not ready", http.StatusServiceUnavailable
	}
	respond.JSON(w, code, resp)
}
