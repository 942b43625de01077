// Package respond writes JSON responses and keeps internal error detail out
// of them.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// safeFragments mark error messages that may be shown to clients verbatim.
var safeFragments = []string{
	"required",
	"invalid",
	"not found",
	"must be",
	"cannot be",
	"too long",
}

// JSON writes v as a JSON body with the given status code.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// headers are already sent
		slog.Default().Error("failed to encode JSON response",
			slog.Int("status_code", code),
			slog.Any("error", err))
	}
}

// Error writes {"error": err.Error()} without sanitizing.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, map[string]string{"error": err.Error()})
}

// SafeError writes validation-style errors as-is. Anything else, and every
// 5xx, is logged with secrets masked and replaced by the status text.
func SafeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}

	msg := err.Error()
	if code < 500 && isSafe(msg) {
		JSON(w, code, map[string]string{"error": msg})
		return
	}

	slog.Default().Error("request failed",
		slog.String("status", http.StatusText(code)),
		slog.Int("code", code),
		slog.String("error", SanitizeError(err)))
	JSON(w, code, map[string]string{"error": strings.ToLower(http.StatusText(code))})
}

func isSafe(msg string) bool {
	lower := strings.ToLower(msg)
	for _, f := range safeFragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
