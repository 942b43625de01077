package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]int{"count": 3})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"count":3}` {
		t.Errorf("body = %q", got)
	}
}

func TestJSON_NilBody(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusNoContent, nil)

	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusTeapot, errors.New("short and stout"))

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "short and stout" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestSafeError(t *testing.T) {
	tests := []struct {
		name string
		code int
		err  error
		want string
	}{
		{
			name: "validation error passes through",
			code: http.StatusBadRequest,
			err:  errors.New("invalid limit: must be a positive integer"),
			want: "invalid limit: must be a positive integer",
		},
		{
			name: "wrapped not found",
			code: http.StatusNotFound,
			err:  fmt.Errorf("get: %w", errors.New("article not found")),
			want: "get: article not found",
		},
		{
			name: "unrecognized 4xx is hidden",
			code: http.StatusBadRequest,
			err:  errors.New("decoder exploded"),
			want: "bad request",
		},
		{
			name: "5xx always hidden",
			code: http.StatusServiceUnavailable,
			err:  errors.New("invalid reply from redis://:secret@cache:6379"),
			want: "service unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			SafeError(w, tt.code, tt.err)

			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d", w.Code, tt.code)
			}
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["error"] != tt.want {
				t.Errorf("error = %q, want %q", body["error"], tt.want)
			}
		})
	}
}

func TestSafeError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	SafeError(w, http.StatusInternalServerError, nil)
	if w.Body.Len() != 0 {
		t.Errorf("expected no body, got %q", w.Body.String())
	}
}
