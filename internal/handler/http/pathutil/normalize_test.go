package pathutil

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/articles/1007", "/articles/:id"},
		{"/articles/abc", "/articles/:id"},
		{"/articles/1007/", "/articles/:id"},
		{"/articles", "/articles"},
		{"/articles?limit=5", "/articles"},
		{"/messages/42/status", "/messages/:id/status"},
		{"/messages/42/status?x=1", "/messages/:id/status"},
		{"/messages/42", "/messages/42"},
		{"/prices", "/prices"},
		{"/health", "/health"},
		{"/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := NormalizePath(tt.path); got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
