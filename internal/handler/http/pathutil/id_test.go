package pathutil

import (
	"errors"
	"testing"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		segment string
		want    int64
		wantErr error
	}{
		{name: "valid", segment: "1007", want: 1007},
		{name: "surrounding space", segment: " 12 ", want: 12},
		{name: "not a number", segment: "abc", wantErr: ErrInvalidID},
		{name: "zero", segment: "0", wantErr: ErrInvalidID},
		{name: "negative", segment: "-3", wantErr: ErrInvalidID},
		{name: "empty", segment: "", wantErr: ErrInvalidID},
		{name: "overflow", segment: "99999999999999999999", wantErr: ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID(tt.segment)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseID(%q) error = %v, want %v", tt.segment, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseID(%q) = %d, want %d", tt.segment, got, tt.want)
			}
		})
	}
}

func TestExtractID(t *testing.T) {
	id, err := ExtractID("/articles/1007", "/articles/")
	if err != nil || id != 1007 {
		t.Fatalf("ExtractID() = %d, %v", id, err)
	}
	if _, err := ExtractID("/articles/x", "/articles/"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
}
