package pathutil

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when a path identifier is not a positive integer.
var ErrInvalidID = errors.New("invalid id")

// ParseID parses a path segment such as the value of r.PathValue("apiId").
func ParseID(segment string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(segment), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// ExtractID strips prefix from path and parses the remainder with ParseID.
//
//	id, err := ExtractID("/articles/1007", "/articles/")
//	// 1007, nil
func ExtractID(path, prefix string) (int64, error) {
	return ParseID(strings.TrimPrefix(path, prefix))
}
