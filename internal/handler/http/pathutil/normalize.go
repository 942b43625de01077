// Package pathutil holds helpers for routed URL paths.
package pathutil

import (
	"regexp"
	"strings"
)

// PathPattern maps a dynamic route to the template used as a metrics label.
type PathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

var pathPatterns = []*PathPattern{
	{Pattern: regexp.MustCompile(`^/articles/[^/]+$`), Template: "/articles/:id"},
	{Pattern: regexp.MustCompile(`^/messages/[^/]+/status$`), Template: "/messages/:id/status"},
}

// NormalizePath collapses ids in known routes so the path label stays
// low-cardinality. Query strings and a trailing slash are ignored; unknown
// paths are returned unchanged.
//
//	NormalizePath("/articles/1007")          // "/articles/:id"
//	NormalizePath("/messages/42/status")     // "/messages/:id/status"
//	NormalizePath("/articles?limit=5")       // "/articles"
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}
	return path
}
