package http

import (
	"net/http"
	"strings"
)

// Policy is an ordered list of Content-Security-Policy directives.
type Policy [][2]string

// APIPolicy allows nothing to load; responses are JSON only.
var APIPolicy = Policy{
	{"default-src", "'none'"},
	{"frame-ancestors", "'none'"},
	{"base-uri", "'none'"},
	{"form-action", "'none'"},
}

// String renders the header value, e.g. "default-src 'none'; frame-ancestors 'none'".
func (p Policy) String() string {
	parts := make([]string, 0, len(p))
	for _, d := range p {
		if d[1] == "" {
			parts = append(parts, d[0])
			continue
		}
		parts = append(parts, d[0]+" "+d[1])
	}
	return strings.Join(parts, "; ")
}

// SecurityHeaders sets the CSP and the usual hardening headers on every
// response. An empty policy omits Content-Security-Policy.
func SecurityHeaders(policy Policy) Middleware {
	csp := policy.String()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if csp != "" {
				h.Set("Content-Security-Policy", csp)
			}
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}
