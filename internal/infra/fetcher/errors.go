package fetcher

import "errors"

var (
	// ErrInvalidURL is returned for unparsable URLs and non-http(s) schemes.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrPrivateIP is returned when a host resolves to a loopback, private or
	// link-local address and DenyPrivateIPs is set.
	ErrPrivateIP = errors.New("private IP address not allowed")

	// ErrTooManyRedirects is returned when MaxRedirects is exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge is returned when the response exceeds MaxBodySize.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout is returned when the per-request timeout expires.
	ErrTimeout = errors.New("content fetch timeout")

	// ErrNoContent is returned when neither readability nor the HTML
	// fallback finds any text.
	ErrNoContent = errors.New("no readable content found")
)
