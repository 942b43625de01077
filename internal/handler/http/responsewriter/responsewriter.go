// Package responsewriter records the status and size of a response for the
// logging, tracing and metrics middleware.
package responsewriter

import (
	"net/http"
)

// ResponseWriter captures the first status code and counts body bytes.
type ResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

// Wrap returns w unchanged if it is already wrapped.
func Wrap(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w}
}

func (w *ResponseWriter) WriteHeader(code int) {
	if w.status != 0 {
		return
	}
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *ResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// StatusCode reports 200 when the handler wrote nothing.
func (w *ResponseWriter) StatusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *ResponseWriter) BytesWritten() int { return w.bytes }

// Written reports whether headers have been sent.
func (w *ResponseWriter) Written() bool { return w.status != 0 }

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *ResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
