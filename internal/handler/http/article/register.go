package article

import "net/http"

// Register mounts the article and message-status routes on mux.
func Register(mux *http.ServeMux, svc Reader) {
	mux.Handle("GET /articles", ListHandler{Svc: svc})
	mux.Handle("GET /articles/{apiId}", GetHandler{Svc: svc})
	mux.Handle("GET /messages/{id}/status", StatusHandler{Svc: svc})
}
