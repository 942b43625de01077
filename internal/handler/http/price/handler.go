// Package price serves the latest polled price snapshot.
package price

import (
	"context"
	"errors"
	"net/http"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/handler/http/respond"
)

// ErrNoSnapshot is reported until the price job has succeeded once.
var ErrNoSnapshot = errors.New("price snapshot not found")

// Reader returns the stored snapshot or entity.ErrNotFound.
type Reader interface {
	Latest(ctx context.Context) (*entity.PriceSnapshot, error)
}

// Handler serves GET /prices.
type Handler struct{ Svc Reader }

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Svc.Latest(r.Context())
	switch {
	case errors.Is(err, entity.ErrNotFound):
		respond.SafeError(w, http.StatusNotFound, ErrNoSnapshot)
		return
	case err != nil:
		respond.SafeError(w, http.StatusServiceUnavailable, err)
		return
	}
	respond.JSON(w, http.StatusOK, snap)
}

// Register mounts GET /prices on mux.
func Register(mux *http.ServeMux, svc Reader) {
	mux.Handle("GET /prices", Handler{Svc: svc})
}
