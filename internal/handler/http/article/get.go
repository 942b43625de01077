package article

import (
	"errors"
	"net/http"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/handler/http/pathutil"
	"channel-digest/internal/handler/http/respond"
	artUC "channel-digest/internal/usecase/article"
)

// GetHandler serves GET /articles/{apiId}.
type GetHandler struct{ Svc Reader }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	apiID, err := pathutil.ParseID(r.PathValue("apiId"))
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, artUC.ErrInvalidArticleID)
		return
	}

	a, err := h.Svc.Get(r.Context(), apiID)
	if err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(*a))
}

// StatusHandler serves GET /messages/{id}/status.
type StatusHandler struct{ Svc Reader }

func (h StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ParseID(r.PathValue("id"))
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid message id"))
		return
	}

	st, err := h.Svc.Status(r.Context(), id)
	if err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, toStatusDTO(st))
}

// statusFor maps use-case errors to HTTP codes. Anything unrecognized is a
// cache failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, artUC.ErrInvalidArticleID),
		errors.Is(err, artUC.ErrInvalidLimit),
		errors.Is(err, entity.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, artUC.ErrArticleNotFound),
		errors.Is(err, artUC.ErrMessageNotFound):
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}
