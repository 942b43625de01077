package article

import (
	"context"
	"net/http"
	"strconv"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/handler/http/respond"
	artUC "channel-digest/internal/usecase/article"
)

// Reader is the query side of artUC.Service.
type Reader interface {
	List(ctx context.Context, limit int) ([]entity.Article, error)
	Get(ctx context.Context, apiID int64) (*entity.Article, error)
	Status(ctx context.Context, id int64) (*artUC.MessageStatus, error)
}

// ListHandler serves GET /articles, newest first. ?limit=N caps the result.
type ListHandler struct{ Svc Reader }

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respond.SafeError(w, http.StatusBadRequest, artUC.ErrInvalidLimit)
			return
		}
		limit = n
	}

	articles, err := h.Svc.List(r.Context(), limit)
	if err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}

	out := make([]DTO, 0, len(articles))
	for _, a := range articles {
		out = append(out, toDTO(a))
	}
	respond.JSON(w, http.StatusOK, out)
}
