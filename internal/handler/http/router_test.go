package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/handler/http/requestid"
	artUC "channel-digest/internal/usecase/article"
)

type fakeArticles struct{}

func (fakeArticles) List(context.Context, int) ([]entity.Article, error) {
	return []entity.Article{{ID: 5, APIID: 1001, Headline: "h", Status: entity.ArticleStatusSummarized}}, nil
}

func (fakeArticles) Get(_ context.Context, apiID int64) (*entity.Article, error) {
	if apiID == 1001 {
		return &entity.Article{ID: 5, APIID: 1001}, nil
	}
	return nil, artUC.ErrArticleNotFound
}

func (fakeArticles) Status(context.Context, int64) (*artUC.MessageStatus, error) {
	return nil, artUC.ErrMessageNotFound
}

type fakePrices struct{}

func (fakePrices) Latest(context.Context) (*entity.PriceSnapshot, error) {
	return nil, entity.ErrNotFound
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestRouter(cache Pinger, limiter *RateLimiter) http.Handler {
	return NewRouter(Deps{
		Articles: fakeArticles{},
		Prices:   fakePrices{},
		Cache:    cache,
		Limiter:  limiter,
		Gatherer: prometheus.NewRegistry(),
		Version:  "test",
	})
}

func do(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRouter_Routes(t *testing.T) {
	h := newTestRouter(fakePinger{}, nil)

	tests := []struct {
		target string
		status int
	}{
		{"/articles", http.StatusOK},
		{"/articles/1001", http.StatusOK},
		{"/articles/1002", http.StatusNotFound},
		{"/articles/abc", http.StatusBadRequest},
		{"/messages/5/status", http.StatusNotFound},
		{"/prices", http.StatusNotFound},
		{"/health", http.StatusOK},
		{"/ready", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(h, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(requestid.Header))
		})
	}
}

func TestRouter_ReadyCacheDown(t *testing.T) {
	h := newTestRouter(fakePinger{err: errors.New("dial redis://:s3cret@cache:6379: refused")}, nil)

	rec := do(h, "/ready")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"not ready"`)
	assert.NotContains(t, rec.Body.String(), "s3cret")
}

func TestRouter_ProbesBypassLimiter(t *testing.T) {
	rl := NewRateLimiter(0.0001, 1)
	rl.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	h := newTestRouter(fakePinger{}, rl)

	assert.Equal(t, http.StatusOK, do(h, "/articles").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(h, "/articles").Code)
	assert.Equal(t, http.StatusOK, do(h, "/health").Code)
	assert.Equal(t, http.StatusOK, do(h, "/ready").Code)
}

func TestReadyHandler_NotConfigured(t *testing.T) {
	rec := httptest.NewRecorder()
	ReadyHandler{}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
