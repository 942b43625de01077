package price_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/handler/http/price"
)

type stubReader struct {
	snap *entity.PriceSnapshot
	err  error
}

func (s stubReader) Latest(context.Context) (*entity.PriceSnapshot, error) {
	return s.snap, s.err
}

func get(svc price.Reader) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	price.Register(mux, svc)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/prices", nil))
	return rec
}

func TestHandler(t *testing.T) {
	snap := &entity.PriceSnapshot{
		Currency:  "usd",
		Prices:    map[string]float64{"bitcoin": 64000.5},
		UpdatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	rec := get(stubReader{snap: snap})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"currency":"usd","prices":{"bitcoin":64000.5},"updatedAt":"2025-03-01T12:00:00Z"}`,
		rec.Body.String())
}

func TestHandler_BeforeFirstPoll(t *testing.T) {
	rec := get(stubReader{err: entity.ErrNotFound})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), price.ErrNoSnapshot.Error())
}

func TestHandler_CacheError(t *testing.T) {
	rec := get(stubReader{err: errors.New("i/o timeout")})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
