package kv

import (
	"context"
	"fmt"

	"channel-digest/internal/infra/cache"
)

// CounterRepo owns the API-ID counter. The counter holds the last id handed
// out, so the first article after initialization gets start+1.
type CounterRepo struct {
	store cache.Store
	keys  Keys
}

func NewCounterRepo(store cache.Store, keys Keys) *CounterRepo {
	return &CounterRepo{store: store, keys: keys}
}

func (repo *CounterRepo) EnsureAPIID(ctx context.Context, start int64) (bool, error) {
	created, err := repo.store.SetNX(ctx, repo.keys.APIID(), formatID(start), 0)
	if err != nil {
		return false, fmt.Errorf("EnsureAPIID: %w", err)
	}
	return created, nil
}

func (repo *CounterRepo) NextAPIID(ctx context.Context) (int64, error) {
	n, err := repo.store.Incr(ctx, repo.keys.APIID())
	if err != nil {
		return 0, fmt.Errorf("NextAPIID: %w", err)
	}
	return n, nil
}
