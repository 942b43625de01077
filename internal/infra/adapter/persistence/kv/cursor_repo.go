package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"channel-digest/internal/infra/cache"
)

type CursorRepo struct {
	store cache.Store
	keys  Keys
}

func NewCursorRepo(store cache.Store, keys Keys) *CursorRepo {
	return &CursorRepo{store: store, keys: keys}
}

func parseMark(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse high-water mark %q: %w", raw, err)
	}
	return v, nil
}

func (repo *CursorRepo) HighWaterMark(ctx context.Context) (int64, error) {
	raw, err := repo.store.Get(ctx, repo.keys.HighWaterMark())
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return 0, fmt.Errorf("HighWaterMark: %w", err)
	}
	return parseMark(raw)
}

func (repo *CursorRepo) AdvanceHighWaterMark(ctx context.Context, v int64) (bool, error) {
	var advanced bool
	err := repo.store.Tx(ctx, repo.keys.HighWaterMark(), func(current string, tx cache.Tx) error {
		advanced = false
		cur, err := parseMark(current)
		if err != nil {
			return err
		}
		if v <= cur {
			return nil
		}
		tx.Set(repo.keys.HighWaterMark(), formatID(v), 0)
		advanced = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("AdvanceHighWaterMark: %w", err)
	}
	return advanced, nil
}
