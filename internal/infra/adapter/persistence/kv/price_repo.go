package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/infra/cache"
)

type PriceRepo struct {
	store cache.Store
	keys  Keys
}

func NewPriceRepo(store cache.Store, keys Keys) *PriceRepo {
	return &PriceRepo{store: store, keys: keys}
}

func (repo *PriceRepo) Save(ctx context.Context, snapshot entity.PriceSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("Save prices: %w", err)
	}
	if err := repo.store.Set(ctx, repo.keys.Prices(), string(raw), 0); err != nil {
		return fmt.Errorf("Save prices: %w", err)
	}
	return nil
}

func (repo *PriceRepo) Latest(ctx context.Context) (*entity.PriceSnapshot, error) {
	raw, err := repo.store.Get(ctx, repo.keys.Prices())
	if errors.Is(err, cache.ErrNotFound) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Latest prices: %w", err)
	}
	var snap entity.PriceSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("Latest prices: decode: %w", err)
	}
	return &snap, nil
}
