package kv

import (
	"context"
	"errors"
	"fmt"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/infra/cache"
)

// LedgerRepo keeps the processed-id set and the per-id terminal status.
type LedgerRepo struct {
	store cache.Store
	keys  Keys
}

func NewLedgerRepo(store cache.Store, keys Keys) *LedgerRepo {
	return &LedgerRepo{store: store, keys: keys}
}

func (repo *LedgerRepo) IsProcessed(ctx context.Context, id int64) (bool, error) {
	ok, err := repo.store.SIsMember(ctx, repo.keys.Processed(), formatID(id))
	if err != nil {
		return false, fmt.Errorf("IsProcessed %d: %w", id, err)
	}
	return ok, nil
}

func (repo *LedgerRepo) MarkProcessed(ctx context.Context, id int64, status entity.MessageStatus) error {
	member := formatID(id)
	err := repo.store.Tx(ctx, "", func(_ string, tx cache.Tx) error {
		tx.SAdd(repo.keys.Processed(), member)
		tx.HSet(repo.keys.Status(), member, string(status))
		return nil
	})
	if err != nil {
		return fmt.Errorf("MarkProcessed %d: %w", id, err)
	}
	return nil
}

func (repo *LedgerRepo) Status(ctx context.Context, id int64) (entity.MessageStatus, error) {
	v, err := repo.store.HGet(ctx, repo.keys.Status(), formatID(id))
	if errors.Is(err, cache.ErrNotFound) {
		return "", entity.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("Status %d: %w", id, err)
	}
	return entity.MessageStatus(v), nil
}

func (repo *LedgerRepo) ProcessedCount(ctx context.Context) (int64, error) {
	n, err := repo.store.SCard(ctx, repo.keys.Processed())
	if err != nil {
		return 0, fmt.Errorf("ProcessedCount: %w", err)
	}
	return n, nil
}
