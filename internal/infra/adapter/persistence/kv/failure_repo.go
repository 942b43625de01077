package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/infra/cache"
)

// DefaultRetryQueueMax bounds the retry queue when no limit is configured.
const DefaultRetryQueueMax = 500

// FailureRepo stores one expiring record per failed id plus a sorted set
// (score = record expiry in unix ms) used to find retry candidates without
// scanning keys. The queue keeps at most maxQueue ids; the ones expiring
// soonest are dropped first.
type FailureRepo struct {
	store    cache.Store
	keys     Keys
	maxQueue int
	now      func() time.Time
}

// FailureRepoOption configures a FailureRepo.
type FailureRepoOption func(*FailureRepo)

// WithFailureClock overrides the time source used for FailedAt and expiry.
func WithFailureClock(now func() time.Time) FailureRepoOption {
	return func(r *FailureRepo) { r.now = now }
}

func NewFailureRepo(store cache.Store, keys Keys, maxQueue int, opts ...FailureRepoOption) *FailureRepo {
	if maxQueue <= 0 {
		maxQueue = DefaultRetryQueueMax
	}
	r := &FailureRepo{store: store, keys: keys, maxQueue: maxQueue, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record writes the failure record for id and queues it for retry. A
// repeated failure while the record is still active updates the reason but
// keeps the original expiry, so the retry window is fixed by the first
// failure.
func (repo *FailureRepo) Record(ctx context.Context, id int64, reason string, ttl time.Duration) error {
	now := repo.now()
	rec := entity.FailureRecord{
		ID:        id,
		Reason:    reason,
		FailedAt:  now.UTC(),
		ExpiresAt: now.Add(ttl).UTC(),
	}
	prevRaw, err := repo.store.Get(ctx, repo.keys.Failed(id))
	switch {
	case errors.Is(err, cache.ErrNotFound):
	case err != nil:
		return fmt.Errorf("Record %d: %w", id, err)
	default:
		var prev entity.FailureRecord
		// an unreadable record is overwritten
		if json.Unmarshal([]byte(prevRaw), &prev) == nil && prev.ExpiresAt.After(now) {
			rec.ExpiresAt = prev.ExpiresAt
			ttl = prev.ExpiresAt.Sub(now)
		}
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("Record %d: %w", id, err)
	}
	if err := repo.store.Set(ctx, repo.keys.Failed(id), string(raw), ttl); err != nil {
		return fmt.Errorf("Record %d: %w", id, err)
	}
	if err := repo.enqueue(ctx, id, rec.ExpiresAt); err != nil {
		return fmt.Errorf("Record %d: %w", id, err)
	}
	return nil
}

func (repo *FailureRepo) enqueue(ctx context.Context, id int64, expiresAt time.Time) error {
	if err := repo.store.ZAdd(ctx, repo.keys.RetryQueue(), float64(expiresAt.UnixMilli()), formatID(id)); err != nil {
		return fmt.Errorf("enqueue retry: %w", err)
	}
	return repo.trim(ctx)
}

func (repo *FailureRepo) trim(ctx context.Context) error {
	if err := repo.store.ZRemRangeByRank(ctx, repo.keys.RetryQueue(), 0, int64(-repo.maxQueue-1)); err != nil {
		return fmt.Errorf("trim retry queue: %w", err)
	}
	return nil
}

func (repo *FailureRepo) Get(ctx context.Context, id int64) (*entity.FailureRecord, error) {
	raw, err := repo.store.Get(ctx, repo.keys.Failed(id))
	if errors.Is(err, cache.ErrNotFound) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get failure %d: %w", id, err)
	}
	var rec entity.FailureRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("Get failure %d: decode: %w", id, err)
	}
	return &rec, nil
}

func (repo *FailureRepo) Active(ctx context.Context, id int64) (bool, error) {
	_, err := repo.store.Get(ctx, repo.keys.Failed(id))
	if errors.Is(err, cache.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("Active %d: %w", id, err)
	}
	return true, nil
}

func (repo *FailureRepo) RetryCandidates(ctx context.Context, after int64, now time.Time) ([]int64, error) {
	queue := repo.keys.RetryQueue()
	nowMs := float64(now.UnixMilli())
	if _, err := repo.store.ZRemRangeByScore(ctx, queue, math.Inf(-1), nowMs); err != nil {
		return nil, fmt.Errorf("RetryCandidates: prune: %w", err)
	}
	members, err := repo.store.ZRangeByScore(ctx, queue, nowMs, math.Inf(1))
	if err != nil {
		return nil, fmt.Errorf("RetryCandidates: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			_ = repo.store.ZRem(ctx, queue, m)
			continue
		}
		if id <= after {
			continue
		}
		active, err := repo.Active(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("RetryCandidates: %w", err)
		}
		if !active {
			// the record vanished without the queue being told
			_ = repo.store.ZRem(ctx, queue, m)
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (repo *FailureRepo) Rebuild(ctx context.Context) (int, error) {
	keys, err := repo.store.ScanPrefix(ctx, repo.keys.FailedPrefix())
	if err != nil {
		return 0, fmt.Errorf("Rebuild: %w", err)
	}
	queued := 0
	for _, key := range keys {
		id, ok := repo.keys.idFromFailedKey(key)
		if !ok {
			continue
		}
		rec, err := repo.Get(ctx, id)
		if errors.Is(err, entity.ErrNotFound) {
			continue
		}
		if err != nil {
			slog.Warn("skipping unreadable failure record",
				slog.Int64("id", id),
				slog.Any("error", err))
			continue
		}
		if err := repo.store.ZAdd(ctx, repo.keys.RetryQueue(), float64(rec.ExpiresAt.UnixMilli()), formatID(id)); err != nil {
			return queued, fmt.Errorf("Rebuild: %w", err)
		}
		queued++
	}
	if err := repo.trim(ctx); err != nil {
		return queued, fmt.Errorf("Rebuild: %w", err)
	}
	if queued > repo.maxQueue {
		queued = repo.maxQueue
	}
	return queued, nil
}
