// Package cache is the shared key-value store that holds every piece of
// pipeline state: the article collection, the processed-id ledger, failure
// records, leases, counters and the price snapshot.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key or hash field does not exist.
var ErrNotFound = errors.New("cache: key not found")

// ErrTxConflict is returned when an optimistic transaction kept losing the
// race on its watched key.
var ErrTxConflict = errors.New("cache: transaction conflict")

// Store is the subset of Redis semantics the pipeline relies on.
// A zero ttl means the key does not expire.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	// DelIfValue deletes key only when it currently holds value.
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SCard(ctx context.Context, key string) (int64, error)

	HSet(ctx context.Context, key, field, value string) error
	HGet(ctx context.Context, key, field string) (string, error)

	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZRangeByScore returns members with min <= score <= max, lowest score first.
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error)
	// ZRemRangeByRank removes members by rank, lowest score first. Negative
	// indexes count from the highest score, as in Redis.
	ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error
	ZRem(ctx context.Context, key string, members ...string) error
	ZCard(ctx context.Context, key string) (int64, error)

	// ScanPrefix lists every live key starting with prefix.
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)

	// Tx runs fn and applies the writes it queues as one all-or-nothing
	// transaction. When watch is not empty, fn receives the current value of
	// that key ("" if missing) and the transaction is retried if the key is
	// modified by someone else before the writes are applied.
	Tx(ctx context.Context, watch string, fn func(current string, tx Tx) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Tx queues writes inside Store.Tx. Nothing is visible to other clients
// until fn returns nil.
type Tx interface {
	Set(key, value string, ttl time.Duration)
	Del(keys ...string)
	SAdd(key string, members ...string)
	HSet(key, field, value string)
	ZRem(key string, members ...string)
}

const maxTxAttempts = 8
