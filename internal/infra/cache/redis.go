package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// delIfValue is the compare-and-delete used to release leases.
var delIfValue = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// scanBatch is the COUNT hint passed to SCAN.
const scanBatch = 200

// Redis is a Store backed by a Redis server.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis wraps an existing go-redis client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func notFound(err error) error {
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return err
}

func formatScore(f float64) string {
	switch {
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsInf(f, 1):
		return "+inf"
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", notFound(err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) DelIfValue(ctx context.Context, key, value string) (bool, error) {
	n, err := delIfValue.Run(ctx, r.client, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Redis) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r *Redis) SAdd(ctx context.Context, key string, members ...string) error {
	return r.client.SAdd(ctx, key, toArgs(members)...).Err()
}

func (r *Redis) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return r.client.SIsMember(ctx, key, member).Result()
}

func (r *Redis) SCard(ctx context.Context, key string) (int64, error) {
	return r.client.SCard(ctx, key).Result()
}

func (r *Redis) HSet(ctx context.Context, key, field, value string) error {
	return r.client.HSet(ctx, key, field, value).Err()
}

func (r *Redis) HGet(ctx context.Context, key, field string) (string, error) {
	v, err := r.client.HGet(ctx, key, field).Result()
	if err != nil {
		return "", notFound(err)
	}
	return v, nil
}

func (r *Redis) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (r *Redis) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	return r.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: formatScore(min),
		Max: formatScore(max),
	}).Result()
}

func (r *Redis) ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error) {
	return r.client.ZRemRangeByScore(ctx, key, formatScore(min), formatScore(max)).Result()
}

func (r *Redis) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error {
	return r.client.ZRemRangeByRank(ctx, key, start, stop).Err()
}

func (r *Redis) ZRem(ctx context.Context, key string, members ...string) error {
	return r.client.ZRem(ctx, key, toArgs(members)...).Err()
}

func (r *Redis) ZCard(ctx context.Context, key string) (int64, error) {
	return r.client.ZCard(ctx, key).Result()
}

func (r *Redis) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %q: %w", prefix, err)
	}
	return keys, nil
}

func (r *Redis) Tx(ctx context.Context, watch string, fn func(current string, tx Tx) error) error {
	txf := func(tx *redis.Tx) error {
		var current string
		if watch != "" {
			v, err := tx.Get(ctx, watch).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			current = v
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return fn(current, &redisTx{ctx: ctx, pipe: pipe})
		})
		return err
	}

	var keys []string
	if watch != "" {
		keys = []string{watch}
	}
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrTxConflict
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

type redisTx struct {
	ctx  context.Context
	pipe redis.Pipeliner
}

func (t *redisTx) Set(key, value string, ttl time.Duration) { t.pipe.Set(t.ctx, key, value, ttl) }
func (t *redisTx) Del(keys ...string)                       { t.pipe.Del(t.ctx, keys...) }
func (t *redisTx) SAdd(key string, members ...string)       { t.pipe.SAdd(t.ctx, key, toArgs(members)...) }
func (t *redisTx) HSet(key, field, value string)            { t.pipe.HSet(t.ctx, key, field, value) }
func (t *redisTx) ZRem(key string, members ...string)       { t.pipe.ZRem(t.ctx, key, toArgs(members)...) }

func toArgs(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

var _ Store = (*Redis)(nil)
