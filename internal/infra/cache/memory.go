package cache

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store. All operations, transactions included, run
// under a single mutex, so every Tx is trivially atomic.
type Memory struct {
	mu   sync.Mutex
	data map[string]*memEntry
	now  func() time.Time
}

type memEntry struct {
	str      string
	set      map[string]struct{}
	hash     map[string]string
	zset     map[string]float64
	expireAt time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates an empty in-process store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		data: make(map[string]*memEntry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// lookup returns the live entry for key, evicting it if expired.
// Caller holds m.mu.
func (m *Memory) lookup(key string) *memEntry {
	e, ok := m.data[key]
	if !ok {
		return nil
	}
	if !e.expireAt.IsZero() && !m.now().Before(e.expireAt) {
		delete(m.data, key)
		return nil
	}
	return e
}

func (m *Memory) entry(key string) *memEntry {
	if e := m.lookup(key); e != nil {
		return e
	}
	e := &memEntry{}
	m.data[key] = e
	return e
}

func (m *Memory) setLocked(key, value string, ttl time.Duration) {
	e := &memEntry{str: value}
	if ttl > 0 {
		e.expireAt = m.now().Add(ttl)
	}
	m.data[key] = e
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.lookup(key)
	if e == nil {
		return "", ErrNotFound
	}
	return e.str, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(key, value, ttl)
	return nil
}

func (m *Memory) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookup(key) != nil {
		return false, nil
	}
	m.setLocked(key, value, ttl)
	return true, nil
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *Memory) DelIfValue(_ context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.lookup(key)
	if e == nil || e.str != value {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func (m *Memory) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(key)
	n := int64(0)
	if e.str != "" {
		v, err := strconv.ParseInt(e.str, 10, 64)
		if err != nil {
			return 0, err
		}
		n = v
	}
	n++
	e.str = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *Memory) SAdd(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saddLocked(key, members...)
	return nil
}

func (m *Memory) saddLocked(key string, members ...string) {
	e := m.entry(key)
	if e.set == nil {
		e.set = make(map[string]struct{})
	}
	for _, mem := range members {
		e.set[mem] = struct{}{}
	}
}

func (m *Memory) SIsMember(_ context.Context, key, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.lookup(key)
	if e == nil {
		return false, nil
	}
	_, ok := e.set[member]
	return ok, nil
}

func (m *Memory) SCard(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.lookup(key)
	if e == nil {
		return 0, nil
	}
	return int64(len(e.set)), nil
}

func (m *Memory) HSet(_ context.Context, key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hsetLocked(key, field, value)
	return nil
}

func (m *Memory) hsetLocked(key, field, value string) {
	e := m.entry(key)
	if e.hash == nil {
		e.hash = make(map[string]string)
	}
	e.hash[field] = value
}

func (m *Memory) HGet(_ context.Context, key, field string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.lookup(key)
	if e == nil {
		return "", ErrNotFound
	}
	v, ok := e.hash[field]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) ZAdd(_ context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(key)
	if e.zset == nil {
		e.zset = make(map[string]float64)
	}
	e.zset[member] = score
	return nil
}

type zmember struct {
	member string
	score  float64
}

// sortedLocked returns members ordered by score, then member, as Redis does.
func (m *Memory) sortedLocked(key string) []zmember {
	e := m.lookup(key)
	if e == nil {
		return nil
	}
	out := make([]zmember, 0, len(e.zset))
	for mem, s := range e.zset {
		out = append(out, zmember{member: mem, score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score < out[j].score
		}
		return out[i].member < out[j].member
	})
	return out
}

func (m *Memory) ZRangeByScore(_ context.Context, key string, min, max float64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, z := range m.sortedLocked(key) {
		if z.score >= min && z.score <= max {
			out = append(out, z.member)
		}
	}
	return out, nil
}

func (m *Memory) ZRemRangeByScore(_ context.Context, key string, min, max float64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.lookup(key)
	if e == nil {
		return 0, nil
	}
	var n int64
	for mem, s := range e.zset {
		if s >= min && s <= max {
			delete(e.zset, mem)
			n++
		}
	}
	return n, nil
}

func (m *Memory) ZRemRangeByRank(_ context.Context, key string, start, stop int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sorted := m.sortedLocked(key)
	size := int64(len(sorted))
	if size == 0 {
		return nil
	}
	if start < 0 {
		start += size
	}
	if stop < 0 {
		stop += size
	}
	if start < 0 {
		start = 0
	}
	if stop >= size {
		stop = size - 1
	}
	e := m.data[key]
	for i := start; i <= stop; i++ {
		delete(e.zset, sorted[i].member)
	}
	return nil
}

func (m *Memory) ZRem(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zremLocked(key, members...)
	return nil
}

func (m *Memory) zremLocked(key string, members ...string) {
	e := m.lookup(key)
	if e == nil {
		return
	}
	for _, mem := range members {
		delete(e.zset, mem)
	}
}

func (m *Memory) ZCard(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.lookup(key)
	if e == nil {
		return 0, nil
	}
	return int64(len(e.zset)), nil
}

func (m *Memory) ScanPrefix(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) && m.lookup(k) != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Tx(_ context.Context, watch string, fn func(current string, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current string
	if watch != "" {
		if e := m.lookup(watch); e != nil {
			current = e.str
		}
	}
	tx := &memTx{}
	if err := fn(current, tx); err != nil {
		return err
	}
	for _, op := range tx.ops {
		op(m)
	}
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// memTx records writes and replays them under the store mutex.
type memTx struct {
	ops []func(*Memory)
}

func (t *memTx) Set(key, value string, ttl time.Duration) {
	t.ops = append(t.ops, func(m *Memory) { m.setLocked(key, value, ttl) })
}

func (t *memTx) Del(keys ...string) {
	t.ops = append(t.ops, func(m *Memory) {
		for _, k := range keys {
			delete(m.data, k)
		}
	})
}

func (t *memTx) SAdd(key string, members ...string) {
	t.ops = append(t.ops, func(m *Memory) { m.saddLocked(key, members...) })
}

func (t *memTx) HSet(key, field, value string) {
	t.ops = append(t.ops, func(m *Memory) { m.hsetLocked(key, field, value) })
}

func (t *memTx) ZRem(key string, members ...string) {
	t.ops = append(t.ops, func(m *Memory) { m.zremLocked(key, members...) })
}

var _ Store = (*Memory)(nil)
