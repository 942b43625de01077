// Package lease provides best-effort mutual exclusion over the shared cache.
//
// A lease is a key holding a random token with a TTL. Only the holder of the
// token can release it, so a worker whose lease expired mid-flight never
// deletes a lease that has since been granted to someone else. Expiry only
// protects against crashed holders; callers must keep their work well under
// the TTL.
package lease

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"channel-digest/internal/infra/cache"
)

// Manager grants leases stored under Prefix.
type Manager struct {
	Store  cache.Store
	Prefix string
}

// NewManager creates a lease manager whose keys are prefix+key.
func NewManager(store cache.Store, prefix string) *Manager {
	return &Manager{Store: store, Prefix: prefix}
}

// Lease is a granted lease.
type Lease struct {
	store cache.Store
	key   string
	token string
}

// Acquire tries to take the lease for key. It returns (nil, false, nil) when
// the lease is currently held by someone else.
func (m *Manager) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	if ttl <= 0 {
		return nil, false, fmt.Errorf("lease %s: ttl must be positive", key)
	}
	full := m.Prefix + key
	token := uuid.NewString()
	ok, err := m.Store.SetNX(ctx, full, token, ttl)
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease %s: %w", full, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lease{store: m.Store, key: full, token: token}, true, nil
}

// Key returns the full cache key of the lease.
func (l *Lease) Key() string { return l.key }

// Release gives the lease back. Releasing an expired or foreign lease is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	released, err := l.store.DelIfValue(ctx, l.key, l.token)
	if err != nil {
		return fmt.Errorf("release lease %s: %w", l.key, err)
	}
	if !released {
		slog.Debug("lease already expired on release", slog.String("key", l.key))
	}
	return nil
}
