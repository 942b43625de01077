// Package repository declares the storage ports of the digest pipeline.
// Implementations live under internal/infra/adapter/persistence.
package repository

import (
	"context"
	"time"

	"channel-digest/internal/domain/entity"
)

// ArticleRepository reads the cached article collection.
type ArticleRepository interface {
	// List returns the collection newest-id-first. An empty cache yields an
	// empty slice, not an error.
	List(ctx context.Context) ([]entity.Article, error)
	// GetByAPIID returns entity.ErrNotFound when no article carries apiID.
	GetByAPIID(ctx context.Context, apiID int64) (*entity.Article, error)
	Count(ctx context.Context) (int, error)
	// OldestID returns the smallest stored message id, or 0 when empty.
	OldestID(ctx context.Context) (int64, error)
}

// Committer applies the terminal writes of a successful summarization as
// one transaction: merge the article into the collection (replacing any entry
// with the same id, newest-id-first, trimmed to maxArticles), add the id to
// the processed set, clear its failure record and retry queue entry, and set
// its status to stored.
type Committer interface {
	CommitArticle(ctx context.Context, article entity.Article, maxArticles int) error
}

// LedgerRepository tracks terminally handled message ids.
type LedgerRepository interface {
	IsProcessed(ctx context.Context, id int64) (bool, error)
	MarkProcessed(ctx context.Context, id int64, status entity.MessageStatus) error
	// Status returns entity.ErrNotFound for ids never handled.
	Status(ctx context.Context, id int64) (entity.MessageStatus, error)
	ProcessedCount(ctx context.Context) (int64, error)
}

// FailureRepository stores expiring failure records and the bounded retry
// queue that indexes them.
type FailureRepository interface {
	// Record writes the failure record with ttl and enqueues id for retry.
	// A record that is still active keeps its original expiry.
	Record(ctx context.Context, id int64, reason string, ttl time.Duration) error
	// Get returns entity.ErrNotFound when no unexpired record exists.
	Get(ctx context.Context, id int64) (*entity.FailureRecord, error)
	Active(ctx context.Context, id int64) (bool, error)
	// RetryCandidates returns queued ids greater than after whose records are
	// still unexpired at now, ascending.
	RetryCandidates(ctx context.Context, after int64, now time.Time) ([]int64, error)
	// Rebuild re-seeds the retry queue from the failure records present in
	// the cache and returns the number of queued ids.
	Rebuild(ctx context.Context) (int, error)
}

// CounterRepository hands out API ids.
type CounterRepository interface {
	// EnsureAPIID initializes the counter to start if it does not exist yet.
	// It reports whether the counter was created.
	EnsureAPIID(ctx context.Context, start int64) (bool, error)
	NextAPIID(ctx context.Context) (int64, error)
}

// CursorRepository persists the high-water mark.
type CursorRepository interface {
	// HighWaterMark returns 0 before the first cycle completes.
	HighWaterMark(ctx context.Context) (int64, error)
	// AdvanceHighWaterMark stores v only if it is greater than the current
	// mark and reports whether it did.
	AdvanceHighWaterMark(ctx context.Context, v int64) (bool, error)
}

// PriceRepository stores the latest price snapshot.
type PriceRepository interface {
	Save(ctx context.Context, snapshot entity.PriceSnapshot) error
	// Latest returns entity.ErrNotFound before the first successful poll.
	Latest(ctx context.Context) (*entity.PriceSnapshot, error)
}
