package kv

import (
	"channel-digest/internal/infra/cache"
	"channel-digest/internal/repository"
)

// Repositories bundles every repository built over one store.
type Repositories struct {
	Keys     Keys
	Articles *ArticleRepo
	Ledger   *LedgerRepo
	Failures *FailureRepo
	Counter  *CounterRepo
	Cursor   *CursorRepo
	Prices   *PriceRepo
}

// New wires all repositories over store using prefix for key names.
func New(store cache.Store, prefix string, retryQueueMax int, opts ...FailureRepoOption) *Repositories {
	keys := NewKeys(prefix)
	return &Repositories{
		Keys:     keys,
		Articles: NewArticleRepo(store, keys),
		Ledger:   NewLedgerRepo(store, keys),
		Failures: NewFailureRepo(store, keys, retryQueueMax, opts...),
		Counter:  NewCounterRepo(store, keys),
		Cursor:   NewCursorRepo(store, keys),
		Prices:   NewPriceRepo(store, keys),
	}
}

var (
	_ repository.ArticleRepository = (*ArticleRepo)(nil)
	_ repository.Committer         = (*ArticleRepo)(nil)
	_ repository.LedgerRepository  = (*LedgerRepo)(nil)
	_ repository.FailureRepository = (*FailureRepo)(nil)
	_ repository.CounterRepository = (*CounterRepo)(nil)
	_ repository.CursorRepository  = (*CursorRepo)(nil)
	_ repository.PriceRepository   = (*PriceRepo)(nil)
)
