package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/infra/cache"
)

// ArticleRepo stores the article collection as one JSON array so that the
// whole collection can be replaced inside a single transaction.
type ArticleRepo struct {
	store cache.Store
	keys  Keys
}

func NewArticleRepo(store cache.Store, keys Keys) *ArticleRepo {
	return &ArticleRepo{store: store, keys: keys}
}

func decodeArticles(raw string) ([]entity.Article, error) {
	if raw == "" {
		return []entity.Article{}, nil
	}
	var articles []entity.Article
	if err := json.Unmarshal([]byte(raw), &articles); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}
	return articles, nil
}

func (repo *ArticleRepo) List(ctx context.Context) ([]entity.Article, error) {
	raw, err := repo.store.Get(ctx, repo.keys.Articles())
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return nil, fmt.Errorf("List: %w", err)
	}
	articles, err := decodeArticles(raw)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	entity.SortNewestFirst(articles)
	return articles, nil
}

func (repo *ArticleRepo) GetByAPIID(ctx context.Context, apiID int64) (*entity.Article, error) {
	articles, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetByAPIID: %w", err)
	}
	for i := range articles {
		if articles[i].APIID == apiID {
			return &articles[i], nil
		}
	}
	return nil, entity.ErrNotFound
}

func (repo *ArticleRepo) Count(ctx context.Context) (int, error) {
	articles, err := repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return len(articles), nil
}

func (repo *ArticleRepo) OldestID(ctx context.Context) (int64, error) {
	articles, err := repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("OldestID: %w", err)
	}
	return entity.OldestID(articles), nil
}

func (repo *ArticleRepo) CommitArticle(ctx context.Context, article entity.Article, maxArticles int) error {
	id := formatID(article.ID)
	err := repo.store.Tx(ctx, repo.keys.Articles(), func(current string, tx cache.Tx) error {
		existing, err := decodeArticles(current)
		if err != nil {
			return err
		}
		merged := entity.MergeArticles(existing, article, maxArticles)
		raw, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encode articles: %w", err)
		}
		tx.Set(repo.keys.Articles(), string(raw), 0)
		tx.SAdd(repo.keys.Processed(), id)
		tx.Del(repo.keys.Failed(article.ID))
		tx.ZRem(repo.keys.RetryQueue(), id)
		tx.HSet(repo.keys.Status(), id, string(entity.StatusStored))
		return nil
	})
	if err != nil {
		return fmt.Errorf("CommitArticle %d: %w", article.ID, err)
	}
	return nil
}
