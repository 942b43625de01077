package article

import (
	"context"
	"errors"
	"fmt"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/repository"
)

// Service answers the read API. It never touches the channel or the
// summarizer.
type Service struct {
	Repo     repository.ArticleRepository
	Ledger   repository.LedgerRepository
	Failures repository.FailureRepository
}

// MessageStatus describes how a message id was handled. Failure is set
// while the failure record has not expired.
type MessageStatus struct {
	ID      int64
	Status  entity.MessageStatus
	Failure *entity.FailureRecord
}

// List returns cached articles newest first. limit 0 returns all of them.
func (s *Service) List(ctx context.Context, limit int) ([]entity.Article, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	articles, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

// Get returns the article with apiID.
func (s *Service) Get(ctx context.Context, apiID int64) (*entity.Article, error) {
	if apiID <= 0 {
		return nil, ErrInvalidArticleID
	}
	a, err := s.Repo.GetByAPIID(ctx, apiID)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, ErrArticleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return a, nil
}

// Status returns the processing status of message id.
func (s *Service) Status(ctx context.Context, id int64) (*MessageStatus, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: message id must be positive", entity.ErrInvalidInput)
	}
	status, err := s.Ledger.Status(ctx, id)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("message status: %w", err)
	}

	out := &MessageStatus{ID: id, Status: status}
	if status != entity.StatusFailed {
		return out, nil
	}
	rec, err := s.Failures.Get(ctx, id)
	switch {
	case errors.Is(err, entity.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failure record: %w", err)
	default:
		out.Failure = rec
	}
	return out, nil
}
