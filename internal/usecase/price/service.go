// Package price refreshes the cached price snapshot.
package price

import (
	"context"
	"fmt"
	"log/slog"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/observability/metrics"
	"channel-digest/internal/observability/tracing"
	"channel-digest/internal/repository"
)

// Source produces a fresh snapshot.
type Source interface {
	Fetch(ctx context.Context) (entity.PriceSnapshot, error)
}

// Service polls a Source and stores what it returns.
type Service struct {
	source Source
	repo   repository.PriceRepository
}

// NewService creates a Service.
func NewService(source Source, repo repository.PriceRepository) *Service {
	return &Service{source: source, repo: repo}
}

// Refresh fetches and stores one snapshot. On a fetch failure the previous
// snapshot stays in place.
func (s *Service) Refresh(ctx context.Context) (err error) {
	ctx, span := tracing.StartSpan(ctx, "price.refresh")
	defer span.End()
	defer func() {
		metrics.RecordPriceRefresh(err)
		if err != nil {
			span.RecordError(err)
		}
	}()

	snapshot, err := s.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("refresh prices: %w", err)
	}
	if err := s.repo.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("refresh prices: %w", err)
	}

	slog.Info("prices refreshed",
		slog.Int("count", len(snapshot.Prices)),
		slog.String("currency", snapshot.Currency))
	return nil
}

// Latest returns the stored snapshot, or entity.ErrNotFound before the
// first successful refresh.
func (s *Service) Latest(ctx context.Context) (*entity.PriceSnapshot, error) {
	return s.repo.Latest(ctx)
}
