// Package article serves the read-only article and message-status routes.
package article

import (
	"time"

	"channel-digest/internal/domain/entity"
	artUC "channel-digest/internal/usecase/article"
)

// DTO is the JSON form of a cached article.
type DTO struct {
	ID       int64     `json:"id"`
	APIID    int64     `json:"apiId"`
	Headline string    `json:"headline"`
	Body     string    `json:"body"`
	Source   string    `json:"source"`
	Date     time.Time `json:"date"`
	Status   string    `json:"status"`
}

// StatusDTO answers GET /messages/{id}/status.
type StatusDTO struct {
	ID      int64       `json:"id"`
	Status  string      `json:"status"`
	Failure *FailureDTO `json:"failure,omitempty"`
}

// FailureDTO is present while a failure record is live.
type FailureDTO struct {
	Reason    string    `json:"reason"`
	FailedAt  time.Time `json:"failedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toDTO(a entity.Article) DTO {
	return DTO{
		ID:       a.ID,
		APIID:    a.APIID,
		Headline: a.Headline,
		Body:     a.Body,
		Source:   a.Source,
		Date:     a.Date,
		Status:   a.Status,
	}
}

func toStatusDTO(s *artUC.MessageStatus) StatusDTO {
	out := StatusDTO{ID: s.ID, Status: string(s.Status)}
	if f := s.Failure; f != nil {
		out.Failure = &FailureDTO{Reason: f.Reason, FailedAt: f.FailedAt, ExpiresAt: f.ExpiresAt}
	}
	return out
}
