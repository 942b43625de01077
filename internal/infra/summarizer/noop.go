package summarizer

import (
	"context"
	"strings"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/utils/text"
)

// NoOp builds a summary without calling any model: the first sentence
// becomes the headline and the text itself the body. It is deterministic,
// which makes it useful for local runs and tests.
type NoOp struct{}

// NewNoOp creates a new NoOp summarizer.
func NewNoOp() *NoOp {
	return &NoOp{}
}

func (n *NoOp) Summarize(_ context.Context, input, _ string) (entity.Summary, error) {
	body := text.CollapseSpace(input)
	if body == "" {
		return entity.Summary{}, ErrEmptyResponse
	}
	headline := body
	if i := strings.IndexAny(body, ".!?"); i > 0 {
		headline = body[:i]
	}
	return entity.Summary{
		Headline: text.Truncate(headline, entity.MaxHeadlineRunes),
		Body:     body,
	}, nil
}
