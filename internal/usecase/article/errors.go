// Package article serves read queries over the cached article collection
// and the processing ledger.
package article

import "errors"

var (
	// ErrArticleNotFound is returned when no cached article carries the
	// requested API id.
	ErrArticleNotFound = errors.New("article not found")

	// ErrInvalidArticleID is returned for non-positive API ids.
	ErrInvalidArticleID = errors.New("invalid article ID")

	// ErrMessageNotFound is returned when a message id was never handled.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidLimit is returned for a negative list limit.
	ErrInvalidLimit = errors.New("invalid limit: must be a positive integer")
)
