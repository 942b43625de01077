package entity

import "time"

// EntityTypeTextLink marks a span of text that links to a URL which is not
// visible in the text itself.
const EntityTypeTextLink = "text_link"

// EntityTypeURL marks a span of text that is itself a URL.
const EntityTypeURL = "url"

// TextEntity is a formatting annotation attached to a message text.
type TextEntity struct {
	Type   string
	Offset int
	Length int
	// URL is set for text_link entities.
	URL string
}

// Message is a channel post. Messages are owned by the channel and never
// modified by this system.
type Message struct {
	ID       int64
	Text     string
	Entities []TextEntity
	Date     time.Time
}

// MessageStatus records how a message id was terminally handled.
type MessageStatus string

const (
	StatusStored       MessageStatus = "stored"
	StatusSkippedNoURL MessageStatus = "skipped_no_url"
	StatusFailed       MessageStatus = "failed"
)

// FailureRecord is the transient marker written when processing a message fails.
type FailureRecord struct {
	ID        int64     `json:"id"`
	Reason    string    `json:"reason"`
	FailedAt  time.Time `json:"failedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
