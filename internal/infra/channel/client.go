// Package channel is the read-only view of the source channel used by the
// poll scheduler: history pages, explicit ids and the latest id.
package channel

import (
	"context"
	"errors"

	"channel-digest/internal/domain/entity"
)

// ErrDisconnected is returned by a Conn whose underlying session is gone.
// Lazy reconnects when it sees it.
var ErrDisconnected = errors.New("channel: disconnected")

// Direction selects which side of FetchRequest.OffsetID to read.
type Direction int

const (
	// Older returns messages with ids below OffsetID, newest first.
	// OffsetID 0 starts from the newest message in the channel.
	Older Direction = iota
	// Newer returns messages with ids above OffsetID, newest first.
	Newer
)

func (d Direction) String() string {
	if d == Newer {
		return "newer"
	}
	return "older"
}

// FetchRequest describes one history page.
type FetchRequest struct {
	OffsetID  int64
	Limit     int
	Direction Direction
}

// Client is what the pipeline consumes.
type Client interface {
	Connect(ctx context.Context) error
	FetchHistory(ctx context.Context, req FetchRequest) ([]entity.Message, error)
	// FetchByIDs returns the messages that still exist; missing ids are
	// silently omitted.
	FetchByIDs(ctx context.Context, ids []int64) ([]entity.Message, error)
	// LatestID returns the id of the newest message, or 0 for an empty channel.
	LatestID(ctx context.Context) (int64, error)
}

// Conn is one established session.
type Conn interface {
	FetchHistory(ctx context.Context, req FetchRequest) ([]entity.Message, error)
	FetchByIDs(ctx context.Context, ids []int64) ([]entity.Message, error)
	LatestID(ctx context.Context) (int64, error)
	Close() error
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }
