package tdlib

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zelenin/go-tdlib/client"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/infra/channel"
	"channel-digest/internal/resilience/retry"
)

// TDLib message ids are the server ids shifted left by 20 bits.
const idShift = 20

func toServerID(id int64) int64 { return id >> idShift }
func toTDLibID(id int64) int64  { return id << idShift }

var floodWait = regexp.MustCompile(`(?:FLOOD_WAIT_|retry after )(\d+)`)

// maxHistoryPages bounds one FetchHistory call when TDLib keeps answering
// with short pages.
const maxHistoryPages = 20

// api is the part of the TDLib client a conn uses.
type api interface {
	GetChatHistory(req *client.GetChatHistoryRequest) (*client.Messages, error)
	GetMessages(req *client.GetMessagesRequest) (*client.Messages, error)
	GetChat(req *client.GetChatRequest) (*client.Chat, error)
	Close() (*client.Ok, error)
}

type conn struct {
	client api
	chatID int64
}

// classify maps TDLib errors onto the errors the channel layer understands.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if m := floodWait.FindStringSubmatch(msg); m != nil {
		secs, _ := strconv.Atoi(m[1])
		return &retry.HTTPError{StatusCode: 429, Message: msg, Wait: time.Duration(secs) * time.Second}
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "closed") || strings.Contains(lower, "connection") {
		return channel.ErrDisconnected
	}
	if strings.HasPrefix(msg, "500") || strings.Contains(lower, "timeout") {
		return &retry.HTTPError{StatusCode: 503, Message: msg}
	}
	return err
}

func (c *conn) FetchHistory(ctx context.Context, req channel.FetchRequest) ([]entity.Message, error) {
	limit := int32(req.Limit)
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if req.Direction == channel.Newer {
		return c.newerPage(req, limit)
	}
	return c.olderPages(ctx, req, int(limit))
}

// olderPages walks back from the offset until want messages are collected.
// TDLib answers with short pages while its local cache is cold.
func (c *conn) olderPages(ctx context.Context, req channel.FetchRequest, want int) ([]entity.Message, error) {
	var from int64
	if req.OffsetID > 0 {
		from = toTDLibID(req.OffsetID)
	}
	seen := make(map[int64]bool, want)
	out := make([]entity.Message, 0, want)

	for page := 0; page < maxHistoryPages && len(out) < want; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		history, err := c.client.GetChatHistory(&client.GetChatHistoryRequest{
			ChatId:        c.chatID,
			FromMessageId: from,
			Limit:         int32(want),
		})
		if err != nil {
			return nil, classify(err)
		}
		if len(history.Messages) == 0 {
			break
		}

		oldest := from
		for _, m := range history.Messages {
			if m == nil {
				continue
			}
			if oldest == 0 || m.Id < oldest {
				oldest = m.Id
			}
			msg, ok := convert(m)
			if !ok || seen[msg.ID] {
				continue
			}
			if req.OffsetID > 0 && msg.ID >= req.OffsetID {
				continue
			}
			seen[msg.ID] = true
			if len(out) < want {
				out = append(out, msg)
			}
		}
		if oldest == from {
			// no progress, the start of the channel was reached
			break
		}
		from = oldest
	}
	return out, nil
}

func (c *conn) newerPage(req channel.FetchRequest, limit int32) ([]entity.Message, error) {
	// read the page just above the offset
	if limit > 99 {
		limit = 99
	}
	hreq := &client.GetChatHistoryRequest{
		ChatId: c.chatID,
		Offset: -limit,
		Limit:  limit + 1,
	}
	if req.OffsetID > 0 {
		hreq.FromMessageId = toTDLibID(req.OffsetID)
	}

	history, err := c.client.GetChatHistory(hreq)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]entity.Message, 0, len(history.Messages))
	for _, m := range history.Messages {
		msg, ok := convert(m)
		if !ok || msg.ID <= req.OffsetID {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (c *conn) FetchByIDs(_ context.Context, ids []int64) ([]entity.Message, error) {
	tdIDs := make([]int64, 0, len(ids))
	for _, id := range ids {
		tdIDs = append(tdIDs, toTDLibID(id))
	}
	res, err := c.client.GetMessages(&client.GetMessagesRequest{ChatId: c.chatID, MessageIds: tdIDs})
	if err != nil {
		return nil, classify(err)
	}
	out := make([]entity.Message, 0, len(res.Messages))
	for _, m := range res.Messages {
		if msg, ok := convert(m); ok {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (c *conn) LatestID(_ context.Context) (int64, error) {
	chat, err := c.client.GetChat(&client.GetChatRequest{ChatId: c.chatID})
	if err != nil {
		return 0, classify(err)
	}
	if chat.LastMessage == nil {
		return 0, nil
	}
	return toServerID(chat.LastMessage.Id), nil
}

func (c *conn) Close() error {
	_, err := c.client.Close()
	return err
}

// convert turns a TDLib message into a domain message. Non-text messages
// keep their caption when they have one.
func convert(m *client.Message) (entity.Message, bool) {
	if m == nil {
		return entity.Message{}, false
	}
	var ft *client.FormattedText
	switch content := m.Content.(type) {
	case *client.MessageText:
		ft = content.Text
	case *client.MessagePhoto:
		ft = content.Caption
	case *client.MessageVideo:
		ft = content.Caption
	case *client.MessageDocument:
		ft = content.Caption
	}

	msg := entity.Message{
		ID:   toServerID(m.Id),
		Date: time.Unix(int64(m.Date), 0).UTC(),
	}
	if ft == nil {
		return msg, true
	}
	msg.Text = ft.Text
	for _, e := range ft.Entities {
		if e == nil {
			continue
		}
		te := entity.TextEntity{Offset: int(e.Offset), Length: int(e.Length)}
		switch t := e.Type.(type) {
		case *client.TextEntityTypeTextUrl:
			te.Type = entity.EntityTypeTextLink
			te.URL = t.Url
		case *client.TextEntityTypeUrl:
			te.Type = entity.EntityTypeURL
		default:
			continue
		}
		msg.Entities = append(msg.Entities, te)
	}
	return msg, true
}
