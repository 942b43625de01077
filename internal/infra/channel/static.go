package channel

import (
	"context"
	"sort"
	"sync"

	"channel-digest/internal/domain/entity"
)

// Static is an in-memory channel. It serves as a Client for local runs and
// tests, and as a Conn behind Lazy.
type Static struct {
	mu       sync.Mutex
	messages map[int64]entity.Message
	failures []error
	calls    int
	closed   bool
}

// NewStatic creates a channel holding msgs.
func NewStatic(msgs ...entity.Message) *Static {
	s := &Static{messages: make(map[int64]entity.Message)}
	s.Add(msgs...)
	return s
}

// Add publishes messages to the channel.
func (s *Static) Add(msgs ...entity.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.messages[m.ID] = m
	}
}

// FailNext makes the next len(errs) calls return errs in order.
func (s *Static) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

// Calls returns the number of data calls served, failed ones included.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Closed reports whether Close was called.
func (s *Static) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// begin counts a call and pops a queued failure. Caller holds s.mu.
func (s *Static) begin() error {
	s.calls++
	if len(s.failures) == 0 {
		return nil
	}
	err := s.failures[0]
	s.failures = s.failures[1:]
	return err
}

// sortedDesc returns all messages newest first. Caller holds s.mu.
func (s *Static) sortedDesc() []entity.Message {
	out := make([]entity.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Static) Connect(context.Context) error { return nil }

func (s *Static) FetchHistory(_ context.Context, req FetchRequest) ([]entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return nil, err
	}
	all := s.sortedDesc()
	var out []entity.Message
	switch req.Direction {
	case Newer:
		// the page closest to the offset, returned newest first
		var asc []entity.Message
		for i := len(all) - 1; i >= 0; i-- {
			if all[i].ID > req.OffsetID {
				asc = append(asc, all[i])
			}
			if req.Limit > 0 && len(asc) == req.Limit {
				break
			}
		}
		for i := len(asc) - 1; i >= 0; i-- {
			out = append(out, asc[i])
		}
	default:
		for _, m := range all {
			if req.OffsetID > 0 && m.ID >= req.OffsetID {
				continue
			}
			out = append(out, m)
			if req.Limit > 0 && len(out) == req.Limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Static) FetchByIDs(_ context.Context, ids []int64) ([]entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return nil, err
	}
	var out []entity.Message
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Static) LatestID(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return 0, err
	}
	var latest int64
	for id := range s.messages {
		if id > latest {
			latest = id
		}
	}
	return latest, nil
}

func (s *Static) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var (
	_ Client = (*Static)(nil)
	_ Conn   = (*Static)(nil)
)
