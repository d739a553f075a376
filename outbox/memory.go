package outbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aegisops/booking-engine/booking"
)

// MemoryStore is an in-memory outbox (tests/dev).
type MemoryStore struct {
	mu       sync.Mutex
	messages map[string]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string]Message)}
}

func (s *MemoryStore) Enqueue(_ context.Context, m Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = booking.NewID()
	}
	if m.Status == "" {
		m.Status = StatusPending
	}
	s.messages[m.ID] = m
	return m, nil
}

func (s *MemoryStore) Pending(_ context.Context, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Message
	for _, m := range s.messages {
		if m.Status == StatusPending {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkSent(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return &booking.NotFoundError{Kind: "outbox message", ID: id}
	}
	m.Status = StatusSent
	m.SentAt = at
	s.messages[id] = m
	return nil
}

func (s *MemoryStore) MarkFailed(_ context.Context, id string, attempts int, lastError string, final bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return &booking.NotFoundError{Kind: "outbox message", ID: id}
	}
	m.Attempts = attempts
	m.LastError = lastError
	if final {
		m.Status = StatusFailed
	}
	s.messages[id] = m
	return nil
}

// Get returns a message by id (nil when absent). Test helper.
func (s *MemoryStore) Get(id string) *Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.messages[id]; ok {
		return &m
	}
	return nil
}
