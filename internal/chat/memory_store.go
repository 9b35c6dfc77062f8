package chat

import (
	"context"
	"sync"

	"github.com/mbd888/mindsupport/internal/pagination"
)

// MemoryStore implements Store with in-memory storage.
// Suitable for development and testing.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]*Message // sessionID -> chronological messages
}

// NewMemoryStore creates a new in-memory chat store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string][]*Message),
	}
}

var _ Store = (*MemoryStore)(nil)

// AppendMessage stores a message.
func (m *MemoryStore) AppendMessage(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *msg
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], &cp)
	return nil
}

// ListRecent returns the most recent limit messages in chronological order.
func (m *MemoryStore) ListRecent(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]*Message, len(msgs))
	for i, msg := range msgs {
		cp := *msg
		out[i] = &cp
	}
	return out, nil
}

// ListAfter returns up to limit messages after the cursor position.
func (m *MemoryStore) ListAfter(ctx context.Context, sessionID string, after *pagination.Cursor, limit int) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Message
	for _, msg := range m.messages[sessionID] {
		if after != nil {
			if msg.Timestamp.Before(after.CreatedAt) {
				continue
			}
			if msg.Timestamp.Equal(after.CreatedAt) && msg.ID <= after.ID {
				continue
			}
		}
		cp := *msg
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// DeleteBySession removes all messages for a session.
func (m *MemoryStore) DeleteBySession(ctx context.Context, sessionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.messages[sessionID])
	delete(m.messages, sessionID)
	return n, nil
}

// CountMessages returns the total number of stored messages.
func (m *MemoryStore) CountMessages(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, msgs := range m.messages {
		n += len(msgs)
	}
	return n, nil
}
