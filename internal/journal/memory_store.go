package journal

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with in-memory storage.
// Suitable for development and testing.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]*Entry // sessionID -> entries in insertion order
}

// NewMemoryStore creates a new in-memory journal store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]*Entry),
	}
}

var _ Store = (*MemoryStore)(nil)

// CreateEntry appends a new entry.
func (m *MemoryStore) CreateEntry(ctx context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[e.SessionID] = append(m.entries[e.SessionID], cloneEntry(e))
	return nil
}

// GetEntry retrieves one entry scoped to a session.
func (m *MemoryStore) GetEntry(ctx context.Context, sessionID, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries[sessionID] {
		if e.ID == id {
			return cloneEntry(e), nil
		}
	}
	return nil, ErrEntryNotFound
}

// ListBySession returns entries newest-first.
func (m *MemoryStore) ListBySession(ctx context.Context, sessionID string, opts ListOptions) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.entries[sessionID]
	matched := make([]*Entry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		if opts.Start != nil && e.CreatedAt.Before(*opts.Start) {
			continue
		}
		if opts.End != nil && e.CreatedAt.After(*opts.End) {
			continue
		}
		matched = append(matched, e)
	}

	if opts.Offset >= len(matched) {
		return []*Entry{}, nil
	}
	matched = matched[opts.Offset:]
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	out := make([]*Entry, len(matched))
	for i, e := range matched {
		out[i] = cloneEntry(e)
	}
	return out, nil
}

// ListSince returns entries at or after since in chronological order.
func (m *MemoryStore) ListSince(ctx context.Context, sessionID string, since time.Time) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*Entry{}
	for _, e := range m.entries[sessionID] {
		if e.CreatedAt.Before(since) {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	return out, nil
}

// DeleteEntry removes an entry scoped to a session.
func (m *MemoryStore) DeleteEntry(ctx context.Context, sessionID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.entries[sessionID]
	for i, e := range all {
		if e.ID == id {
			m.entries[sessionID] = append(all[:i], all[i+1:]...)
			return nil
		}
	}
	return ErrEntryNotFound
}

// AverageMood returns the mean mood score across all sessions.
func (m *MemoryStore) AverageMood(ctx context.Context) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sum, n := 0, 0
	for _, entries := range m.entries {
		for _, e := range entries {
			sum += e.MoodScore
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float64(sum) / float64(n), nil
}

// Count returns the total number of entries across all sessions.
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, entries := range m.entries {
		n += len(entries)
	}
	return n, nil
}

func cloneEntry(e *Entry) *Entry {
	cp := *e
	cp.Tags = append([]string(nil), e.Tags...)
	if cp.Tags == nil {
		cp.Tags = []string{}
	}
	return &cp
}
