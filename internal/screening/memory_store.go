package screening

import (
	"context"
	"sync"
)

// MemoryStore implements Store with in-memory storage.
// Suitable for development and testing.
type MemoryStore struct {
	mu      sync.RWMutex
	results []*Result // insertion order
}

// NewMemoryStore creates a new in-memory screening store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ Store = (*MemoryStore)(nil)

// SaveResult stores a screening result.
func (m *MemoryStore) SaveResult(ctx context.Context, r *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := cloneResult(r)
	m.results = append(m.results, cp)
	return nil
}

// ListBySession returns results newest-first.
func (m *MemoryStore) ListBySession(ctx context.Context, sessionID, instrument string, limit int) ([]*Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Result
	for i := len(m.results) - 1; i >= 0; i-- {
		r := m.results[i]
		if r.SessionID != sessionID {
			continue
		}
		if instrument != "" && r.Instrument != instrument {
			continue
		}
		out = append(out, cloneResult(r))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Count returns the total number of stored screenings.
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.results), nil
}

func cloneResult(r *Result) *Result {
	cp := *r
	cp.Recommendations = append([]string(nil), r.Recommendations...)
	cp.Answers = append([]Answer(nil), r.Answers...)
	return &cp
}
