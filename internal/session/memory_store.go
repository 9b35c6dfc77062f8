package session

import (
	"context"
	"sync"
	"time"

	"github.com/mbd888/mindsupport/internal/crisis"
)

// MemoryStore implements Store with in-memory storage.
// Suitable for development and testing.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

var _ Store = (*MemoryStore)(nil)

// CreateSession stores a new session.
func (m *MemoryStore) CreateSession(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := cloneSession(s)
	m.sessions[s.ID] = cp
	return nil
}

// GetSession retrieves a session by ID.
func (m *MemoryStore) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(s), nil
}

// TouchActivity bumps the activity timestamps.
func (m *MemoryStore) TouchActivity(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.LastActive = at
	s.UpdatedAt = at
	return nil
}

// AddMessages increments the message counter.
func (m *MemoryStore) AddMessages(ctx context.Context, id string, delta int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.MessageCount += delta
	s.LastActive = at
	s.UpdatedAt = at
	return nil
}

// ResetMessageCount zeroes the message counter.
func (m *MemoryStore) ResetMessageCount(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.MessageCount = 0
	s.UpdatedAt = at
	return nil
}

// RecordJournalEntry increments the journal counter.
func (m *MemoryStore) RecordJournalEntry(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.JournalEntriesCount++
	entry := at
	s.LastJournalEntry = &entry
	s.LastActive = at
	s.UpdatedAt = at
	return nil
}

// DecrementJournalCount backs out the journal counter.
func (m *MemoryStore) DecrementJournalCount(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if s.JournalEntriesCount > 0 {
		s.JournalEntriesCount--
	}
	s.UpdatedAt = at
	return nil
}

// AppendCrisisAlert appends an alert to the session's crisis history.
func (m *MemoryStore) AppendCrisisAlert(ctx context.Context, id string, alert crisis.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.CrisisAlerts = append(s.CrisisAlerts, alert)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// AppendScreening appends a screening summary.
func (m *MemoryStore) AppendScreening(ctx context.Context, id string, sc ScreeningSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.ScreeningHistory = append(s.ScreeningHistory, sc)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// CountSessions returns the total number of sessions.
func (m *MemoryStore) CountSessions(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}

// CountSessionsWithCrisis returns the number of sessions with at least one
// crisis alert.
func (m *MemoryStore) CountSessionsWithCrisis(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, s := range m.sessions {
		if len(s.CrisisAlerts) > 0 {
			n++
		}
	}
	return n, nil
}

// cloneSession deep-copies a session so callers never share slices with
// the store.
func cloneSession(s *Session) *Session {
	cp := *s
	cp.CrisisAlerts = append([]crisis.Alert(nil), s.CrisisAlerts...)
	cp.ScreeningHistory = append([]ScreeningSummary(nil), s.ScreeningHistory...)
	if s.LastJournalEntry != nil {
		t := *s.LastJournalEntry
		cp.LastJournalEntry = &t
	}
	if cp.CrisisAlerts == nil {
		cp.CrisisAlerts = []crisis.Alert{}
	}
	if cp.ScreeningHistory == nil {
		cp.ScreeningHistory = []ScreeningSummary{}
	}
	return &cp
}
