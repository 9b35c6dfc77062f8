// Package session manages anonymous support sessions.
//
// A session is the anonymous identity everything else hangs off: chat
// history, journal entries, screening results, and crisis alerts all key on
// the session ID. Sessions carry no account data; they are created without
// authentication and identified by a random UUID only.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/mbd888/mindsupport/internal/crisis"
	"github.com/mbd888/mindsupport/internal/idgen"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// Session is an anonymous user session.
type Session struct {
	ID                  string             `json:"sessionId"`
	CreatedAt           time.Time          `json:"createdAt"`
	LastActive          time.Time          `json:"lastActive"`
	UpdatedAt           time.Time          `json:"updatedAt"`
	IsAnonymous         bool               `json:"isAnonymous"`
	UserAgent           string             `json:"userAgent,omitempty"`
	IPAddress           string             `json:"ipAddress,omitempty"`
	MessageCount        int                `json:"messageCount"`
	JournalEntriesCount int                `json:"journalEntriesCount"`
	CrisisAlerts        []crisis.Alert     `json:"crisisAlerts"`
	ScreeningHistory    []ScreeningSummary `json:"screeningHistory"`
	LastJournalEntry    *time.Time         `json:"lastJournalEntry,omitempty"`
}

// ScreeningSummary is the per-session record of a completed screening.
type ScreeningSummary struct {
	ID          string    `json:"id"`
	Instrument  string    `json:"instrument"` // "phq9" or "gad7"
	Score       int       `json:"score"`
	Severity    string    `json:"severity"`
	CompletedAt time.Time `json:"completedAt"`
}

// Stats is the roll-up view of a session's activity.
type Stats struct {
	SessionID           string    `json:"sessionId"`
	CreatedAt           time.Time `json:"createdAt"`
	LastActive          time.Time `json:"lastActive"`
	MessageCount        int       `json:"messageCount"`
	JournalEntriesCount int       `json:"journalEntriesCount"`
	HasCrisisAlerts     bool      `json:"hasCrisisAlerts"`
	ScreeningCount      int       `json:"screeningCount"`
	IsAnonymous         bool      `json:"isAnonymous"`
}

// Store persists session data.
type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)

	// TouchActivity bumps last_active and updated_at.
	TouchActivity(ctx context.Context, id string, at time.Time) error

	// AddMessages increments the message counter by delta.
	AddMessages(ctx context.Context, id string, delta int, at time.Time) error

	// ResetMessageCount zeroes the message counter after history is cleared.
	ResetMessageCount(ctx context.Context, id string, at time.Time) error

	// RecordJournalEntry increments the journal counter and stamps the
	// last entry time.
	RecordJournalEntry(ctx context.Context, id string, at time.Time) error

	// DecrementJournalCount backs the counter out after an entry is
	// deleted. Never goes below zero.
	DecrementJournalCount(ctx context.Context, id string, at time.Time) error

	// AppendCrisisAlert atomically appends an alert to the session's
	// crisis history.
	AppendCrisisAlert(ctx context.Context, id string, alert crisis.Alert) error

	// AppendScreening atomically appends a screening summary.
	AppendScreening(ctx context.Context, id string, sc ScreeningSummary) error

	CountSessions(ctx context.Context) (int, error)
	CountSessionsWithCrisis(ctx context.Context) (int, error)
}

// Service provides session operations.
type Service struct {
	store Store
}

// NewService creates a new session service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create provisions a new anonymous session.
func (s *Service) Create(ctx context.Context, userAgent, ipAddress string) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:               idgen.New(),
		CreatedAt:        now,
		LastActive:       now,
		UpdatedAt:        now,
		IsAnonymous:      true,
		UserAgent:        userAgent,
		IPAddress:        ipAddress,
		CrisisAlerts:     []crisis.Alert{},
		ScreeningHistory: []ScreeningSummary{},
	}

	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get retrieves a session by ID.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.store.GetSession(ctx, id)
}

// Stats returns the activity roll-up for a session.
func (s *Service) Stats(ctx context.Context, id string) (*Stats, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Stats{
		SessionID:           sess.ID,
		CreatedAt:           sess.CreatedAt,
		LastActive:          sess.LastActive,
		MessageCount:        sess.MessageCount,
		JournalEntriesCount: sess.JournalEntriesCount,
		HasCrisisAlerts:     len(sess.CrisisAlerts) > 0,
		ScreeningCount:      len(sess.ScreeningHistory),
		IsAnonymous:         sess.IsAnonymous,
	}, nil
}

// Touch updates the session's activity timestamps.
func (s *Service) Touch(ctx context.Context, id string) error {
	return s.store.TouchActivity(ctx, id, time.Now().UTC())
}

// RecordMessages bumps the message counter after a chat exchange.
func (s *Service) RecordMessages(ctx context.Context, id string, delta int) error {
	return s.store.AddMessages(ctx, id, delta, time.Now().UTC())
}

// ResetMessages zeroes the message counter after a history wipe.
func (s *Service) ResetMessages(ctx context.Context, id string) error {
	return s.store.ResetMessageCount(ctx, id, time.Now().UTC())
}

// RecordJournalEntry bumps the journal counter.
func (s *Service) RecordJournalEntry(ctx context.Context, id string) error {
	return s.store.RecordJournalEntry(ctx, id, time.Now().UTC())
}

// RemoveJournalEntry backs out the journal counter after a deletion.
func (s *Service) RemoveJournalEntry(ctx context.Context, id string) error {
	return s.store.DecrementJournalCount(ctx, id, time.Now().UTC())
}

// RecordCrisisAlert appends a crisis alert to the session history.
func (s *Service) RecordCrisisAlert(ctx context.Context, id string, alert crisis.Alert) error {
	return s.store.AppendCrisisAlert(ctx, id, alert)
}

// RecordScreening appends a completed screening to the session history.
func (s *Service) RecordScreening(ctx context.Context, id string, sc ScreeningSummary) error {
	return s.store.AppendScreening(ctx, id, sc)
}

// Counts returns platform-wide session totals for admin reporting.
func (s *Service) Counts(ctx context.Context) (total, withCrisis int, err error) {
	total, err = s.store.CountSessions(ctx)
	if err != nil {
		return 0, 0, err
	}
	withCrisis, err = s.store.CountSessionsWithCrisis(ctx)
	if err != nil {
		return 0, 0, err
	}
	return total, withCrisis, nil
}
