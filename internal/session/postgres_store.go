package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mbd888/mindsupport/internal/crisis"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed session store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// Migrate creates the sessions table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id                     VARCHAR(36) PRIMARY KEY,
			created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_active            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_anonymous           BOOLEAN NOT NULL DEFAULT TRUE,
			user_agent             TEXT,
			ip_address             VARCHAR(64),
			message_count          INTEGER NOT NULL DEFAULT 0,
			journal_entries_count  INTEGER NOT NULL DEFAULT 0,
			crisis_alerts          JSONB NOT NULL DEFAULT '[]',
			screening_history      JSONB NOT NULL DEFAULT '[]',
			last_journal_entry     TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_last_active ON sessions(last_active DESC);
	`)
	return err
}

// CreateSession stores a new session
func (p *PostgresStore) CreateSession(ctx context.Context, s *Session) error {
	alerts, err := json.Marshal(s.CrisisAlerts)
	if err != nil {
		return err
	}
	screenings, err := json.Marshal(s.ScreeningHistory)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, last_active, updated_at, is_anonymous,
			user_agent, ip_address, message_count, journal_entries_count,
			crisis_alerts, screening_history, last_journal_entry)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, s.ID, s.CreatedAt, s.LastActive, s.UpdatedAt, s.IsAnonymous,
		nullStr(s.UserAgent), nullStr(s.IPAddress), s.MessageCount, s.JournalEntriesCount,
		alerts, screenings, s.LastJournalEntry)
	return err
}

// GetSession retrieves a session by ID
func (p *PostgresStore) GetSession(ctx context.Context, id string) (*Session, error) {
	s := &Session{}
	var userAgent, ipAddress sql.NullString
	var alertsJSON, screeningsJSON []byte
	var lastJournal sql.NullTime

	err := p.db.QueryRowContext(ctx, `
		SELECT id, created_at, last_active, updated_at, is_anonymous,
			user_agent, ip_address, message_count, journal_entries_count,
			crisis_alerts, screening_history, last_journal_entry
		FROM sessions WHERE id = $1
	`, id).Scan(
		&s.ID, &s.CreatedAt, &s.LastActive, &s.UpdatedAt, &s.IsAnonymous,
		&userAgent, &ipAddress, &s.MessageCount, &s.JournalEntriesCount,
		&alertsJSON, &screeningsJSON, &lastJournal,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	s.UserAgent = userAgent.String
	s.IPAddress = ipAddress.String
	if lastJournal.Valid {
		t := lastJournal.Time
		s.LastJournalEntry = &t
	}
	s.CrisisAlerts = []crisis.Alert{}
	s.ScreeningHistory = []ScreeningSummary{}
	_ = json.Unmarshal(alertsJSON, &s.CrisisAlerts)
	_ = json.Unmarshal(screeningsJSON, &s.ScreeningHistory)
	return s, nil
}

// TouchActivity bumps the activity timestamps
func (p *PostgresStore) TouchActivity(ctx context.Context, id string, at time.Time) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE sessions SET last_active = $2, updated_at = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	return checkFound(result)
}

// AddMessages increments the message counter
func (p *PostgresStore) AddMessages(ctx context.Context, id string, delta int, at time.Time) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE sessions SET message_count = message_count + $2,
			last_active = $3, updated_at = $3
		WHERE id = $1
	`, id, delta, at)
	if err != nil {
		return err
	}
	return checkFound(result)
}

// ResetMessageCount zeroes the message counter
func (p *PostgresStore) ResetMessageCount(ctx context.Context, id string, at time.Time) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE sessions SET message_count = 0, updated_at = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	return checkFound(result)
}

// RecordJournalEntry increments the journal counter
func (p *PostgresStore) RecordJournalEntry(ctx context.Context, id string, at time.Time) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE sessions SET journal_entries_count = journal_entries_count + 1,
			last_journal_entry = $2, last_active = $2, updated_at = $2
		WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	return checkFound(result)
}

// DecrementJournalCount backs out the journal counter
func (p *PostgresStore) DecrementJournalCount(ctx context.Context, id string, at time.Time) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE sessions SET journal_entries_count = GREATEST(journal_entries_count - 1, 0),
			updated_at = $2
		WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	return checkFound(result)
}

// AppendCrisisAlert appends an alert in a single UPDATE so concurrent
// appends never lose entries.
func (p *PostgresStore) AppendCrisisAlert(ctx context.Context, id string, alert crisis.Alert) error {
	alertJSON, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	result, err := p.db.ExecContext(ctx, `
		UPDATE sessions SET crisis_alerts = crisis_alerts || $2::jsonb, updated_at = NOW()
		WHERE id = $1
	`, id, alertJSON)
	if err != nil {
		return err
	}
	return checkFound(result)
}

// AppendScreening appends a screening summary atomically
func (p *PostgresStore) AppendScreening(ctx context.Context, id string, sc ScreeningSummary) error {
	scJSON, err := json.Marshal(sc)
	if err != nil {
		return err
	}

	result, err := p.db.ExecContext(ctx, `
		UPDATE sessions SET screening_history = screening_history || $2::jsonb, updated_at = NOW()
		WHERE id = $1
	`, id, scJSON)
	if err != nil {
		return err
	}
	return checkFound(result)
}

// CountSessions returns the total number of sessions
func (p *PostgresStore) CountSessions(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

// CountSessionsWithCrisis returns sessions carrying at least one alert
func (p *PostgresStore) CountSessionsWithCrisis(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sessions WHERE jsonb_array_length(crisis_alerts) > 0
	`).Scan(&n)
	return n, err
}

func checkFound(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
