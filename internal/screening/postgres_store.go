package screening

import (
	"context"
	"database/sql"
	"encoding/json"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed screening store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// Migrate creates the screenings table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS screenings (
			id              VARCHAR(36) PRIMARY KEY,
			session_id      VARCHAR(36),
			instrument      VARCHAR(10) NOT NULL,
			total_score     INTEGER NOT NULL,
			severity        VARCHAR(20) NOT NULL,
			interpretation  TEXT NOT NULL,
			recommendations JSONB NOT NULL DEFAULT '[]',
			crisis_detected BOOLEAN NOT NULL DEFAULT FALSE,
			answers         JSONB NOT NULL DEFAULT '[]',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_screenings_session ON screenings(session_id, created_at DESC);
	`)
	return err
}

// SaveResult stores a screening result
func (p *PostgresStore) SaveResult(ctx context.Context, r *Result) error {
	recs, err := json.Marshal(r.Recommendations)
	if err != nil {
		return err
	}
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO screenings (id, session_id, instrument, total_score, severity,
			interpretation, recommendations, crisis_detected, answers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.ID, r.SessionID, r.Instrument, r.TotalScore, r.Severity,
		r.Interpretation, recs, r.CrisisDetected, answers, r.CreatedAt)
	return err
}

// ListBySession returns results newest-first
func (p *PostgresStore) ListBySession(ctx context.Context, sessionID, instrument string, limit int) ([]*Result, error) {
	query := `
		SELECT id, session_id, instrument, total_score, severity,
			interpretation, recommendations, crisis_detected, answers, created_at
		FROM screenings
		WHERE session_id = $1
	`
	args := []interface{}{sessionID}
	if instrument != "" {
		query += ` AND instrument = $2 ORDER BY created_at DESC LIMIT $3`
		args = append(args, instrument, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		r := &Result{}
		var recsJSON, answersJSON []byte
		if err := rows.Scan(
			&r.ID, &r.SessionID, &r.Instrument, &r.TotalScore, &r.Severity,
			&r.Interpretation, &recsJSON, &r.CrisisDetected, &answersJSON, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(recsJSON, &r.Recommendations)
		_ = json.Unmarshal(answersJSON, &r.Answers)
		results = append(results, r)
	}
	return results, rows.Err()
}

// Count returns the total number of stored screenings
func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM screenings`).Scan(&n)
	return n, err
}
