package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed journal store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// Migrate creates the journal_entries table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS journal_entries (
			id          VARCHAR(64) PRIMARY KEY,
			session_id  VARCHAR(36) NOT NULL,
			mood_score  INTEGER NOT NULL,
			content     TEXT NOT NULL,
			tags        JSONB NOT NULL DEFAULT '[]',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_journal_session_created
			ON journal_entries(session_id, created_at DESC);
	`)
	return err
}

// CreateEntry stores a new entry
func (p *PostgresStore) CreateEntry(ctx context.Context, e *Entry) error {
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO journal_entries (id, session_id, mood_score, content, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.SessionID, e.MoodScore, e.Content, tags, e.CreatedAt)
	return err
}

// GetEntry retrieves one entry scoped to a session
func (p *PostgresStore) GetEntry(ctx context.Context, sessionID, id string) (*Entry, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, session_id, mood_score, content, tags, created_at
		FROM journal_entries
		WHERE session_id = $1 AND id = $2
	`, sessionID, id)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrEntryNotFound
	}
	return e, err
}

// ListBySession returns entries newest-first
func (p *PostgresStore) ListBySession(ctx context.Context, sessionID string, opts ListOptions) ([]*Entry, error) {
	query := `
		SELECT id, session_id, mood_score, content, tags, created_at
		FROM journal_entries
		WHERE session_id = $1
	`
	args := []any{sessionID}

	if opts.Start != nil {
		args = append(args, *opts.Start)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if opts.End != nil {
		args = append(args, *opts.End)
		query += ` AND created_at <= $` + strconv.Itoa(len(args))
	}

	query += ` ORDER BY created_at DESC, id DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListSince returns entries at or after since in chronological order
func (p *PostgresStore) ListSince(ctx context.Context, sessionID string, since time.Time) ([]*Entry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, session_id, mood_score, content, tags, created_at
		FROM journal_entries
		WHERE session_id = $1 AND created_at >= $2
		ORDER BY created_at ASC, id ASC
	`, sessionID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// DeleteEntry removes an entry scoped to a session
func (p *PostgresStore) DeleteEntry(ctx context.Context, sessionID, id string) error {
	result, err := p.db.ExecContext(ctx, `
		DELETE FROM journal_entries WHERE session_id = $1 AND id = $2
	`, sessionID, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// Count returns the total number of entries
func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal_entries`).Scan(&n)
	return n, err
}

// AverageMood returns the mean mood score across all entries
func (p *PostgresStore) AverageMood(ctx context.Context) (float64, error) {
	var avg float64
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(mood_score), 0) FROM journal_entries
	`).Scan(&avg)
	return avg, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	e := &Entry{}
	var tagsJSON []byte
	if err := row.Scan(&e.ID, &e.SessionID, &e.MoodScore, &e.Content, &tagsJSON, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Tags = []string{}
	_ = json.Unmarshal(tagsJSON, &e.Tags)
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	entries := []*Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

