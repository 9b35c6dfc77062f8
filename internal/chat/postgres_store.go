package chat

import (
	"context"
	"database/sql"

	"github.com/mbd888/mindsupport/internal/pagination"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed chat store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// Migrate creates the chat_messages table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chat_messages (
			id          VARCHAR(36) PRIMARY KEY,
			session_id  VARCHAR(36) NOT NULL,
			role        VARCHAR(20) NOT NULL,
			content     TEXT NOT NULL,
			timestamp   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, timestamp, id);
	`)
	return err
}

// AppendMessage stores a message
func (p *PostgresStore) AppendMessage(ctx context.Context, m *Message) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.SessionID, m.Role, m.Content, m.Timestamp)
	return err
}

// ListRecent returns the most recent limit messages in chronological order
func (p *PostgresStore) ListRecent(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, timestamp FROM (
			SELECT id, session_id, role, content, timestamp
			FROM chat_messages
			WHERE session_id = $1
			ORDER BY timestamp DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY timestamp ASC, id ASC
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListAfter returns up to limit messages after the cursor position
func (p *PostgresStore) ListAfter(ctx context.Context, sessionID string, after *pagination.Cursor, limit int) ([]*Message, error) {
	var rows *sql.Rows
	var err error

	if after != nil {
		rows, err = p.db.QueryContext(ctx, `
			SELECT id, session_id, role, content, timestamp
			FROM chat_messages
			WHERE session_id = $1 AND (timestamp, id) > ($2, $3)
			ORDER BY timestamp ASC, id ASC
			LIMIT $4
		`, sessionID, after.CreatedAt, after.ID, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `
			SELECT id, session_id, role, content, timestamp
			FROM chat_messages
			WHERE session_id = $1
			ORDER BY timestamp ASC, id ASC
			LIMIT $2
		`, sessionID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// DeleteBySession removes all messages for a session
func (p *PostgresStore) DeleteBySession(ctx context.Context, sessionID string) (int, error) {
	result, err := p.db.ExecContext(ctx, `
		DELETE FROM chat_messages WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// CountMessages returns the total number of stored messages
func (p *PostgresStore) CountMessages(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_messages`).Scan(&n)
	return n, err
}

func scanMessages(rows *sql.Rows) ([]*Message, error) {
	var msgs []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
