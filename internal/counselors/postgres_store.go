package counselors

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/lib/pq"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed counselor store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// Migrate creates the counselors table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS counselors (
			id               VARCHAR(64) PRIMARY KEY,
			name             VARCHAR(200) NOT NULL,
			email            VARCHAR(255) NOT NULL,
			phone            VARCHAR(50),
			specialties      TEXT[] NOT NULL DEFAULT '{}',
			bio              TEXT,
			location         VARCHAR(200),
			experience_years INTEGER NOT NULL DEFAULT 0,
			education        TEXT[] NOT NULL DEFAULT '{}',
			certifications   TEXT[] NOT NULL DEFAULT '{}',
			languages        TEXT[] NOT NULL DEFAULT '{}',
			session_types    TEXT[] NOT NULL DEFAULT '{}',
			rate_per_session DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_available     BOOLEAN NOT NULL DEFAULT FALSE,
			is_verified      BOOLEAN NOT NULL DEFAULT FALSE,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_counselors_email
			ON counselors(LOWER(email));
		CREATE INDEX IF NOT EXISTS idx_counselors_verified
			ON counselors(is_verified, is_available);
	`)
	return err
}

const counselorColumns = `id, name, email, phone, specialties, bio, location,
	experience_years, education, certifications, languages, session_types,
	rate_per_session, is_available, is_verified, created_at, updated_at`

// CreateCounselor inserts a profile
func (p *PostgresStore) CreateCounselor(ctx context.Context, c *Counselor) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO counselors (`+counselorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, c.ID, c.Name, c.Email, nullStr(c.Phone), pq.Array(c.Specialties),
		nullStr(c.Bio), nullStr(c.Location), c.ExperienceYears,
		pq.Array(c.Education), pq.Array(c.Certifications), pq.Array(c.Languages),
		pq.Array(c.SessionTypes), c.RatePerSession, c.IsAvailable, c.IsVerified,
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetCounselor retrieves a profile by ID
func (p *PostgresStore) GetCounselor(ctx context.Context, id string) (*Counselor, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+counselorColumns+` FROM counselors WHERE id = $1
	`, id)

	c, err := scanCounselor(row)
	if err == sql.ErrNoRows {
		return nil, ErrCounselorNotFound
	}
	return c, err
}

// ListCounselors returns profiles matching the filter
func (p *PostgresStore) ListCounselors(ctx context.Context, f Filter) ([]*Counselor, error) {
	query := `SELECT ` + counselorColumns + ` FROM counselors WHERE 1=1`
	args := []any{}

	if f.Verified != nil {
		args = append(args, *f.Verified)
		query += ` AND is_verified = $` + strconv.Itoa(len(args))
	}
	if f.Available != nil {
		args = append(args, *f.Available)
		query += ` AND is_available = $` + strconv.Itoa(len(args))
	}
	if f.Specialty != "" {
		args = append(args, f.Specialty)
		query += ` AND $` + strconv.Itoa(len(args)) + ` ILIKE ANY(specialties)`
	}
	if f.Location != "" {
		args = append(args, "%"+f.Location+"%")
		query += ` AND location ILIKE $` + strconv.Itoa(len(args))
	}

	query += ` ORDER BY created_at ASC, id ASC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counselors := []*Counselor{}
	for rows.Next() {
		c, err := scanCounselor(rows)
		if err != nil {
			return nil, err
		}
		counselors = append(counselors, c)
	}
	return counselors, rows.Err()
}

// Specialties returns distinct specialties of verified counselors, sorted
func (p *PostgresStore) Specialties(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT unnest(specialties) AS specialty
		FROM counselors WHERE is_verified = TRUE
		ORDER BY specialty ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	specialties := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		specialties = append(specialties, s)
	}
	return specialties, rows.Err()
}

// SetVerified flips the verification and availability flags
func (p *PostgresStore) SetVerified(ctx context.Context, id string, verified, available bool, at time.Time) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE counselors SET is_verified = $2, is_available = $3, updated_at = $4
		WHERE id = $1
	`, id, verified, available, at)
	if err != nil {
		return err
	}
	return checkFound(result)
}

// DeleteCounselor removes a profile
func (p *PostgresStore) DeleteCounselor(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM counselors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkFound(result)
}

// Counts returns verified and pending totals
func (p *PostgresStore) Counts(ctx context.Context) (verified, pending int, err error) {
	err = p.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE is_verified),
			COUNT(*) FILTER (WHERE NOT is_verified)
		FROM counselors
	`).Scan(&verified, &pending)
	return verified, pending, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCounselor(row rowScanner) (*Counselor, error) {
	c := &Counselor{}
	var phone, bio, location sql.NullString
	var specialties, education, certifications, languages, sessionTypes pq.StringArray

	err := row.Scan(&c.ID, &c.Name, &c.Email, &phone, &specialties, &bio, &location,
		&c.ExperienceYears, &education, &certifications, &languages, &sessionTypes,
		&c.RatePerSession, &c.IsAvailable, &c.IsVerified, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.Phone = phone.String
	c.Bio = bio.String
	c.Location = location.String
	c.Specialties = []string(specialties)
	c.Education = []string(education)
	c.Certifications = []string(certifications)
	c.Languages = []string(languages)
	c.SessionTypes = []string(sessionTypes)
	return c, nil
}

func checkFound(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCounselorNotFound
	}
	return nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
