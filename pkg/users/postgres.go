package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/platinummonkey/docvault/pkg/rbac"
)

const profileColumns = `id, email, full_name, role, org_id, is_active, approval_status, created_at, updated_at`

// PostgresStore implements Store on the profiles and credentials tables.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	p := &Profile{}
	var role, status string
	var orgID sql.NullString
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &role, &orgID, &p.IsActive, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Role = rbac.Role(role)
	p.OrgID = orgID.String
	p.ApprovalStatus = ApprovalStatus(status)
	return p, nil
}

// NormalizeEmail lower-cases and trims an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *PostgresStore) getOne(ctx context.Context, where string, arg interface{}) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE ` + where
	p, err := scanProfile(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetByID retrieves a profile by id
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Profile, error) {
	return s.getOne(ctx, "id = $1", id)
}

// GetByEmail retrieves a profile by normalized email
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	return s.getOne(ctx, "email = $1", NormalizeEmail(email))
}

// Create inserts a profile and its credential row in one transaction.
func (s *PostgresStore) Create(ctx context.Context, p *Profile, passwordHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p.Email = NormalizeEmail(p.Email)
	p.FullName = strings.TrimSpace(p.FullName)

	err = tx.QueryRowContext(ctx, `
		INSERT INTO profiles (email, full_name, role, org_id, is_active, approval_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, p.Email, p.FullName, string(p.Role), nullString(p.OrgID), p.IsActive, string(p.ApprovalStatus)).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO credentials (user_id, password_hash) VALUES ($1, $2)`, p.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile: %w", err)
	}
	return nil
}

// PasswordHash returns the stored bcrypt hash for userID.
func (s *PostgresStore) PasswordHash(ctx context.Context, userID string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM credentials WHERE user_id = $1`, userID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get credentials: %w", err)
	}
	return hash, nil
}

// ListPending lists members of orgID awaiting approval, oldest first.
func (s *PostgresStore) ListPending(ctx context.Context, orgID string) ([]*Profile, error) {
	return s.list(ctx, `WHERE org_id = $1 AND approval_status = $2 ORDER BY created_at ASC`,
		orgID, string(ApprovalPending))
}

// ListByOrg lists every member of orgID, newest first.
func (s *PostgresStore) ListByOrg(ctx context.Context, orgID string) ([]*Profile, error) {
	return s.list(ctx, `WHERE org_id = $1 ORDER BY created_at DESC`, orgID)
}

func (s *PostgresStore) list(ctx context.Context, clause string, args ...interface{}) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var out []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) update(ctx context.Context, set string, value interface{}, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET `+set+` = $1, updated_at = NOW() WHERE id = $2`, value, id)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", set, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRole sets the role of a profile
func (s *PostgresStore) UpdateRole(ctx context.Context, id string, role rbac.Role) error {
	return s.update(ctx, "role", string(role), id)
}

// UpdateOrg moves a profile to orgID; empty clears the membership.
func (s *PostgresStore) UpdateOrg(ctx context.Context, id, orgID string) error {
	return s.update(ctx, "org_id", nullString(orgID), id)
}

// SetActive enables or disables a profile
func (s *PostgresStore) SetActive(ctx context.Context, id string, active bool) error {
	return s.update(ctx, "is_active", active, id)
}

// SetApproval records an approval decision
func (s *PostgresStore) SetApproval(ctx context.Context, id string, status ApprovalStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid approval status %q", status)
	}
	return s.update(ctx, "approval_status", string(status), id)
}

// Delete removes the credential row and then the profile.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
