package orgs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// maxCodeAttempts bounds retries when a generated org code collides.
const maxCodeAttempts = 5

const orgColumns = `id, name, slug, COALESCE(description, ''), org_code, created_at, updated_at`

// PostgresService implements the Service interface using PostgreSQL
type PostgresService struct {
	db      *sql.DB
	newCode func() (string, error)
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db, newCode: GenerateOrgCode}
}

// CreateOrganization inserts org, deriving the slug from the name when empty
// and assigning a fresh org code.
func (s *PostgresService) CreateOrganization(ctx context.Context, org *Organization) error {
	org.Name = strings.TrimSpace(org.Name)
	if org.Slug == "" {
		org.Slug = generateSlug(org.Name)
	} else {
		org.Slug = strings.ToLower(strings.TrimSpace(org.Slug))
	}
	if org.Slug == "" {
		return fmt.Errorf("organization slug is empty")
	}

	query := `
		INSERT INTO organizations (name, slug, description, org_code)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return err
		}

		err = s.db.QueryRowContext(ctx, query, org.Name, org.Slug, nullString(org.Description), code).
			Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
		if err == nil {
			org.OrgCode = code
			return nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "organizations_org_code_key" {
			continue
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return fmt.Errorf("failed to create organization: no unique org code after %d attempts", maxCodeAttempts)
}

func (s *PostgresService) getOne(ctx context.Context, where string, arg interface{}) (*Organization, error) {
	org := &Organization{}
	err := s.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations WHERE `+where, arg).Scan(
		&org.ID, &org.Name, &org.Slug, &org.Description, &org.OrgCode, &org.CreatedAt, &org.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// GetOrganization retrieves an organization by ID
func (s *PostgresService) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	return s.getOne(ctx, "id = $1", id)
}

// GetOrganizationByCode resolves a join code, normalizing it first.
func (s *PostgresService) GetOrganizationByCode(ctx context.Context, code string) (*Organization, error) {
	normalized, err := NormalizeOrgCode(code)
	if err != nil {
		return nil, err
	}
	return s.getOne(ctx, "org_code = $1", normalized)
}

// ListOrganizations lists all organizations by name
func (s *PostgresService) ListOrganizations(ctx context.Context) ([]*Organization, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var out []*Organization
	for rows.Next() {
		org := &Organization{}
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.Description, &org.OrgCode, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

// UpdateOrganization saves org's name and description. The slug and org
// code never change.
func (s *PostgresService) UpdateOrganization(ctx context.Context, org *Organization) error {
	err := s.db.QueryRowContext(ctx, `
		UPDATE organizations SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`, org.Name, nullString(org.Description), org.ID).Scan(&org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	return nil
}

// DeleteOrganization deletes an organization by ID
func (s *PostgresService) DeleteOrganization(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
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

// GetOrganizationStats counts members, pending members and documents.
func (s *PostgresService) GetOrganizationStats(ctx context.Context, id string) (*Stats, error) {
	stats := &Stats{OrgID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM profiles p WHERE p.org_id = o.id),
			(SELECT COUNT(*) FROM profiles p WHERE p.org_id = o.id AND p.approval_status = 'pending'),
			(SELECT COUNT(*) FROM documents d WHERE d.org_id = o.id)
		FROM organizations o
		WHERE o.id = $1
	`, id).Scan(&stats.MemberCount, &stats.PendingCount, &stats.DocumentCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization stats: %w", err)
	}
	return stats, nil
}

// generateSlug lower-cases name, turns spaces into dashes and drops anything
// other than [a-z0-9-].
func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, slug)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
