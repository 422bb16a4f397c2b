package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const documentColumns = `id, title, owner_id, COALESCE(org_id::text, ''), is_public,
	COALESCE(file_url, ''), COALESCE(file_type, ''), created_at, updated_at`

// PostgresStore implements Store on the documents table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a document store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func scanDocument(row interface{ Scan(...interface{}) error }) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Title, &d.OwnerID, &d.OrgID, &d.IsPublic,
		&d.FileURL, &d.FileType, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListCopies(ctx context.Context, title, ownerID string) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+`
		FROM documents
		WHERE title = $1 AND owner_id = $2
		ORDER BY created_at`, title, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list document copies: %w", err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete document copies: %w", err)
	}
	return result.RowsAffected()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
