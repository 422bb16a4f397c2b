package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Store persists encrypted API keys.
type Store interface {
	// Replace deactivates the user's keys for key.Provider and inserts key as
	// the active one, atomically.
	Replace(ctx context.Context, key *APIKey) error
	// ListByUser returns metadata only, newest first.
	ListByUser(ctx context.Context, userID string) ([]*APIKey, error)
	// ActiveForProvider returns the active key including the ciphertext.
	ActiveForProvider(ctx context.Context, userID string, provider Provider) (*APIKey, error)
	// Delete hard-deletes a key owned by userID.
	Delete(ctx context.Context, id, userID string) error
}

// PostgresStore implements Store on the ai_api_keys table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Replace(ctx context.Context, key *APIKey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE ai_api_keys SET is_active = false, updated_at = NOW()
		WHERE user_id = $1 AND provider = $2 AND is_active = true
	`, key.UserID, string(key.Provider)); err != nil {
		return fmt.Errorf("failed to deactivate previous keys: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO ai_api_keys (user_id, provider, encrypted_key, iv, auth_tag, label, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, true)
		RETURNING id, created_at, updated_at
	`, key.UserID, string(key.Provider), key.Secret.Ciphertext, key.Secret.IV, key.Secret.AuthTag, key.Label).
		Scan(&key.ID, &key.CreatedAt, &key.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert api key: %w", err)
	}
	key.IsActive = true

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, provider, label, is_active, created_at, updated_at
		FROM ai_api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	out := []*APIKey{}
	for rows.Next() {
		k := &APIKey{}
		var provider string
		if err := rows.Scan(&k.ID, &k.UserID, &provider, &k.Label, &k.IsActive, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		k.Provider = Provider(provider)
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ActiveForProvider(ctx context.Context, userID string, provider Provider) (*APIKey, error) {
	k := &APIKey{}
	var p string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, label, is_active, created_at, updated_at, encrypted_key, iv, auth_tag
		FROM ai_api_keys
		WHERE user_id = $1 AND provider = $2 AND is_active = true
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, string(provider)).Scan(
		&k.ID, &k.UserID, &p, &k.Label, &k.IsActive, &k.CreatedAt, &k.UpdatedAt,
		&k.Secret.Ciphertext, &k.Secret.IV, &k.Secret.AuthTag,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active api key: %w", err)
	}
	k.Provider = Provider(p)
	return k, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM ai_api_keys WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
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
