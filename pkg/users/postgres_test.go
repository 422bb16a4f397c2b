package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/docvault/pkg/rbac"
)

var profileCols = []string{"id", "email", "full_name", "role", "org_id", "is_active", "approval_status", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStore_GetByID(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM profiles WHERE id = \\$1").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(profileCols).
			AddRow("u1", "a@example.com", "Ann", "admin", "o1", true, "approved", now, now))

	p, err := store.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, p.Role)
	assert.Equal(t, "o1", p.OrgID)
	assert.True(t, p.CanSignIn())
	assert.Equal(t, rbac.Principal{ID: "u1", Role: rbac.RoleAdmin, OrgID: "o1"}, p.Principal())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetByEmail_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM profiles WHERE email = \\$1").
		WithArgs("bob@example.com").
		WillReturnRows(sqlmock.NewRows(profileCols))

	_, err := store.GetByEmail(context.Background(), "  Bob@Example.com ")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Create(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO profiles").
		WithArgs("new@example.com", "New User", "user", sqlmock.AnyArg(), true, "pending").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("u9", now, now))
	mock.ExpectExec("INSERT INTO credentials").
		WithArgs("u9", "$2a$12$hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p := &Profile{Email: " New@Example.com", FullName: " New User ", Role: rbac.RoleUser, OrgID: "o1", IsActive: true, ApprovalStatus: ApprovalPending}
	require.NoError(t, store.Create(context.Background(), p, "$2a$12$hash"))
	assert.Equal(t, "u9", p.ID)
	assert.False(t, p.CanSignIn())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Create_DuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO profiles").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := store.Create(context.Background(), &Profile{Email: "dup@example.com", Role: rbac.RoleUser}, "h")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Updates(t *testing.T) {
	tests := []struct {
		name  string
		query string
		run   func(*PostgresStore) error
	}{
		{"role", "UPDATE profiles SET role", func(s *PostgresStore) error {
			return s.UpdateRole(context.Background(), "u1", rbac.RoleAdmin)
		}},
		{"org", "UPDATE profiles SET org_id", func(s *PostgresStore) error {
			return s.UpdateOrg(context.Background(), "u1", "")
		}},
		{"active", "UPDATE profiles SET is_active", func(s *PostgresStore) error {
			return s.SetActive(context.Background(), "u1", false)
		}},
		{"approval", "UPDATE profiles SET approval_status", func(s *PostgresStore) error {
			return s.SetApproval(context.Background(), "u1", ApprovalApproved)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.ExpectExec(tt.query).WillReturnResult(sqlmock.NewResult(0, 1))
			assert.NoError(t, tt.run(store))

			mock.ExpectExec(tt.query).WillReturnResult(sqlmock.NewResult(0, 0))
			assert.ErrorIs(t, tt.run(store), ErrNotFound)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_SetApproval_Invalid(t *testing.T) {
	store, _ := newMockStore(t)
	assert.Error(t, store.SetApproval(context.Background(), "u1", "maybe"))
}

func TestPostgresStore_ListPending(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM profiles").
		WithArgs("o1", "pending").
		WillReturnRows(sqlmock.NewRows(profileCols).
			AddRow("u1", "a@example.com", "A", "user", "o1", true, "pending", now, now).
			AddRow("u2", "b@example.com", "B", "user", "o1", true, "pending", now, now))

	got, err := store.ListPending(context.Background(), "o1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByOrg(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM profiles WHERE org_id = \\$1 ORDER BY created_at DESC").
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows(profileCols).
			AddRow("u2", "b@example.com", "B", "admin", "o1", true, "approved", now, now).
			AddRow("u1", "a@example.com", "A", "user", "o1", false, "pending", now, now))

	got, err := store.ListByOrg(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rbac.RoleAdmin, got[0].Role)
	assert.False(t, got[1].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM credentials").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM profiles").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, store.Delete(context.Background(), "u1"))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM credentials").WillReturnError(errors.New("locked"))
	mock.ExpectRollback()
	assert.Error(t, store.Delete(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PasswordHash(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT password_hash FROM credentials").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow("$2a$12$x"))
	hash, err := store.PasswordHash(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "$2a$12$x", hash)

	mock.ExpectQuery("SELECT password_hash FROM credentials").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}))
	_, err = store.PasswordHash(context.Background(), "u2")
	assert.ErrorIs(t, err, ErrNotFound)
}
