package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/internal/repository"
)

func TestIdentityCreate(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewIdentityRepository(base)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO identities").
		WithArgs(sqlmock.AnyArg(), "ada@example.com", "hash", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	identity := &model.Identity{Email: " Ada@Example.com ", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), identity))

	assert.NotEqual(t, uuid.Nil, identity.ID)
	assert.Equal(t, "ada@example.com", identity.Email)
	assert.NotNil(t, identity.Metadata)
}

func TestIdentityCreateDuplicate(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewIdentityRepository(base)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO identities").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &model.Identity{Email: "ada@example.com", PasswordHash: "hash"})

	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestIdentityGetByEmail(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewIdentityRepository(base)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, email, password_hash, metadata, created_at").
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "metadata", "created_at"}).
			AddRow(id.String(), "ada@example.com", "hash", []byte(`{"first_name":"Ada"}`), time.Now()))
	mock.ExpectQuery("SELECT id, email, password_hash, metadata, created_at").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "metadata", "created_at"}))

	identity, err := repo.GetByEmail(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, identity.ID)
	assert.Equal(t, "Ada", identity.Metadata["first_name"])

	_, err = repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewSessionRepository(base)
	ctx := context.Background()
	now := time.Now().UTC()

	s := &model.Session{ID: uuid.New(), UserID: uuid.New(), Email: "ada@example.com", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}

	mock.ExpectExec("INSERT INTO auth_sessions").
		WithArgs(s.ID, s.UserID, s.Email, s.IssuedAt, s.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE auth_sessions").
		WithArgs(s.ID, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE auth_sessions").
		WithArgs(sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Create(ctx, s))
	require.NoError(t, repo.Revoke(ctx, s.ID, now))
	assert.ErrorIs(t, repo.Revoke(ctx, uuid.New(), now), repository.ErrNotFound)
}

func TestSessionGet(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewSessionRepository(base)
	id, userID := uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("FROM auth_sessions").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "email", "issued_at", "expires_at", "revoked_at"}).
			AddRow(id.String(), userID.String(), "ada@example.com", now, now.Add(time.Hour), nil))
	mock.ExpectQuery("FROM auth_sessions").
		WillReturnError(errors.New("connection reset"))

	s, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, userID, s.UserID)
	assert.Nil(t, s.RevokedAt)

	_, err = repo.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteExpiredBefore(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewSessionRepository(base)
	cutoff := time.Now().UTC()

	mock.ExpectExec("DELETE FROM auth_sessions").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteExpiredBefore(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestMigrate(t *testing.T) {
	base, mock := setupMockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS identities").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), base.GetDB()))
}
