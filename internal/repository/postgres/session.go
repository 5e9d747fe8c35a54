package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/internal/repository"
)

type sessionRepository struct {
	BaseRepository
}

func NewSessionRepository(base BaseRepository) repository.SessionRepository {
	return &sessionRepository{base}
}

func (r *sessionRepository) Create(ctx context.Context, s *model.Session) error {
	query := `
		INSERT INTO auth_sessions (id, user_id, email, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query, s.ID, s.UserID, s.Email, s.IssuedAt, s.ExpiresAt)
	r.observe("session_create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	query := `
		SELECT id, user_id, email, issued_at, expires_at, revoked_at
		FROM auth_sessions
		WHERE id = $1
	`

	var s model.Session
	start := time.Now()
	err := r.db.GetContext(ctx, &s, query, id)
	r.observe("session_get", start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// Revoke keeps the first revocation time when called more than once.
func (r *sessionRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE auth_sessions
		SET revoked_at = COALESCE(revoked_at, $2)
		WHERE id = $1
	`

	start := time.Now()
	result, err := r.db.ExecContext(ctx, query, id, at)
	r.observe("session_revoke", start, err)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *sessionRepository) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM auth_sessions
		WHERE expires_at < $1 OR revoked_at < $1
	`

	start := time.Now()
	result, err := r.db.ExecContext(ctx, query, before)
	r.observe("session_sweep", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}
