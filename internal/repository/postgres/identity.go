package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/internal/repository"
)

const pqUniqueViolation = "23505"

type identityRepository struct {
	BaseRepository
}

func NewIdentityRepository(base BaseRepository) repository.IdentityRepository {
	return &identityRepository{base}
}

func (r *identityRepository) Create(ctx context.Context, identity *model.Identity) error {
	query := `
		INSERT INTO identities (id, email, password_hash, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	identity.ID = uuid.New()
	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	identity.CreatedAt = time.Now().UTC()
	if identity.Metadata == nil {
		identity.Metadata = model.JSONMap{}
	}

	start := time.Now()
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			identity.ID,
			identity.Email,
			identity.PasswordHash,
			identity.Metadata,
			identity.CreatedAt,
		)
		return err
	})
	r.observe("identity_create", start, err)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("identity %s: %w", identity.Email, repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}

	return nil
}

func (r *identityRepository) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	query := `
		SELECT id, email, password_hash, metadata, created_at
		FROM identities
		WHERE email = $1
	`

	var identity model.Identity
	start := time.Now()
	err := r.db.GetContext(ctx, &identity, query, strings.ToLower(strings.TrimSpace(email)))
	r.observe("identity_get", start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity by email: %w", err)
	}

	return &identity, nil
}
