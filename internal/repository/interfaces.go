package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hms-console/internal/model"
)

var (
	// ErrNotFound is returned when a lookup by key matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key already exists.
	ErrDuplicate = errors.New("record already exists")
	// ErrInvalidQuery is returned for unknown tables, columns, or operators.
	ErrInvalidQuery = errors.New("invalid query")
)

// All repository interfaces in one file
type (
	// IdentityRepository stores backend auth identities
	IdentityRepository interface {
		Create(ctx context.Context, identity *model.Identity) error
		GetByEmail(ctx context.Context, email string) (*model.Identity, error)
	}

	// SessionRepository stores issued auth sessions
	SessionRepository interface {
		Create(ctx context.Context, session *model.Session) error
		Get(ctx context.Context, id uuid.UUID) (*model.Session, error)
		Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
		DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// RecordRepository is the uniform contract over named record collections.
	RecordRepository interface {
		// QueryOne returns nil, nil when no row matches.
		QueryOne(ctx context.Context, table string, filter model.Filter) (model.Row, error)
		QueryMany(ctx context.Context, table string, filter model.Filter, order *model.Order, limit int) ([]model.Row, error)
		CountWhere(ctx context.Context, table string, filter model.Filter) (int64, error)
		Insert(ctx context.Context, table string, payload model.Row) (model.Row, error)
		Update(ctx context.Context, table, id string, payload model.Row) (model.Row, error)
		Delete(ctx context.Context, table, id string) error
	}
)
