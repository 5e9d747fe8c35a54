package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is the live proof of authentication for one subject.
type Session struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	Email     string     `json:"email" db:"email"`
	IssuedAt  time.Time  `json:"issued_at" db:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	RevokedAt *time.Time `json:"-" db:"revoked_at"`
	Token     string     `json:"-" db:"-"`
}

// Subject is the opaque user id used to scope profile and record lookups.
func (s *Session) Subject() string {
	return s.UserID.String()
}

// Valid reports whether the session is unrevoked and inside its validity window at t.
func (s *Session) Valid(t time.Time) bool {
	if s == nil || s.RevokedAt != nil {
		return false
	}
	return t.Before(s.ExpiresAt)
}
