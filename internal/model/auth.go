package model

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthRequest types
type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

type SignUpRequest struct {
	Email          string `json:"email" form:"email" binding:"required,email"`
	Password       string `json:"password" form:"password" binding:"required,min=6"`
	Role           Role   `json:"role" form:"role" binding:"required,hmsrole"`
	FirstName      string `json:"first_name" form:"first_name" binding:"required"`
	LastName       string `json:"last_name" form:"last_name" binding:"required"`
	Specialization string `json:"specialization,omitempty" form:"specialization"`
	LicenseNumber  string `json:"license_number,omitempty" form:"license_number"`
	Department     string `json:"department,omitempty" form:"department"`
}

// Metadata is stored alongside the identity.
func (r SignUpRequest) Metadata() JSONMap {
	m := JSONMap{
		"first_name": r.FirstName,
		"last_name":  r.LastName,
		"role":       string(r.Role),
	}
	for k, v := range map[string]string{
		"specialization": r.Specialization,
		"license_number": r.LicenseNumber,
		"department":     r.Department,
	} {
		if v != "" {
			m[k] = v
		}
	}
	return m
}

// Identity is a backend auth identity.
type Identity struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Metadata     JSONMap   `json:"metadata" db:"metadata"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// UserProfile carries the role assigned at signup.
type UserProfile struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Role      Role      `json:"role" db:"role"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Email     string    `json:"email" db:"email"`
}

// Row renders the profile as an insert payload.
func (p UserProfile) Row() Row {
	return Row{
		"user_id":    p.UserID.String(),
		"role":       string(p.Role),
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"email":      p.Email,
	}
}

// TokenClaims represents JWT claims of an access token
type TokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}
