package dto

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the decoded payload of a session token. The custom claim
// names (id, email, isAdmin) are part of the wire contract and must not
// change.
type SessionClaims struct {
	UserID  string `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

type ValidateTokenResponse struct {
	Valid bool       `json:"valid"`
	User  *TokenUser `json:"user,omitempty"`
}

type TokenUser struct {
	ID      string    `json:"id"`
	Email   string    `json:"email"`
	IsAdmin bool      `json:"isAdmin"`
	Expires time.Time `json:"expires"`
}
