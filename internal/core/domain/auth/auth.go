package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the session claims carried inside a signed session token.
type Claims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Session token verification errors. Expiry is the only invalidation
// mechanism; there is no revocation list.
var (
	ErrTokenMalformed   = errors.New("session token malformed")
	ErrSignatureInvalid = errors.New("session token signature invalid")
	ErrTokenExpired     = errors.New("session token expired")
)
