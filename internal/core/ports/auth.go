package ports

import (
	"time"

	"github.com/eloquentlog/montafon/internal/core/domain/auth"
)

// TokenService issues and verifies signed, expiring session tokens.
type TokenService interface {
	Issue(userID int64, email string, ttl time.Duration) (string, error)
	Verify(token string) (*auth.Claims, error)
}

// PasswordService hashes and verifies user passwords. Implementations
// never log or return the plaintext.
type PasswordService interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}
