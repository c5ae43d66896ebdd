package services

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	config "github.com/eloquentlog/montafon/configs"
	"github.com/eloquentlog/montafon/internal/core/ports"
	"github.com/eloquentlog/montafon/internal/utils"
)

// PasswordService hashes and verifies passwords with bcrypt. The cost
// factor comes from configuration so tests can use a cheap one.
type PasswordService struct {
	cost int
}

func NewPasswordService(cfg *config.PasswordConfig) ports.PasswordService {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordService{cost: cost}
}

// Hash validates the plaintext against the password policy and returns
// its salted bcrypt hash. The length cap inside the policy keeps the
// input within bcrypt's 72-byte limit. The plaintext is never logged or
// echoed back in errors.
func (s *PasswordService) Hash(plaintext string) (string, error) {
	if err := utils.ValidatePasswordStrength(plaintext); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether the plaintext matches the stored hash. The
// comparison inside bcrypt is constant-time.
func (s *PasswordService) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
