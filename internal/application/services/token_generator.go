package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/eloquentlog/montafon/internal/core/ports"
)

const identificationTokenBytes = 32

// IdentificationTokenGenerator produces identification tokens from a
// cryptographically secure source: 32 random bytes, hex-encoded to a
// 64-character string (256 bits of entropy). Collisions are treated as
// impossible; no uniqueness check is performed against existing tokens.
type IdentificationTokenGenerator struct {
	validityWindow time.Duration
	now            func() time.Time
}

// NewIdentificationTokenGenerator creates a generator whose tokens expire
// validityWindow after issuance.
func NewIdentificationTokenGenerator(validityWindow time.Duration) *IdentificationTokenGenerator {
	return &IdentificationTokenGenerator{
		validityWindow: validityWindow,
		now:            time.Now,
	}
}

var _ ports.TokenGenerator = (*IdentificationTokenGenerator)(nil)

// Generate returns a fresh token and its expiry instant.
func (g *IdentificationTokenGenerator) Generate() (string, time.Time, error) {
	buf := make([]byte, identificationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate identification token: %w", err)
	}
	return hex.EncodeToString(buf), g.now().UTC().Add(g.validityWindow), nil
}
