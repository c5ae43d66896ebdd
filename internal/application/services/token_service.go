package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	config "github.com/eloquentlog/montafon/configs"
	"github.com/eloquentlog/montafon/internal/core/domain/auth"
	"github.com/eloquentlog/montafon/internal/core/ports"
)

// TokenService issues and verifies HS256-signed session tokens. The
// signing secret is process-wide, handed in at construction; expiry is the
// only invalidation mechanism.
type TokenService struct {
	jwtConfig *config.JWTConfig
}

func NewTokenService(jwtConfig *config.JWTConfig) ports.TokenService {
	return &TokenService{jwtConfig: jwtConfig}
}

// Issue signs a session token for the user with the given ttl. A zero
// ttl falls back to the configured access token TTL.
func (s *TokenService) Issue(userID int64, emailAddr string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.jwtConfig.AccessTokenTTL
	}

	now := time.Now()
	claims := &auth.Claims{
		UserID: userID,
		Email:  emailAddr,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a session token and returns its claims.
// Failures map onto the auth error taxonomy: malformed input, an invalid
// signature, or an elapsed expiry.
func (s *TokenService) Verify(tokenString string) (*auth.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &auth.Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC (prevent alg confusion)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, auth.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, auth.ErrSignatureInvalid
		default:
			return nil, auth.ErrTokenMalformed
		}
	}

	claims, ok := token.Claims.(*auth.Claims)
	if !ok || !token.Valid {
		return nil, auth.ErrTokenMalformed
	}

	return claims, nil
}
