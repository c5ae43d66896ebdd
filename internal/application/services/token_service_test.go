package services_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	config "github.com/eloquentlog/montafon/configs"
	impl "github.com/eloquentlog/montafon/internal/application/services"
	"github.com/eloquentlog/montafon/internal/core/domain/auth"
	"github.com/eloquentlog/montafon/internal/core/ports"
)

func newTokenService(secret string) ports.TokenService {
	return impl.NewTokenService(&config.JWTConfig{
		Secret:         secret,
		AccessTokenTTL: 15 * time.Minute,
	})
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := newTokenService("secret")

	signed, err := svc.Issue(7, "oswald@example.org", time.Minute)
	require.NoError(t, err)

	claims, err := svc.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.UserID)
	require.Equal(t, "oswald@example.org", claims.Email)
	require.Equal(t, "7", claims.Subject)
}

func TestTokenService_Expired(t *testing.T) {
	svc := newTokenService("secret")

	signed, err := svc.Issue(7, "oswald@example.org", time.Millisecond)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = svc.Verify(signed)
	require.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestTokenService_Malformed(t *testing.T) {
	svc := newTokenService("secret")

	_, err := svc.Verify("not-a-token")
	require.ErrorIs(t, err, auth.ErrTokenMalformed)
}

func TestTokenService_WrongSecret(t *testing.T) {
	signed, err := newTokenService("secret-a").Issue(7, "", time.Minute)
	require.NoError(t, err)

	_, err = newTokenService("secret-b").Verify(signed)
	require.ErrorIs(t, err, auth.ErrSignatureInvalid)
}

func TestTokenService_RejectsUnsignedAlg(t *testing.T) {
	svc := newTokenService("secret")

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	tokenString, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(tokenString)
	require.Error(t, err)
}
