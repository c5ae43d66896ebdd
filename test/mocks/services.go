package mocks

import (
	"context"
	"time"

	"github.com/eloquentlog/montafon/internal/core/domain/auth"
	"github.com/eloquentlog/montafon/internal/core/domain/email"
)

// IdentificationServiceMock is a lightweight mock for IdentificationService
type IdentificationServiceMock struct {
	IssueFn         func(ctx context.Context, recordID int64) (*email.UserEmail, error)
	VerifyFn        func(ctx context.Context, recordID int64, presentedToken string) (*email.UserEmail, error)
	VerifyByTokenFn func(ctx context.Context, presentedToken string) (*email.UserEmail, error)
}

func (m *IdentificationServiceMock) Issue(ctx context.Context, recordID int64) (*email.UserEmail, error) {
	if m.IssueFn != nil {
		return m.IssueFn(ctx, recordID)
	}
	return nil, email.ErrRecordNotFound
}

func (m *IdentificationServiceMock) Verify(ctx context.Context, recordID int64, presentedToken string) (*email.UserEmail, error) {
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, recordID, presentedToken)
	}
	return nil, email.ErrRecordNotFound
}

func (m *IdentificationServiceMock) VerifyByToken(ctx context.Context, presentedToken string) (*email.UserEmail, error) {
	if m.VerifyByTokenFn != nil {
		return m.VerifyByTokenFn(ctx, presentedToken)
	}
	return nil, email.ErrTokenMismatch
}

// TokenServiceMock is a lightweight mock for TokenService
type TokenServiceMock struct {
	IssueFn  func(userID int64, email string, ttl time.Duration) (string, error)
	VerifyFn func(token string) (*auth.Claims, error)
}

func (m *TokenServiceMock) Issue(userID int64, email string, ttl time.Duration) (string, error) {
	if m.IssueFn != nil {
		return m.IssueFn(userID, email, ttl)
	}
	return "", auth.ErrTokenMalformed
}

func (m *TokenServiceMock) Verify(token string) (*auth.Claims, error) {
	if m.VerifyFn != nil {
		return m.VerifyFn(token)
	}
	return nil, auth.ErrSignatureInvalid
}
