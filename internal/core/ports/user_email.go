package ports

import (
	"context"

	"github.com/eloquentlog/montafon/internal/core/domain/email"
)

// UserEmailRepository persists email identity records. Implementations
// must enforce global uniqueness of the email column and serialize
// concurrent writers through the record's version: Update only applies
// when the caller's version matches the stored one, and returns
// email.ErrStaleRecord otherwise.
type UserEmailRepository interface {
	Create(ctx context.Context, record *email.UserEmail) error
	GetByID(ctx context.Context, id int64) (*email.UserEmail, error)
	GetByToken(ctx context.Context, token string) (*email.UserEmail, error)
	Update(ctx context.Context, record *email.UserEmail) error
}
