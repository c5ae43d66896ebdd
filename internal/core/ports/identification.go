package ports

import (
	"context"
	"time"

	"github.com/eloquentlog/montafon/internal/core/domain/email"
)

// IdentificationService drives the email identification state machine.
type IdentificationService interface {
	// Issue generates a fresh identification token for a pending record,
	// persists it and enqueues the dispatch job as one logical step.
	// Any previously issued token becomes permanently invalid.
	Issue(ctx context.Context, recordID int64) (*email.UserEmail, error)

	// Verify consumes a presented token. On success the record
	// transitions to done exactly once; concurrent calls resolve to one
	// winner.
	Verify(ctx context.Context, recordID int64, presentedToken string) (*email.UserEmail, error)

	// VerifyByToken resolves the record holding the presented token and
	// verifies it. A token no record holds fails with
	// email.ErrTokenMismatch.
	VerifyByToken(ctx context.Context, presentedToken string) (*email.UserEmail, error)
}

// TokenGenerator produces identification tokens with a fixed validity
// window.
type TokenGenerator interface {
	Generate() (token string, expiresAt time.Time, err error)
}
