package ports

import (
	"context"
	"errors"
)

// EmailDispatcher is the mail transport. The core depends only on this
// signature, not on any specific provider.
type EmailDispatcher interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ErrTransport indicates the mail transport failed to deliver. The
// dispatch worker retries these up to its attempt limit.
var ErrTransport = errors.New("email transport failure")
