package email

import "errors"

// Identification state machine errors. These are security-relevant signals
// and are returned to the request layer untranslated; handlers map them to
// user-facing outcomes.
var (
	// ErrRecordNotFound indicates the record does not exist.
	ErrRecordNotFound = errors.New("user email not found")

	// ErrInvalidState indicates the operation is not valid for the
	// record's current identification state.
	ErrInvalidState = errors.New("operation invalid for identification state")

	// ErrAlreadyVerified indicates the record already reached the done
	// state; verification is not repeatable.
	ErrAlreadyVerified = errors.New("email already verified")

	// ErrNoPendingToken indicates no identification token has been issued
	// for the record.
	ErrNoPendingToken = errors.New("no pending identification token")

	// ErrTokenMismatch indicates the presented token does not match the
	// stored one.
	ErrTokenMismatch = errors.New("identification token mismatch")

	// ErrTokenExpired indicates the stored token's validity window has
	// elapsed. The record stays pending; a new token may be issued.
	ErrTokenExpired = errors.New("identification token expired")

	// ErrEmailTaken indicates the address is already claimed by another
	// record. Surfaced from the store's uniqueness constraint.
	ErrEmailTaken = errors.New("email already taken")

	// ErrStaleRecord indicates a concurrent writer updated the record
	// between read and write. Callers may reload and retry.
	ErrStaleRecord = errors.New("user email record is stale")
)
