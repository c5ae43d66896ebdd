package email

import (
	"time"
)

// UserEmail is an email address claimed by a user, together with the state
// of the identification handshake that proves the user controls it.
//
// A record starts out pending with no token. Issuing an identification
// token keeps it pending; a successful verification moves it to done,
// clears the token and stamps IdentificationTokenGrantedAt. Done is
// terminal: the record is never reset to pending.
type UserEmail struct {
	ID                           int64               `json:"id" db:"id"`
	UserID                       int64               `json:"user_id" db:"user_id"`
	Email                        *string             `json:"email" db:"email"`
	Role                         Role                `json:"role" db:"role"`
	IdentificationState          IdentificationState `json:"identification_state" db:"identification_state"`
	IdentificationToken          *string             `json:"-" db:"identification_token"`
	IdentificationTokenExpiresAt *time.Time          `json:"identification_token_expires_at" db:"identification_token_expires_at"`
	IdentificationTokenGrantedAt *time.Time          `json:"identification_token_granted_at" db:"identification_token_granted_at"`
	Version                      int64               `json:"-" db:"version"`
	CreatedAt                    time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt                    time.Time           `json:"updated_at" db:"updated_at"`
}

// Role distinguishes the user's primary address from additional ones.
// The identification core only stores and exposes it; which record is
// primary is decided by the account-management flow.
type Role string

const (
	RoleGeneral Role = "general"
	RolePrimary Role = "primary"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	switch r {
	case RoleGeneral, RolePrimary:
		return true
	default:
		return false
	}
}

// IdentificationState is the controlled field of the identification state
// machine.
type IdentificationState string

const (
	IdentificationStatePending IdentificationState = "pending"
	IdentificationStateDone    IdentificationState = "done"
)

func (s IdentificationState) String() string {
	return string(s)
}

// IsVerified reports whether the record reached the terminal done state.
func (ue *UserEmail) IsVerified() bool {
	return ue.IdentificationState == IdentificationStateDone
}

// HasToken reports whether an identification token is currently issued.
func (ue *UserEmail) HasToken() bool {
	return ue.IdentificationToken != nil && *ue.IdentificationToken != ""
}

// TokenExpiredAt reports whether the issued token has expired at the given
// instant. The expiry instant itself counts as expired. Records without a
// token or expiry are treated as expired.
func (ue *UserEmail) TokenExpiredAt(now time.Time) bool {
	if ue.IdentificationTokenExpiresAt == nil {
		return true
	}
	return !now.Before(*ue.IdentificationTokenExpiresAt)
}

// EmailAddress returns the address or an empty string when none is set.
func (ue *UserEmail) EmailAddress() string {
	if ue.Email == nil {
		return ""
	}
	return *ue.Email
}
