package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Credential and token state errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetToken  = errors.New("invalid or expired reset code")
	ErrResetTokenExpired  = errors.New("reset code has expired")
	ErrPasswordReused     = errors.New("password was used recently and cannot be reused")

	// Infrastructure errors, surfaced as a distinct try-again-later class
	ErrEmailDelivery = errors.New("failed to send email, please try again later")
)

// LockedError indicates the account is under an active lockout. RemainingMinutes
// is rounded up so callers never disclose the exact lockout timestamp precision.
type LockedError struct {
	RemainingMinutes int
	Until            time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account is locked, try again in %d minute(s)", e.RemainingMinutes)
}

// CredentialsError is the generic invalid-credentials failure. AttemptsRemaining
// is 0 unless the lockout policy permits disclosing an advance warning.
type CredentialsError struct {
	AttemptsRemaining int
}

func (e *CredentialsError) Error() string {
	if e.AttemptsRemaining > 0 {
		return fmt.Sprintf("invalid email or password, %d attempt(s) remaining before lockout", e.AttemptsRemaining)
	}
	return "invalid email or password"
}

// StatusError indicates the password was correct but the account status does
// not permit login. Only surfaced after password verification.
type StatusError struct {
	Status string
}

func (e *StatusError) Error() string {
	switch e.Status {
	case StatusPending:
		return "account is pending approval"
	case StatusRejected:
		return "account registration was rejected"
	default:
		return fmt.Sprintf("account is %s", e.Status)
	}
}
