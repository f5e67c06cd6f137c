package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Clients wrap these so handlers can map to HTTP status codes without leaking
// transport details. Each kind is distinguishable with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")

	// Workflow level.
	ErrAlreadyVerified = errors.New("email already verified")

	// Mail.
	ErrMailFailure = errors.New("mail failure")

	// Token service.
	ErrTokenGeneration         = errors.New("could not generate token")
	ErrTokenNotFound           = errors.New("token not found")
	ErrTokenExpired            = errors.New("token expired")
	ErrTokenAlreadyUsed        = errors.New("token already used")
	ErrTokenServiceUnavailable = errors.New("token service is currently unavailable")

	// User directory.
	ErrUserNotFound         = errors.New("user not found")
	ErrDirectoryUnavailable = errors.New("user directory is currently unavailable")
)

// MailError is the only failure the mail layer produces. It keeps the
// recipient so callers can report which address failed, and matches
// ErrMailFailure under errors.Is.
type MailError struct {
	Recipient string
	Err       error
}

func (e *MailError) Error() string {
	return fmt.Sprintf("failed to send email to %s", e.Recipient)
}

func (e *MailError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMailFailure}
	}
	return []error{ErrMailFailure, e.Err}
}
