package domain

// VerificationRequest identifies the subject of a verification workflow.
type VerificationRequest struct {
	UserID int64
}

// UserEmailStatus is a snapshot of the directory record for a user.
// It is never cached; every workflow run re-fetches it.
type UserEmailStatus struct {
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

// TokenValidationOutcome associates a validated token with the user it was minted for.
type TokenValidationOutcome struct {
	Valid  bool  `json:"valid"`
	UserID int64 `json:"userId"`
}
