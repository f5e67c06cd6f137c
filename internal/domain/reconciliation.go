package domain

import "time"

// Reconciliation event kinds. Each names a side effect a workflow left behind
// after a later step failed.
const (
	// A token was minted but the verification email was never delivered.
	EventVerificationMailFailed = "verification_mail_failed"
	// A token was consumed by validation but the directory was not updated.
	EventTokenConsumedUnmarked = "token_consumed_user_unmarked"
)

// ReconciliationEvent reports a partial workflow failure for out-of-band repair.
type ReconciliationEvent struct {
	Kind       string    `json:"kind"`
	UserID     int64     `json:"user_id"`
	Recipient  string    `json:"recipient,omitempty"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
