package domain

import "time"

// EmailMessage is a fully-formed outbound message.
type EmailMessage struct {
	To      string `json:"toEmail" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
}

// Dispatch status values.
const (
	DispatchPending = "pending"
	DispatchSent    = "sent"
	DispatchFailed  = "failed"
)

// Dispatch is the audit record of one mail send attempt.
// PK: dispatch_id. ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type Dispatch struct {
	DispatchID string    `json:"id" dynamodbav:"dispatch_id"`
	Recipient  string    `json:"recipient" dynamodbav:"recipient"`
	Subject    string    `json:"subject" dynamodbav:"subject"`
	Status     string    `json:"status" dynamodbav:"status"`
	Error      string    `json:"error,omitempty" dynamodbav:"error,omitempty"`
	CreatedAt  time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt  time.Time `json:"updated" dynamodbav:"updated_at"`
	ExpiresAt  int64     `json:"-" dynamodbav:"expires_at,omitempty"`
}
