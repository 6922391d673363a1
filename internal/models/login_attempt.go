package models

import "time"

// LoginAttempt is one row of the append-only authentication attempt ledger.
// A row is written for every login call, including ones where no matching
// account exists, so the trail cannot be used to probe registration.
type LoginAttempt struct {
	ID          string    `db:"id"`
	Email       string    `db:"email"` // as submitted, whether or not an account matches
	IPAddress   string    `db:"ip_address"`
	UserAgent   string    `db:"user_agent"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}
