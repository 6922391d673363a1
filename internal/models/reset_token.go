package models

import "time"

// ResetToken is a stored password-reset credential. Only the bcrypt hash of
// the 6-digit code is persisted; the plaintext exists once, in the email.
type ResetToken struct {
	ID         string     `db:"id"`
	AccountID  string     `db:"account_id"`
	CodeHash   string     `db:"code_hash"`
	ExpiresAt  time.Time  `db:"expires_at"`
	ConsumedAt *time.Time `db:"consumed_at"`
	CreatedAt  time.Time  `db:"created_at"`
}

// IsExpired checks if the token has expired at the given time.
func (t *ResetToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
