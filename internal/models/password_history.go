package models

import "time"

// PasswordHistoryEntry archives a prior password hash for reuse prevention.
// At most the 5 most recent entries per account are retained.
type PasswordHistoryEntry struct {
	ID           string    `db:"id"`
	AccountID    string    `db:"account_id"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// PasswordHistoryDepth is the number of prior hashes retained and checked.
const PasswordHistoryDepth = 5
