package models

import (
	"time"
)

// Account roles
const (
	RoleAdmin  = "admin"
	RoleCoach  = "coach"
	RoleParent = "parent"
	RolePlayer = "player"
)

// Account statuses
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusRejected = "rejected"
	StatusDisabled = "disabled"
)

type Account struct {
	ID                string
	Email             string
	PasswordHash      string // never serialized
	Name              string
	Phone             string
	Role              string     // "admin", "coach", "parent", "player"
	Status            string     // "pending", "active", "rejected", "disabled"
	FailedAttempts    int        // consecutive failed logins since last success/unlock
	LockedUntil       *time.Time // temporary lockout expiration
	LastLoginAt       *time.Time
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsLocked reports whether the account is under an active lockout at the given time.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// ValidRole reports whether role is one of the fixed role enumeration.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCoach, RoleParent, RolePlayer:
		return true
	}
	return false
}

// SelfRegistered reports whether the role registers itself (status starts
// "pending") as opposed to being created by an operator (status "active").
func SelfRegistered(role string) bool {
	return role == RoleParent || role == RolePlayer
}
