package models

import (
	"time"
)

// Audit action vocabulary. Fixed; new actions get a constant here.
const (
	AuditUserRegistration       = "USER_REGISTRATION"
	AuditUserLogin              = "USER_LOGIN"
	AuditPasswordChanged        = "PASSWORD_CHANGED"
	AuditPasswordResetRequested = "PASSWORD_RESET_REQUESTED"
	AuditPasswordResetCompleted = "PASSWORD_RESET_COMPLETED"
	AuditAccountLocked          = "ACCOUNT_LOCKED"
	AuditAccountUnlocked        = "ACCOUNT_UNLOCKED"
	AuditAccountApproved        = "ACCOUNT_APPROVED"
	AuditAccountRejected        = "ACCOUNT_REJECTED"
)

// AuditLog is one row of the append-only security audit trail. ActorID is
// nil for system-initiated events (e.g. a lockout applied by policy).
type AuditLog struct {
	ID        string    `db:"id"`
	Action    string    `db:"action"`
	ActorID   *string   `db:"actor_id"`
	TargetID  *string   `db:"target_id"`
	IPAddress *string   `db:"ip_address"`
	Detail    *string   `db:"detail"`
	CreatedAt time.Time `db:"created_at"`
}
