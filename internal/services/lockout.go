package services

import (
	"time"
)

// LockoutPolicy decides whether an account may attempt authentication given
// its failure counter and lockout expiry. Pure: all inputs are explicit, the
// clock is a parameter.
type LockoutPolicy struct {
	Threshold int           // failures that trigger a lockout
	Duration  time.Duration // lockout length from the triggering failure
}

// DefaultLockoutPolicy returns the standard 5-failures / 15-minute policy.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		Threshold: 5,
		Duration:  15 * time.Minute,
	}
}

// LockoutDecision is the outcome of evaluating the policy.
type LockoutDecision struct {
	Locked           bool
	RemainingMinutes int // ceil of time left; minutes only, never the exact timestamp
	Until            time.Time
}

// Evaluate checks whether an active lockout is in force at now. The remaining
// time is rounded up to whole minutes so callers surface coarse durations.
func (p LockoutPolicy) Evaluate(lockedUntil *time.Time, now time.Time) LockoutDecision {
	if lockedUntil == nil || !now.Before(*lockedUntil) {
		return LockoutDecision{}
	}

	remaining := lockedUntil.Sub(now)
	minutes := int((remaining + time.Minute - 1) / time.Minute)

	return LockoutDecision{
		Locked:           true,
		RemainingMinutes: minutes,
		Until:            *lockedUntil,
	}
}

// AttemptsRemainingHint returns how many attempts to disclose after a failure
// that left the counter at failedCount. The warning is shown only inside the
// final two attempts: values of 1 or 2, otherwise 0 (no disclosure).
func (p LockoutPolicy) AttemptsRemainingHint(failedCount int) int {
	remaining := p.Threshold - failedCount
	if remaining >= 1 && remaining <= 2 {
		return remaining
	}
	return 0
}
