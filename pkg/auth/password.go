package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 12
	MinPasswordLen = 8
	MaxPasswordLen = 128

	// Symbols accepted toward the special-character requirement.
	PasswordSymbols = "!@#$%^&*()-_=+[]{};:,.?"
)

// PasswordValidationError holds strength-policy violations. Unlike credential
// failures these are fully disclosed to the caller: the caller already knows
// the password, so there is nothing to leak.
type PasswordValidationError struct {
	Violations []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "password does not meet requirements"
	}
	return "password " + strings.Join(e.Violations, ", ")
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword enforces the strength policy: minimum length plus at least
// one uppercase letter, one lowercase letter, one digit, and one symbol from
// PasswordSymbols.
func ValidatePassword(password string) error {
	violations := make([]string, 0)

	if len(password) < MinPasswordLen {
		violations = append(violations, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		violations = append(violations, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	hasSymbol := false

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(PasswordSymbols, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		violations = append(violations, "must contain at least one uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "must contain at least one lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "must contain at least one digit")
	}
	if !hasSymbol {
		violations = append(violations, fmt.Sprintf("must contain at least one of %s", PasswordSymbols))
	}

	if len(violations) > 0 {
		return &PasswordValidationError{Violations: violations}
	}

	return nil
}
