package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/stogden/crease/internal/models"
)

// ResetTokenRepository defines the interface for reset token storage
type ResetTokenRepository interface {
	Create(ctx context.Context, accountID, codeHash string, expiresAt time.Time) (*models.ResetToken, error)
	ListUnconsumed(ctx context.Context, accountID string) ([]*models.ResetToken, error)
	Consume(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// ResetTokenService issues and validates short-lived password-reset codes.
// Codes are 6 decimal digits, uniform over 000000-999999; only the bcrypt
// hash is persisted.
type ResetTokenService struct {
	repo   ResetTokenRepository
	expiry time.Duration
	logger *slog.Logger
}

// NewResetTokenService creates a new ResetTokenService
func NewResetTokenService(repo ResetTokenRepository, expiry time.Duration, logger *slog.Logger) *ResetTokenService {
	return &ResetTokenService{
		repo:   repo,
		expiry: expiry,
		logger: logger,
	}
}

// Issue generates a code, stores its hash, and returns the plaintext for
// delivery. The plaintext is never persisted.
func (s *ResetTokenService) Issue(ctx context.Context, accountID string, now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())

	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash reset code: %w", err)
	}

	if _, err := s.repo.Create(ctx, accountID, string(codeHash), now.Add(s.expiry)); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	return code, nil
}

// Validate finds the newest unconsumed token whose hash matches the supplied
// code. No match yields the generic invalid error whether the cause is a
// wrong code or no outstanding token; a matched-but-expired token fails with
// the expiry-specific error.
func (s *ResetTokenService) Validate(ctx context.Context, accountID, supplied string, now time.Time) (*models.ResetToken, error) {
	tokens, err := s.repo.ListUnconsumed(ctx, accountID)
	if err != nil {
		s.logger.Error("failed to list reset tokens", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	for _, token := range tokens {
		if bcrypt.CompareHashAndPassword([]byte(token.CodeHash), []byte(supplied)) != nil {
			continue
		}
		if token.IsExpired(now) {
			return nil, models.ErrResetTokenExpired
		}
		return token, nil
	}

	return nil, models.ErrInvalidResetToken
}

// Consume marks a validated token used. First caller wins: a concurrent
// consumer of the same row gets the generic invalid error.
func (s *ResetTokenService) Consume(ctx context.Context, id string) error {
	if err := s.repo.Consume(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidResetToken
		}
		s.logger.Error("failed to consume reset token", slog.String("token_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// PurgeExpired deletes expired unconsumed rows. Storage hygiene only.
func (s *ResetTokenService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx)
}
