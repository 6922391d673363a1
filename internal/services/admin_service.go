package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stogden/crease/internal/models"
)

// AdminAccountRepository defines the operator-facing credential store operations
type AdminAccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	Unlock(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id, status string) (*models.Account, error)
}

// AdminService handles operator actions on accounts: unlocking and the
// pending-approval lifecycle.
type AdminService struct {
	accounts AdminAccountRepository
	audit    *AuditService
	logger   *slog.Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(accounts AdminAccountRepository, audit *AuditService, logger *slog.Logger) *AdminService {
	return &AdminService{
		accounts: accounts,
		audit:    audit,
		logger:   logger,
	}
}

// Unlock clears an account's lockout and resets its failure counter.
func (s *AdminService) Unlock(ctx context.Context, actorID, accountID, ipAddress string) error {
	if err := s.accounts.Unlock(ctx, accountID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to unlock account", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.Record(ctx, models.AuditAccountUnlocked, &actorID, &accountID, ipAddress)
	s.logger.Info("account unlocked", slog.String("account_id", accountID), slog.String("actor_id", actorID))

	return nil
}

// Approve moves a pending account to active.
func (s *AdminService) Approve(ctx context.Context, actorID, accountID, ipAddress string) (*AccountResponse, error) {
	return s.transition(ctx, actorID, accountID, ipAddress, models.StatusActive, models.AuditAccountApproved)
}

// Reject moves a pending account to rejected.
func (s *AdminService) Reject(ctx context.Context, actorID, accountID, ipAddress string) (*AccountResponse, error) {
	return s.transition(ctx, actorID, accountID, ipAddress, models.StatusRejected, models.AuditAccountRejected)
}

func (s *AdminService) transition(ctx context.Context, actorID, accountID, ipAddress, status, action string) (*AccountResponse, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.String("account_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Approval decisions only apply to accounts still awaiting one.
	if account.Status != models.StatusPending {
		return nil, models.ErrConflict
	}

	updated, err := s.accounts.SetStatus(ctx, accountID, status)
	if err != nil {
		s.logger.Error("failed to set account status", slog.String("account_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.Record(ctx, action, &actorID, &accountID, ipAddress)
	s.logger.Info("account status changed",
		slog.String("account_id", accountID),
		slog.String("status", status),
		slog.String("actor_id", actorID))

	return accountToResponse(updated), nil
}
