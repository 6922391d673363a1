package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/stogden/crease/internal/models"
	pkglogger "github.com/stogden/crease/pkg/logger"
)

// AuditLogRepository defines the interface for durable audit access
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListByTarget(ctx context.Context, targetID string, limit int) ([]*models.AuditLog, error)
}

// AuditService records security-relevant state transitions. Writes are
// best-effort: a failed database write surfaces in the operational log and
// the slog mirror but never fails the primary operation.
type AuditService struct {
	repo        AuditLogRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo AuditLogRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuditService {
	return &AuditService{
		repo:        repo,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Record appends an audit row and mirrors it to the structured log. actorID
// is nil for system-initiated transitions (e.g. a lockout applied by policy).
func (s *AuditService) Record(ctx context.Context, action string, actorID, targetID *string, ipAddress string) {
	entry := &models.AuditLog{
		Action:    action,
		ActorID:   actorID,
		TargetID:  targetID,
		CreatedAt: time.Now(),
	}
	if ipAddress != "" {
		entry.IPAddress = &ipAddress
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to persist audit entry",
			slog.String("action", action),
			slog.Any("error", err))
	}

	event := pkglogger.AuditEvent{
		Action:    action,
		IPAddress: ipAddress,
		Success:   true,
	}
	if actorID != nil {
		event.ActorID = *actorID
	}
	if targetID != nil {
		event.TargetID = *targetID
	}
	s.auditLogger.Log(event)
}

// RecordFailure mirrors a failed security event to the structured log only.
// Failures are not part of the durable state-transition trail; the attempt
// ledger covers login failures.
func (s *AuditService) RecordFailure(action, email, ipAddress, reason string) {
	s.auditLogger.Log(pkglogger.AuditEvent{
		Action:        action,
		Email:         email,
		IPAddress:     ipAddress,
		Success:       false,
		FailureReason: reason,
	})
}

// ListByTarget returns the newest audit rows affecting an account.
func (s *AuditService) ListByTarget(ctx context.Context, targetID string, limit int) ([]*models.AuditLog, error) {
	return s.repo.ListByTarget(ctx, targetID, limit)
}
