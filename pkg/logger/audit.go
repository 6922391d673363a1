package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent is a security event mirrored to the structured log. The durable
// audit trail lives in the database; this mirror keeps events observable even
// when the database write fails.
type AuditEvent struct {
	Action        string
	ActorID       string
	TargetID      string
	Email         string
	IPAddress     string
	Success       bool
	FailureReason string
}

// AuditLogger emits security audit events through slog.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// Log emits one audit event. Failures log at Warn so they stand out in
// operator tooling.
func (al *AuditLogger) Log(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("action", event.Action),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.ActorID != "" {
		attrs = append(attrs, slog.String("actor_id", event.ActorID))
	}
	if event.TargetID != "" {
		attrs = append(attrs, slog.String("target_id", event.TargetID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}

	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}
