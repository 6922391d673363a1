package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stogden/crease/internal/database"
	"github.com/stogden/crease/internal/models"
)

// AuditLogRepository handles the append-only audit trail
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{pool: db.Pool}
}

// Create appends one audit row.
func (r *AuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO audit_logs (id, action, actor_id, target_id, ip_address, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.Action, entry.ActorID, entry.TargetID,
		entry.IPAddress, entry.Detail, entry.CreatedAt,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}

// ListByTarget returns the newest audit rows affecting an account.
func (r *AuditLogRepository) ListByTarget(ctx context.Context, targetID string, limit int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, action, actor_id, target_id, ip_address, detail, created_at
		FROM audit_logs
		WHERE target_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.AuditLog, 0)

	for rows.Next() {
		var entry models.AuditLog
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.ActorID, &entry.TargetID, &entry.IPAddress, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return entries, nil
}
