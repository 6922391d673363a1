package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stogden/crease/internal/database"
	"github.com/stogden/crease/internal/models"
)

// PasswordHistoryRepository handles the append-only password history ledger
type PasswordHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewPasswordHistoryRepository creates a new PasswordHistoryRepository
func NewPasswordHistoryRepository(db *database.DB) *PasswordHistoryRepository {
	return &PasswordHistoryRepository{pool: db.Pool}
}

// ListRecent returns the newest limit entries for an account, newest first.
func (r *PasswordHistoryRepository) ListRecent(ctx context.Context, accountID string, limit int) ([]*models.PasswordHistoryEntry, error) {
	query := `
		SELECT id, account_id, password_hash, created_at
		FROM password_history
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query password history: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.PasswordHistoryEntry, 0)

	for rows.Next() {
		var entry models.PasswordHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.PasswordHash, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan password history entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating password history rows: %w", err)
	}

	return entries, nil
}

// ArchiveTx inserts the pre-change hash and prunes the account's entries to
// the keep most recent, inside the caller's transaction. Callers must hold
// the account's row lock before archiving; the lock serializes concurrent
// changes so the prune never runs against a stale snapshot of the ledger.
func (r *PasswordHistoryRepository) ArchiveTx(ctx context.Context, tx pgx.Tx, accountID, passwordHash string, keep int, now time.Time) error {
	insert := `
		INSERT INTO password_history (id, account_id, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := tx.Exec(ctx, insert, uuid.New().String(), accountID, passwordHash, now); err != nil {
		return database.MapPostgresError(err)
	}

	prune := `
		DELETE FROM password_history
		WHERE account_id = $1 AND id NOT IN (
			SELECT id FROM password_history
			WHERE account_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)
	`

	if _, err := tx.Exec(ctx, prune, accountID, keep); err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}
