package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stogden/crease/internal/database"
	"github.com/stogden/crease/internal/models"
)

// ResetTokenRepository handles stored password-reset credentials
type ResetTokenRepository struct {
	pool *pgxpool.Pool
}

// NewResetTokenRepository creates a new ResetTokenRepository
func NewResetTokenRepository(db *database.DB) *ResetTokenRepository {
	return &ResetTokenRepository{pool: db.Pool}
}

// Create stores a new hashed reset token for an account.
func (r *ResetTokenRepository) Create(ctx context.Context, accountID, codeHash string, expiresAt time.Time) (*models.ResetToken, error) {
	token := &models.ResetToken{
		ID:        uuid.New().String(),
		AccountID: accountID,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO reset_tokens (id, account_id, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, token.ID, token.AccountID, token.CodeHash, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return token, nil
}

// ListUnconsumed returns all unconsumed tokens for an account, newest first.
// Expired rows are included: the caller distinguishes "expired" from "no
// match" to pick the right failure message.
func (r *ResetTokenRepository) ListUnconsumed(ctx context.Context, accountID string) ([]*models.ResetToken, error) {
	query := `
		SELECT id, account_id, code_hash, expires_at, consumed_at, created_at
		FROM reset_tokens
		WHERE account_id = $1 AND consumed_at IS NULL
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reset tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]*models.ResetToken, 0)

	for rows.Next() {
		var token models.ResetToken
		if err := rows.Scan(&token.ID, &token.AccountID, &token.CodeHash, &token.ExpiresAt, &token.ConsumedAt, &token.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reset token: %w", err)
		}
		tokens = append(tokens, &token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reset token rows: %w", err)
	}

	return tokens, nil
}

// Consume marks a token consumed. The conditional WHERE makes consumption
// first-caller-wins: a second concurrent consumer sees zero rows affected and
// gets ErrNotFound.
func (r *ResetTokenRepository) Consume(ctx context.Context, id string) error {
	query := `
		UPDATE reset_tokens
		SET consumed_at = NOW()
		WHERE id = $1 AND consumed_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteExpired removes expired, unconsumed tokens. Storage hygiene only;
// validation already rejects expired rows.
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM reset_tokens WHERE expires_at < NOW() AND consumed_at IS NULL`

	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}

	return result.RowsAffected(), nil
}
