package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stogden/crease/internal/database"
	"github.com/stogden/crease/internal/models"
)

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const accountColumns = `id, email, password_hash, name, phone, role, status, failed_attempts, locked_until, last_login_at, password_changed_at, created_at, updated_at`

// scanAccountRow handles nullable fields and populates an Account model from a database row
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var lockedUntil, lastLoginAt, passwordChangedAt *time.Time

	err := scanner.Scan(
		&account.ID, &account.Email, &account.PasswordHash, &account.Name,
		&account.Phone, &account.Role, &account.Status, &account.FailedAttempts,
		&lockedUntil, &lastLoginAt, &passwordChangedAt,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	account.LockedUntil = lockedUntil
	account.LastLoginAt = lastLoginAt
	account.PasswordChangedAt = passwordChangedAt

	return &account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, email))
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.ID = uuid.New().String()

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	if account.Status == "" {
		account.Status = models.StatusPending
	}

	query := `
		INSERT INTO accounts (id, email, password_hash, name, phone, role, status, password_changed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, account.Email, account.PasswordHash, account.Name,
		account.Phone, account.Role, account.Status,
		account.PasswordChangedAt, account.CreatedAt, account.UpdatedAt,
	))
}

// RecordLoginFailure increments the failed-attempt counter and, if the new
// value reaches threshold, sets the lockout expiry in the same statement.
// The single UPDATE serializes concurrent failures on the row, so two
// simultaneous wrong-password requests cannot under-count and skip the
// threshold. Returns the post-update counter and lockout expiry.
func (r *AccountRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockout time.Duration, now time.Time) (int, *time.Time, error) {
	query := `
		UPDATE accounts
		SET failed_attempts = failed_attempts + 1,
		    locked_until = CASE WHEN failed_attempts + 1 >= $2 THEN $3::timestamptz ELSE locked_until END,
		    updated_at = $4
		WHERE id = $1
		RETURNING failed_attempts, locked_until
	`

	var failedAttempts int
	var lockedUntil *time.Time
	err := r.pool.QueryRow(ctx, query, id, threshold, now.Add(lockout), now).Scan(&failedAttempts, &lockedUntil)
	if err != nil {
		return 0, nil, database.MapPostgresError(err)
	}

	return failedAttempts, lockedUntil, nil
}

// RecordLoginSuccess resets the failed-attempt counter, clears any lockout,
// and stamps the successful login time.
func (r *AccountRepository) RecordLoginSuccess(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE accounts
		SET failed_attempts = 0, locked_until = NULL, last_login_at = $2, updated_at = $2
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, now)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Unlock is the operator path: reset the counter and clear the lockout
// without touching last_login_at.
func (r *AccountRepository) Unlock(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET failed_attempts = 0, locked_until = NULL, updated_at = NOW()
		WHERE id = $1
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

func (r *AccountRepository) SetStatus(ctx context.Context, id, status string) (*models.Account, error) {
	query := `
		UPDATE accounts SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool.QueryRow(ctx, query, id, status))
}

// GetPasswordHashForUpdateTx locks the account row and returns its current
// hash. Concurrent password changes serialize on this lock, so the value is
// authoritative for the remainder of the transaction.
func (r *AccountRepository) GetPasswordHashForUpdateTx(ctx context.Context, tx pgx.Tx, id string) (string, error) {
	query := `SELECT password_hash FROM accounts WHERE id = $1 FOR UPDATE`

	var hash string
	if err := tx.QueryRow(ctx, query, id).Scan(&hash); err != nil {
		return "", database.MapPostgresError(err)
	}
	return hash, nil
}

// UpdatePasswordTx stores the new hash inside the caller's transaction so the
// history archive and the hash swap commit together.
func (r *AccountRepository) UpdatePasswordTx(ctx context.Context, tx pgx.Tx, id, passwordHash string, now time.Time) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, password_changed_at = $3, updated_at = $3
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id, passwordHash, now)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
