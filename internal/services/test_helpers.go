package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stogden/crease/internal/models"
)

// MockAccountRepository implements AccountRepository and AdminAccountRepository for testing
type MockAccountRepository struct {
	GetByIDFunc                    func(ctx context.Context, id string) (*models.Account, error)
	GetByEmailFunc                 func(ctx context.Context, email string) (*models.Account, error)
	CreateFunc                     func(ctx context.Context, account *models.Account) (*models.Account, error)
	RecordLoginFailureFunc         func(ctx context.Context, id string, threshold int, lockout time.Duration, now time.Time) (int, *time.Time, error)
	RecordLoginSuccessFunc         func(ctx context.Context, id string, now time.Time) error
	GetPasswordHashForUpdateTxFunc func(ctx context.Context, tx pgx.Tx, id string) (string, error)
	UpdatePasswordTxFunc           func(ctx context.Context, tx pgx.Tx, id, passwordHash string, now time.Time) error
	UnlockFunc                     func(ctx context.Context, id string) error
	SetStatusFunc                  func(ctx context.Context, id, status string) (*models.Account, error)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockout time.Duration, now time.Time) (int, *time.Time, error) {
	if m.RecordLoginFailureFunc != nil {
		return m.RecordLoginFailureFunc(ctx, id, threshold, lockout, now)
	}
	return 1, nil, nil
}

func (m *MockAccountRepository) RecordLoginSuccess(ctx context.Context, id string, now time.Time) error {
	if m.RecordLoginSuccessFunc != nil {
		return m.RecordLoginSuccessFunc(ctx, id, now)
	}
	return nil
}

func (m *MockAccountRepository) GetPasswordHashForUpdateTx(ctx context.Context, tx pgx.Tx, id string) (string, error) {
	if m.GetPasswordHashForUpdateTxFunc != nil {
		return m.GetPasswordHashForUpdateTxFunc(ctx, tx, id)
	}
	return "", models.ErrNotFound
}

func (m *MockAccountRepository) UpdatePasswordTx(ctx context.Context, tx pgx.Tx, id, passwordHash string, now time.Time) error {
	if m.UpdatePasswordTxFunc != nil {
		return m.UpdatePasswordTxFunc(ctx, tx, id, passwordHash, now)
	}
	return nil
}

func (m *MockAccountRepository) Unlock(ctx context.Context, id string) error {
	if m.UnlockFunc != nil {
		return m.UnlockFunc(ctx, id)
	}
	return nil
}

func (m *MockAccountRepository) SetStatus(ctx context.Context, id, status string) (*models.Account, error) {
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, id, status)
	}
	return nil, models.ErrInternalServer
}

// MockLoginAttemptRepository implements LoginAttemptRepository for testing
type MockLoginAttemptRepository struct {
	RecordFunc func(ctx context.Context, attempt *models.LoginAttempt) error
	Attempts   []*models.LoginAttempt
}

func (m *MockLoginAttemptRepository) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	m.Attempts = append(m.Attempts, attempt)
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, attempt)
	}
	return nil
}

// MockPasswordHistoryRepository implements PasswordHistoryRepository for testing
type MockPasswordHistoryRepository struct {
	ListRecentFunc func(ctx context.Context, accountID string, limit int) ([]*models.PasswordHistoryEntry, error)
	ArchiveTxFunc  func(ctx context.Context, tx pgx.Tx, accountID, passwordHash string, keep int, now time.Time) error
	Archived       []string
}

func (m *MockPasswordHistoryRepository) ListRecent(ctx context.Context, accountID string, limit int) ([]*models.PasswordHistoryEntry, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, accountID, limit)
	}
	return []*models.PasswordHistoryEntry{}, nil
}

func (m *MockPasswordHistoryRepository) ArchiveTx(ctx context.Context, tx pgx.Tx, accountID, passwordHash string, keep int, now time.Time) error {
	m.Archived = append(m.Archived, passwordHash)
	if m.ArchiveTxFunc != nil {
		return m.ArchiveTxFunc(ctx, tx, accountID, passwordHash, keep, now)
	}
	return nil
}

// MockResetTokenRepository implements ResetTokenRepository for testing
type MockResetTokenRepository struct {
	CreateFunc         func(ctx context.Context, accountID, codeHash string, expiresAt time.Time) (*models.ResetToken, error)
	ListUnconsumedFunc func(ctx context.Context, accountID string) ([]*models.ResetToken, error)
	ConsumeFunc        func(ctx context.Context, id string) error
	DeleteExpiredFunc  func(ctx context.Context) (int64, error)
}

func (m *MockResetTokenRepository) Create(ctx context.Context, accountID, codeHash string, expiresAt time.Time) (*models.ResetToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, accountID, codeHash, expiresAt)
	}
	return &models.ResetToken{ID: "token-1", AccountID: accountID, CodeHash: codeHash, ExpiresAt: expiresAt}, nil
}

func (m *MockResetTokenRepository) ListUnconsumed(ctx context.Context, accountID string) ([]*models.ResetToken, error) {
	if m.ListUnconsumedFunc != nil {
		return m.ListUnconsumedFunc(ctx, accountID)
	}
	return []*models.ResetToken{}, nil
}

func (m *MockResetTokenRepository) Consume(ctx context.Context, id string) error {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, id)
	}
	return nil
}

func (m *MockResetTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx)
	}
	return 0, nil
}

// MockAuditLogRepository implements AuditLogRepository for testing
type MockAuditLogRepository struct {
	CreateFunc       func(ctx context.Context, entry *models.AuditLog) error
	ListByTargetFunc func(ctx context.Context, targetID string, limit int) ([]*models.AuditLog, error)
	Entries          []*models.AuditLog
}

func (m *MockAuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	m.Entries = append(m.Entries, entry)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	return nil
}

func (m *MockAuditLogRepository) ListByTarget(ctx context.Context, targetID string, limit int) ([]*models.AuditLog, error) {
	if m.ListByTargetFunc != nil {
		return m.ListByTargetFunc(ctx, targetID, limit)
	}
	return m.Entries, nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendResetCodeFunc func(ctx context.Context, email, code string, expiresAt time.Time) error
	SentCodes         []string
}

func (m *MockEmailService) SendResetCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	m.SentCodes = append(m.SentCodes, code)
	if m.SendResetCodeFunc != nil {
		return m.SendResetCodeFunc(ctx, email, code, expiresAt)
	}
	return nil
}

// MockTxRunner implements TxRunner for testing; the callback receives a nil
// transaction, which the repository mocks ignore.
type MockTxRunner struct {
	WithTransactionFunc func(ctx context.Context, fn func(pgx.Tx) error) error
}

func (m *MockTxRunner) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(nil)
}
