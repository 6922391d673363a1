package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stogden/crease/internal/auth"
	"github.com/stogden/crease/internal/models"
	pkgauth "github.com/stogden/crease/pkg/auth"
	pkglogger "github.com/stogden/crease/pkg/logger"
)

// AccountRepository defines the interface for credential store operations
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockout time.Duration, now time.Time) (int, *time.Time, error)
	RecordLoginSuccess(ctx context.Context, id string, now time.Time) error
	GetPasswordHashForUpdateTx(ctx context.Context, tx pgx.Tx, id string) (string, error)
	UpdatePasswordTx(ctx context.Context, tx pgx.Tx, id, passwordHash string, now time.Time) error
}

// LoginAttemptRepository defines the interface for the attempt ledger
type LoginAttemptRepository interface {
	Record(ctx context.Context, attempt *models.LoginAttempt) error
}

// PasswordHistoryRepository defines the interface for the password history ledger
type PasswordHistoryRepository interface {
	ListRecent(ctx context.Context, accountID string, limit int) ([]*models.PasswordHistoryEntry, error)
	ArchiveTx(ctx context.Context, tx pgx.Tx, accountID, passwordHash string, keep int, now time.Time) error
}

// TxRunner runs a function inside a single database transaction
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error
}

// AuthService orchestrates credential verification, lockout, password history
// enforcement, and the reset-token lifecycle.
type AuthService struct {
	accounts     AccountRepository
	attempts     LoginAttemptRepository
	history      PasswordHistoryRepository
	resetTokens  *ResetTokenService
	audit        *AuditService
	email        EmailService
	tm           *auth.TokenManager
	db           TxRunner
	lockout      LockoutPolicy
	historyDepth int
	logger       *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	accounts AccountRepository,
	attempts LoginAttemptRepository,
	history PasswordHistoryRepository,
	resetTokens *ResetTokenService,
	audit *AuditService,
	email EmailService,
	tm *auth.TokenManager,
	db TxRunner,
	lockout LockoutPolicy,
	historyDepth int,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts:     accounts,
		attempts:     attempts,
		history:      history,
		resetTokens:  resetTokens,
		audit:        audit,
		email:        email,
		tm:           tm,
		db:           db,
		lockout:      lockout,
		historyDepth: historyDepth,
		logger:       logger,
	}
}

// AccountResponse represents an account's public profile in responses.
// The password hash is never part of a response shape.
type AccountResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// AuthResponse represents the response from auth operations
type AuthResponse struct {
	Token   string           `json:"token"`
	Account *AccountResponse `json:"account"`
}

// dummyHash is compared against when no account matches, so the "unknown
// email" and "wrong password" paths cost the same bcrypt work.
var dummyHash, _ = pkgauth.HashPassword("equalize-verification-timing")

// RegisterInput carries the fields for account creation.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Role     string
}

// Register creates a new account. Self-registered roles (parent, player)
// start pending; operator-created roles start active.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, ipAddress string) (*AuthResponse, error) {
	if in.Email == "" || in.Name == "" {
		return nil, models.ErrBadRequest
	}
	if !models.ValidRole(in.Role) {
		return nil, models.ErrBadRequest
	}

	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	_, err := s.accounts.GetByEmail(ctx, in.Email)
	if err == nil {
		s.logger.Info("registration failed: account already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if account exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	status := models.StatusActive
	if models.SelfRegistered(in.Role) {
		status = models.StatusPending
	}

	now := time.Now()
	account := &models.Account{
		Email:             in.Email,
		PasswordHash:      hashedPassword,
		Name:              in.Name,
		Phone:             in.Phone,
		Role:              in.Role,
		Status:            status,
		PasswordChangedAt: &now,
	}

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.Record(ctx, models.AuditUserRegistration, &created.ID, &created.ID, ipAddress)

	token, err := s.tm.Mint(created.ID, created.Email, created.Role, now)
	if err != nil {
		s.logger.Error("failed to mint token", slog.String("account_id", created.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account registered", slog.String("account_id", created.ID), slog.String("role", created.Role))

	return &AuthResponse{
		Token:   token,
		Account: accountToResponse(created),
	}, nil
}

// Login authenticates an account. Exactly one attempt row is written per
// call, including calls where no matching account exists.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*AuthResponse, error) {
	// Pre-ledger validation: malformed input is rejected before any write.
	if email == "" || password == "" {
		return nil, models.ErrBadRequest
	}

	now := time.Now()

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Burn the same bcrypt work as a real comparison so response
			// timing does not reveal account existence.
			_ = pkgauth.ComparePassword(dummyHash, password)
			s.recordAttempt(ctx, email, ipAddress, userAgent, false, now)
			s.audit.RecordFailure(models.AuditUserLogin, email, ipAddress, "invalid_credentials")
			return nil, &models.CredentialsError{}
		}
		s.logger.Error("failed to get account by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if decision := s.lockout.Evaluate(account.LockedUntil, now); decision.Locked {
		s.recordAttempt(ctx, email, ipAddress, userAgent, false, now)
		s.audit.RecordFailure(models.AuditUserLogin, email, ipAddress, "locked")
		return nil, &models.LockedError{
			RemainingMinutes: decision.RemainingMinutes,
			Until:            decision.Until,
		}
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, s.handleFailedPassword(ctx, account, email, ipAddress, userAgent, now)
	}

	// Status is checked only after the password verified, so an account's
	// standing is not disclosed to someone who does not know the password.
	if account.Status != models.StatusActive {
		s.recordAttempt(ctx, email, ipAddress, userAgent, false, now)
		s.audit.RecordFailure(models.AuditUserLogin, email, ipAddress, "status_"+account.Status)
		return nil, &models.StatusError{Status: account.Status}
	}

	if err := s.accounts.RecordLoginSuccess(ctx, account.ID, now); err != nil {
		s.logger.Error("failed to record login success", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.recordAttempt(ctx, email, ipAddress, userAgent, true, now)
	s.audit.Record(ctx, models.AuditUserLogin, &account.ID, &account.ID, ipAddress)

	token, err := s.tm.Mint(account.ID, account.Email, account.Role, now)
	if err != nil {
		s.logger.Error("failed to mint token", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account logged in", slog.String("account_id", account.ID))

	return &AuthResponse{
		Token:   token,
		Account: accountToResponse(account),
	}, nil
}

// handleFailedPassword applies the failure to the account's counter in one
// atomic statement and translates the post-update state into the caller-facing
// failure: lockout at the threshold, otherwise generic invalid credentials
// with the policy-limited remaining-attempts hint.
func (s *AuthService) handleFailedPassword(ctx context.Context, account *models.Account, email, ipAddress, userAgent string, now time.Time) error {
	failedCount, lockedUntil, err := s.accounts.RecordLoginFailure(ctx, account.ID, s.lockout.Threshold, s.lockout.Duration, now)
	if err != nil {
		s.logger.Error("failed to record login failure", slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.recordAttempt(ctx, email, ipAddress, userAgent, false, now)

	if failedCount >= s.lockout.Threshold && lockedUntil != nil {
		s.audit.Record(ctx, models.AuditAccountLocked, nil, &account.ID, ipAddress)

		decision := s.lockout.Evaluate(lockedUntil, now)
		return &models.LockedError{
			RemainingMinutes: decision.RemainingMinutes,
			Until:            decision.Until,
		}
	}

	s.audit.RecordFailure(models.AuditUserLogin, email, ipAddress, "invalid_credentials")
	return &models.CredentialsError{AttemptsRemaining: s.lockout.AttemptsRemainingHint(failedCount)}
}

// ChangePassword is the authenticated self-service path: the caller proves
// the current password, then the shared password-change procedure runs.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword, ipAddress string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to get account", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, currentPassword); err != nil {
		s.audit.RecordFailure(models.AuditPasswordChanged, account.Email, ipAddress, "wrong_current_password")
		return models.ErrInvalidCredentials
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}
	if err := s.checkPasswordReuse(ctx, account, newPassword); err != nil {
		return err
	}

	if err := s.storeNewPassword(ctx, account, newPassword); err != nil {
		return err
	}

	s.audit.Record(ctx, models.AuditPasswordChanged, &account.ID, &account.ID, ipAddress)
	s.logger.Info("password changed", slog.String("account_id", account.ID))

	return nil
}

// ForgotPassword issues and emails a reset code when the identity is
// registered. Callers always present the same generic confirmation, so no
// error distinguishes the unregistered case.
func (s *AuthService) ForgotPassword(ctx context.Context, email, ipAddress string) error {
	if email == "" {
		return models.ErrBadRequest
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("reset requested for unregistered email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil
		}
		s.logger.Error("failed to get account by email", slog.Any("error", err))
		return models.ErrInternalServer
	}

	now := time.Now()
	code, err := s.resetTokens.Issue(ctx, account.ID, now)
	if err != nil {
		s.logger.Error("failed to issue reset token", slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.Record(ctx, models.AuditPasswordResetRequested, nil, &account.ID, ipAddress)

	// The token row is already persisted; a delivery failure is surfaced
	// rather than rolled back or silently swallowed.
	if err := s.email.SendResetCode(ctx, account.Email, code, now.Add(s.resetTokens.expiry)); err != nil {
		return models.ErrEmailDelivery
	}

	return nil
}

// ResetPassword proves control of the registered address via the emailed
// code, then runs the shared password-change procedure. The matched token is
// consumed exactly once, before any state changes.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword, ipAddress string) error {
	if email == "" || code == "" {
		return models.ErrInvalidResetToken
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Same generic failure as a wrong code.
			return models.ErrInvalidResetToken
		}
		s.logger.Error("failed to get account by email", slog.Any("error", err))
		return models.ErrInternalServer
	}

	now := time.Now()
	token, err := s.resetTokens.Validate(ctx, account.ID, code, now)
	if err != nil {
		s.audit.RecordFailure(models.AuditPasswordResetCompleted, email, ipAddress, "invalid_token")
		return err
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}
	if err := s.checkPasswordReuse(ctx, account, newPassword); err != nil {
		return err
	}

	// Consume before mutating, so a concurrent reset with the same code
	// cannot also proceed. A weak or reused password above leaves the token
	// intact for a retry.
	if err := s.resetTokens.Consume(ctx, token.ID); err != nil {
		return err
	}

	if err := s.storeNewPassword(ctx, account, newPassword); err != nil {
		return err
	}

	s.audit.Record(ctx, models.AuditPasswordResetCompleted, &account.ID, &account.ID, ipAddress)
	s.logger.Info("password reset completed", slog.String("account_id", account.ID))

	return nil
}

// Me returns the public profile for an authenticated account.
func (s *AuthService) Me(ctx context.Context, accountID string) (*AccountResponse, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, models.ErrInternalServer
	}

	return accountToResponse(account), nil
}

// checkPasswordReuse rejects a candidate that matches the current hash or any
// retained history entry. Comparison is re-hash-compare per entry; hashes are
// salted, so equality of plaintexts is the only thing that can match.
func (s *AuthService) checkPasswordReuse(ctx context.Context, account *models.Account, newPassword string) error {
	if pkgauth.ComparePassword(account.PasswordHash, newPassword) == nil {
		return models.ErrPasswordReused
	}

	entries, err := s.history.ListRecent(ctx, account.ID, s.historyDepth)
	if err != nil {
		s.logger.Error("failed to list password history", slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	for _, entry := range entries {
		if pkgauth.ComparePassword(entry.PasswordHash, newPassword) == nil {
			return models.ErrPasswordReused
		}
	}

	return nil
}

// storeNewPassword archives the pre-change hash, prunes history, and swaps in
// the new hash, all in one transaction per account. The account row is locked
// first and the archived hash re-read under that lock: the hash fetched
// during credential verification may be stale by the time the transaction
// runs, and archiving it would let concurrent changes duplicate history
// entries and drop a hash from the reuse window.
func (s *AuthService) storeNewPassword(ctx context.Context, account *models.Account, newPassword string) error {
	newHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	now := time.Now()
	err = s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		currentHash, err := s.accounts.GetPasswordHashForUpdateTx(ctx, tx, account.ID)
		if err != nil {
			return err
		}
		if err := s.history.ArchiveTx(ctx, tx, account.ID, currentHash, s.historyDepth, now); err != nil {
			return err
		}
		return s.accounts.UpdatePasswordTx(ctx, tx, account.ID, newHash, now)
	})
	if err != nil {
		s.logger.Error("failed to store new password", slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	return nil
}

// recordAttempt appends to the attempt ledger. Best-effort-but-loud: a ledger
// failure is logged as an operational error and never blocks the security
// decision.
func (s *AuthService) recordAttempt(ctx context.Context, email, ipAddress, userAgent string, success bool, now time.Time) {
	attempt := &models.LoginAttempt{
		Email:       email,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		AttemptTime: now,
		Success:     success,
	}

	if err := s.attempts.Record(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
	}
}

func accountToResponse(account *models.Account) *AccountResponse {
	return &AccountResponse{
		ID:     account.ID,
		Email:  account.Email,
		Name:   account.Name,
		Role:   account.Role,
		Status: account.Status,
	}
}
