package services

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stogden/crease/internal/models"
)

var sixDigits = regexp.MustCompile(`^\d{6}$`)

func TestResetTokenService_Issue(t *testing.T) {
	var storedHash string
	var storedExpiry time.Time

	repo := &MockResetTokenRepository{
		CreateFunc: func(ctx context.Context, accountID, codeHash string, expiresAt time.Time) (*models.ResetToken, error) {
			storedHash = codeHash
			storedExpiry = expiresAt
			return &models.ResetToken{ID: "token-1", AccountID: accountID, CodeHash: codeHash, ExpiresAt: expiresAt}, nil
		},
	}
	svc := NewResetTokenService(repo, 15*time.Minute, slog.Default())

	now := time.Now()
	code, err := svc.Issue(context.Background(), "acct-1", now)
	require.NoError(t, err)

	assert.Regexp(t, sixDigits, code)
	assert.NotEqual(t, code, storedHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(code)))
	assert.Equal(t, now.Add(15*time.Minute), storedExpiry)
}

func TestResetTokenService_Validate(t *testing.T) {
	now := time.Now()
	live := &models.ResetToken{
		ID:        "token-live",
		AccountID: "acct-1",
		CodeHash:  testHash(t, "654321"),
		ExpiresAt: now.Add(10 * time.Minute),
	}

	repo := &MockResetTokenRepository{
		ListUnconsumedFunc: func(ctx context.Context, accountID string) ([]*models.ResetToken, error) {
			return []*models.ResetToken{live}, nil
		},
	}
	svc := NewResetTokenService(repo, 15*time.Minute, slog.Default())

	t.Run("matching code", func(t *testing.T) {
		token, err := svc.Validate(context.Background(), "acct-1", "654321", now)
		require.NoError(t, err)
		assert.Equal(t, "token-live", token.ID)
	})

	t.Run("wrong code", func(t *testing.T) {
		_, err := svc.Validate(context.Background(), "acct-1", "111111", now)
		assert.ErrorIs(t, err, models.ErrInvalidResetToken)
	})

	t.Run("expired match is distinguishable", func(t *testing.T) {
		_, err := svc.Validate(context.Background(), "acct-1", "654321", now.Add(11*time.Minute))
		assert.ErrorIs(t, err, models.ErrResetTokenExpired)
	})
}

func TestResetTokenService_Validate_NewestMatchWins(t *testing.T) {
	now := time.Now()
	code := "222222"
	hash := testHash(t, code)

	// Repository returns newest first; both hash the same code.
	repo := &MockResetTokenRepository{
		ListUnconsumedFunc: func(ctx context.Context, accountID string) ([]*models.ResetToken, error) {
			return []*models.ResetToken{
				{ID: "token-new", AccountID: accountID, CodeHash: hash, ExpiresAt: now.Add(10 * time.Minute)},
				{ID: "token-old", AccountID: accountID, CodeHash: hash, ExpiresAt: now.Add(5 * time.Minute)},
			}, nil
		},
	}
	svc := NewResetTokenService(repo, 15*time.Minute, slog.Default())

	token, err := svc.Validate(context.Background(), "acct-1", code, now)
	require.NoError(t, err)
	assert.Equal(t, "token-new", token.ID)
}

func TestResetTokenService_Consume(t *testing.T) {
	t.Run("first caller wins", func(t *testing.T) {
		repo := &MockResetTokenRepository{}
		svc := NewResetTokenService(repo, 15*time.Minute, slog.Default())
		assert.NoError(t, svc.Consume(context.Background(), "token-1"))
	})

	t.Run("already consumed maps to the generic failure", func(t *testing.T) {
		repo := &MockResetTokenRepository{
			ConsumeFunc: func(ctx context.Context, id string) error {
				return models.ErrNotFound
			},
		}
		svc := NewResetTokenService(repo, 15*time.Minute, slog.Default())
		assert.ErrorIs(t, svc.Consume(context.Background(), "token-1"), models.ErrInvalidResetToken)
	})

	t.Run("storage errors pass through", func(t *testing.T) {
		storageErr := errors.New("connection reset")
		repo := &MockResetTokenRepository{
			ConsumeFunc: func(ctx context.Context, id string) error {
				return storageErr
			},
		}
		svc := NewResetTokenService(repo, 15*time.Minute, slog.Default())
		err := svc.Consume(context.Background(), "token-1")
		assert.ErrorIs(t, err, storageErr)
	})
}

func TestResetTokenService_PurgeExpired(t *testing.T) {
	repo := &MockResetTokenRepository{
		DeleteExpiredFunc: func(ctx context.Context) (int64, error) {
			return 3, nil
		},
	}
	svc := NewResetTokenService(repo, 15*time.Minute, slog.Default())

	purged, err := svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), purged)
}
