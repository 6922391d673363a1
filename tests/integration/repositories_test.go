package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stogden/crease/internal/models"
)

func setupDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Teardown(context.Background())
	})

	return db
}

func TestRecordLoginFailure_AtomicUnderConcurrency(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	accountRepo, _, _, _, _ := InitializeRepositories(db.DB)

	email, password := TestCredentials("lockout")
	account, err := SeedAccount(ctx, db.Pool, email, password, models.RoleParent, models.StatusActive)
	require.NoError(t, err)

	// Ten racing failures must produce exactly ten increments, never a lost
	// update, and the lockout timestamp must be set once the threshold passes.
	const racers = 10
	var wg sync.WaitGroup
	errs := make(chan error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := accountRepo.RecordLoginFailure(ctx, account.ID, 5, 15*time.Minute, time.Now())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	updated, err := accountRepo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, racers, updated.FailedAttempts)
	require.NotNil(t, updated.LockedUntil)
	assert.True(t, updated.IsLocked(time.Now()))
}

func TestRecordLoginSuccess_ResetsCounters(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	accountRepo, _, _, _, _ := InitializeRepositories(db.DB)

	email, password := TestCredentials("reset-counters")
	account, err := SeedAccount(ctx, db.Pool, email, password, models.RoleParent, models.StatusActive)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := accountRepo.RecordLoginFailure(ctx, account.ID, 5, 15*time.Minute, time.Now())
		require.NoError(t, err)
	}

	require.NoError(t, accountRepo.RecordLoginSuccess(ctx, account.ID, time.Now()))

	updated, err := accountRepo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Zero(t, updated.FailedAttempts)
	assert.Nil(t, updated.LockedUntil)
	assert.NotNil(t, updated.LastLoginAt)
}

func TestPasswordHistory_PrunesToDepth(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	_, _, historyRepo, _, _ := InitializeRepositories(db.DB)

	email, password := TestCredentials("history")
	account, err := SeedAccount(ctx, db.Pool, email, password, models.RoleParent, models.StatusActive)
	require.NoError(t, err)

	base := time.Now().Add(-1 * time.Hour)
	for i := 0; i < 7; i++ {
		hash := fmt.Sprintf("hash-%02d", i)
		when := base.Add(time.Duration(i) * time.Minute)
		err := db.DB.WithTransaction(ctx, func(tx pgx.Tx) error {
			return historyRepo.ArchiveTx(ctx, tx, account.ID, hash, models.PasswordHistoryDepth, when)
		})
		require.NoError(t, err)
	}

	entries, err := historyRepo.ListRecent(ctx, account.ID, models.PasswordHistoryDepth)
	require.NoError(t, err)
	require.Len(t, entries, models.PasswordHistoryDepth, "older rows should have been pruned")

	// Newest first; the two oldest hashes are gone.
	assert.Equal(t, "hash-06", entries[0].PasswordHash)
	assert.Equal(t, "hash-02", entries[len(entries)-1].PasswordHash)
}

func TestPasswordChange_SerializesPerAccount(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	accountRepo, _, historyRepo, _, _ := InitializeRepositories(db.DB)

	email, password := TestCredentials("change-race")
	account, err := SeedAccount(ctx, db.Pool, email, password, models.RoleParent, models.StatusActive)
	require.NoError(t, err)

	// Three pre-existing history entries, well in the past.
	base := time.Now().Add(-1 * time.Hour)
	for i := 0; i < 3; i++ {
		hash := fmt.Sprintf("old-hash-%02d", i)
		err := db.DB.WithTransaction(ctx, func(tx pgx.Tx) error {
			return historyRepo.ArchiveTx(ctx, tx, account.ID, hash, models.PasswordHistoryDepth, base.Add(time.Duration(i)*time.Minute))
		})
		require.NoError(t, err)
	}

	// Two racing changes, each archiving whatever hash it reads under the
	// row lock. Serialization means the first change's new hash is archived
	// by the second, no hash is archived twice, and the prune never acts on
	// a stale snapshot of the ledger.
	const racers = 2
	var wg sync.WaitGroup
	errs := make(chan error, racers)

	for i := 0; i < racers; i++ {
		newHash := fmt.Sprintf("new-hash-%02d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- db.DB.WithTransaction(ctx, func(tx pgx.Tx) error {
				current, err := accountRepo.GetPasswordHashForUpdateTx(ctx, tx, account.ID)
				if err != nil {
					return err
				}
				if err := historyRepo.ArchiveTx(ctx, tx, account.ID, current, models.PasswordHistoryDepth, time.Now()); err != nil {
					return err
				}
				return accountRepo.UpdatePasswordTx(ctx, tx, account.ID, newHash, time.Now())
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	entries, err := historyRepo.ListRecent(ctx, account.ID, models.PasswordHistoryDepth+5)
	require.NoError(t, err)
	require.LessOrEqual(t, len(entries), models.PasswordHistoryDepth, "history must never exceed the retention depth")

	seen := make(map[string]int)
	for _, entry := range entries {
		seen[entry.PasswordHash]++
	}
	for hash, count := range seen {
		assert.Equal(t, 1, count, "hash %q archived more than once", hash)
	}

	// The loser of the race archived the winner's new hash, so exactly one
	// of the two new hashes is in history and the other is live.
	updated, err := accountRepo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	first, second := "new-hash-00", "new-hash-01"
	if updated.PasswordHash == first {
		first, second = second, first
	}
	assert.Equal(t, second, updated.PasswordHash)
	assert.Equal(t, 1, seen[first], "intermediate hash must remain in the reuse window")
	assert.Zero(t, seen[second], "live hash must not be in history")
	assert.Equal(t, 1, seen[account.PasswordHash], "original hash must be archived exactly once")
}

func TestResetTokenConsume_SingleWinner(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	_, _, _, resetTokenRepo, _ := InitializeRepositories(db.DB)

	email, password := TestCredentials("consume")
	account, err := SeedAccount(ctx, db.Pool, email, password, models.RoleParent, models.StatusActive)
	require.NoError(t, err)

	token, err := resetTokenRepo.Create(ctx, account.ID, "code-hash", time.Now().Add(15*time.Minute))
	require.NoError(t, err)

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- resetTokenRepo.Consume(ctx, token.ID)
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.Is(err, models.ErrNotFound), "losers should see not-found, got %v", err)
		}
	}
	assert.Equal(t, 1, winners, "exactly one caller may consume the token")
}

func TestResetTokens_ListUnconsumedExcludesConsumed(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	_, _, _, resetTokenRepo, _ := InitializeRepositories(db.DB)

	email, password := TestCredentials("list")
	account, err := SeedAccount(ctx, db.Pool, email, password, models.RoleParent, models.StatusActive)
	require.NoError(t, err)

	first, err := resetTokenRepo.Create(ctx, account.ID, "hash-first", time.Now().Add(15*time.Minute))
	require.NoError(t, err)
	second, err := resetTokenRepo.Create(ctx, account.ID, "hash-second", time.Now().Add(15*time.Minute))
	require.NoError(t, err)

	require.NoError(t, resetTokenRepo.Consume(ctx, first.ID))

	tokens, err := resetTokenRepo.ListUnconsumed(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, second.ID, tokens[0].ID)
}

func TestLoginAttempts_RetentionPrune(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	_, attemptRepo, _, _, _ := InitializeRepositories(db.DB)

	oldAttempt := &models.LoginAttempt{
		Email:       "old@example.com",
		IPAddress:   "203.0.113.9",
		AttemptTime: time.Now().Add(-100 * 24 * time.Hour),
		Success:     false,
	}
	recent := &models.LoginAttempt{
		Email:       "recent@example.com",
		IPAddress:   "203.0.113.9",
		AttemptTime: time.Now(),
		Success:     true,
	}
	require.NoError(t, attemptRepo.Record(ctx, oldAttempt))
	require.NoError(t, attemptRepo.Record(ctx, recent))

	deleted, err := attemptRepo.DeleteOlderThan(ctx, time.Now().Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
