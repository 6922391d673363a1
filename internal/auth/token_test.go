package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars!!"

func TestTokenManager_MintAndVerify(t *testing.T) {
	tm := NewTokenManager(testSecret, 7*24*time.Hour)

	token, err := tm.Mint("acct-1", "parent@academy.test", "parent", time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", claims.AccountID)
	assert.Equal(t, "parent@academy.test", claims.Email)
	assert.Equal(t, "parent", claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_Verify_Expired(t *testing.T) {
	tm := NewTokenManager(testSecret, 1*time.Hour)

	// Minted two hours in the past with a one-hour window.
	token, err := tm.Mint("acct-1", "parent@academy.test", "parent", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.Error(t, err)
}

func TestTokenManager_Verify_WrongSecret(t *testing.T) {
	tm := NewTokenManager(testSecret, 1*time.Hour)
	other := NewTokenManager("a-different-secret-that-is-long-too", 1*time.Hour)

	token, err := tm.Mint("acct-1", "parent@academy.test", "parent", time.Now())
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestTokenManager_Verify_Malformed(t *testing.T) {
	tm := NewTokenManager(testSecret, 1*time.Hour)

	_, err := tm.Verify("not-a-token")
	assert.Error(t, err)
}
