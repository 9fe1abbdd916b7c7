package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthenticator(t *testing.T) *AdminAuthenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAdminAuthenticator(" Admin@City.example ", string(hash), NewTokenManager("test-secret", time.Hour))
}

func TestAdminAuthenticator_Login(t *testing.T) {
	auth := newTestAuthenticator(t)

	result, err := auth.Login("admin@city.example", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, AdminID("admin@city.example"), result.AdminID)

	id, err := auth.tokens.ParseAdmin(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.AdminID, id)

	again, err := auth.Login("ADMIN@city.example", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, result.AdminID, again.AdminID)
}

func TestAdminAuthenticator_RejectsBadCredentials(t *testing.T) {
	auth := newTestAuthenticator(t)

	_, err := auth.Login("admin@city.example", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login("someone@city.example", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAdminAuthenticator_Disabled(t *testing.T) {
	auth := NewAdminAuthenticator("", "", NewTokenManager("test-secret", time.Hour))
	assert.False(t, auth.Enabled())

	_, err := auth.Login("admin@city.example", "anything")
	assert.ErrorIs(t, err, ErrLoginDisabled)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")))

	_, err = HashPassword("  ")
	assert.Error(t, err)
}
