package utils

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateSecret(t *testing.T) {
	secret, err := GenerateSecret(32)
	require.NoError(t, err)

	decoded, err := hex.DecodeString(secret)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)

	other, err := GenerateSecret(32)
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestGenerateJWTSecrets(t *testing.T) {
	access, refresh, err := GenerateJWTSecrets()
	require.NoError(t, err)
	assert.Len(t, access, 64)
	assert.Len(t, refresh, 64)
	assert.NotEqual(t, access, refresh)
}

func TestGenerateResetCredentials(t *testing.T) {
	token, hash, err := GenerateResetCredentials()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// The deployed hash must verify the raw token and nothing else.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(token+"x")))
	assert.NotContains(t, hash, token)
}
