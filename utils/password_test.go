package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("student123", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, "student123", hash)
	assert.True(t, VerifyPassword(hash, "student123"))
	assert.False(t, VerifyPassword(hash, "student124"))
}

func TestVerifyPasswordInvalidHash(t *testing.T) {
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "anything"))
}
