package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexmorten/rconsole/internal/auth"
)

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	hash, err := auth.HashPassword("correct-horse-battery-staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse-battery-staple", hash)
	assert.True(t, auth.VerifyPassword(hash, "correct-horse-battery-staple"))
	assert.False(t, auth.VerifyPassword(hash, "wrong-password"))
}
