package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexmorten/rconsole/internal/auth"
)

func TestTokenIssuer_IssueThenVerify(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Minute)

	token, jti, err := issuer.Issue("alice")
	require.NoError(t, err)
	assert.NotEmpty(t, jti)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, jti, claims.ID)
}

func TestTokenIssuer_RejectsTokenFromADifferentSecret(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Minute)
	other := auth.NewTokenIssuer("other-secret", time.Minute)

	token, _, err := other.Issue("alice")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenIssuer_RejectsExpiredToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", -time.Minute)

	token, _, err := issuer.Issue("alice")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
