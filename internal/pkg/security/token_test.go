package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", DefaultTokenTTL)
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", DefaultTokenTTL)
	require.NoError(t, err)

	token, err := issuer.Issue(42, "chef@example.com", "provider")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "chef@example.com", claims.Email)
	assert.Equal(t, "provider", claims.Role)
}

func TestTokenTamperedSignatureRejected(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", DefaultTokenTTL)
	require.NoError(t, err)

	token, err := issuer.Issue(1, "a@example.com", "client")
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = issuer.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenFromDifferentSecretRejected(t *testing.T) {
	issuerA, err := NewTokenIssuer("secret-a", DefaultTokenTTL)
	require.NoError(t, err)
	issuerB, err := NewTokenIssuer("secret-b", DefaultTokenTTL)
	require.NoError(t, err)

	token, err := issuerA.Issue(1, "a@example.com", "client")
	require.NoError(t, err)

	_, err = issuerB.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredTokenRejected(t *testing.T) {
	issuer := &TokenIssuer{secret: []byte("test-secret"), ttl: -time.Minute}

	token, err := issuer.Issue(1, "a@example.com", "client")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageTokenRejected(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", DefaultTokenTTL)
	require.NoError(t, err)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := issuer.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}
}
