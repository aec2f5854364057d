package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestIdentify_UserIDClaim(t *testing.T) {
	v := NewVerifier("s3cret")
	tok := sign(t, "s3cret", jwt.MapClaims{
		"user_id": "u-1",
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	claims, err := v.Identify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestIdentify_FallsBackToSubject(t *testing.T) {
	v := NewVerifier("s3cret")
	tok := sign(t, "s3cret", jwt.MapClaims{"sub": "u-2", "exp": time.Now().Add(time.Hour).Unix()})

	claims, err := v.Identify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-2", claims.UserID)
	assert.Empty(t, claims.Role)
}

func TestIdentify_Rejects(t *testing.T) {
	v := NewVerifier("s3cret")

	t.Run("wrong secret", func(t *testing.T) {
		tok := sign(t, "other", jwt.MapClaims{"user_id": "u-1"})
		_, err := v.Identify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("expired", func(t *testing.T) {
		tok := sign(t, "s3cret", jwt.MapClaims{"user_id": "u-1", "exp": time.Now().Add(-time.Minute).Unix()})
		_, err := v.Identify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("no subject", func(t *testing.T) {
		tok := sign(t, "s3cret", jwt.MapClaims{"role": "admin"})
		_, err := v.Identify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestVerifierWithoutSecret(t *testing.T) {
	v := NewVerifier("  ")
	assert.False(t, v.Enabled())
	_, err := v.ParseAndValidateToken("anything", "")
	assert.ErrorIs(t, err, ErrSecretNotConfigured)
}

func TestParseAndValidateToken_ExpectedType(t *testing.T) {
	v := NewVerifier("s3cret")
	tok := sign(t, "s3cret", jwt.MapClaims{"user_id": "u-1", "typ": "refresh"})

	_, err := v.ParseAndValidateToken(tok, "access")
	assert.Error(t, err)

	claims, err := v.ParseAndValidateToken(tok, "refresh")
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims["user_id"])
}
