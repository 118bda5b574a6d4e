package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestNewValidatorDisabledWithoutSecret(t *testing.T) {
	assert.Nil(t, NewValidator(""))
}

func TestValidateTokenAcceptsSignedToken(t *testing.T) {
	v := NewValidator("secret")

	claims, err := v.ValidateToken(signToken(t, "secret", "alice"))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	v := NewValidator("secret")

	_, err := v.ValidateToken(signToken(t, "other-secret", "alice"))
	assert.Error(t, err)
}

func TestValidateTokenRejectsMissingToken(t *testing.T) {
	v := NewValidator("secret")

	_, err := v.ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	v := NewValidator("secret")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = v.ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateTokenRejectsMissingSubject(t *testing.T) {
	v := NewValidator("secret")

	_, err := v.ValidateToken(signToken(t, "secret", ""))
	assert.Error(t, err)
}
