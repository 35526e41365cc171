package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyIDClaim(t *testing.T) {
	v, err := NewJWTVerifier("signing-secret")
	require.NoError(t, err)

	token := signToken(t, "signing-secret", jwt.MapClaims{"id": "user-42"})
	userID, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestVerifySubjectFallback(t *testing.T) {
	v, _ := NewJWTVerifier("signing-secret")

	token := signToken(t, "signing-secret", jwt.MapClaims{"sub": "user-7"})
	userID, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", userID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v, _ := NewJWTVerifier("signing-secret")

	token := signToken(t, "other-secret", jwt.MapClaims{"id": "user-42"})
	_, err := v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	v, _ := NewJWTVerifier("signing-secret")

	token := signToken(t, "signing-secret", jwt.MapClaims{
		"id":  "user-42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	_, err := v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMissingIdentity(t *testing.T) {
	v, _ := NewJWTVerifier("signing-secret")

	token := signToken(t, "signing-secret", jwt.MapClaims{"role": "user"})
	_, err := v.Verify(token)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestEmptySecretRejected(t *testing.T) {
	_, err := NewJWTVerifier("")
	assert.Error(t, err)
}
