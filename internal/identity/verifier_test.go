package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	verifier := NewJWTVerifier("secret")
	token := signToken(t, "secret", Claims{
		UserID: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	userID, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestVerifyWrongSecret(t *testing.T) {
	verifier := NewJWTVerifier("secret")
	token := signToken(t, "other-secret", Claims{UserID: 42})

	_, err := verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyExpiredToken(t *testing.T) {
	verifier := NewJWTVerifier("secret")
	token := signToken(t, "secret", Claims{
		UserID: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyMissingUserID(t *testing.T) {
	verifier := NewJWTVerifier("secret")
	token := signToken(t, "secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := verifier.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	verifier := NewJWTVerifier("secret")

	_, err := verifier.Verify("not-a-token")
	require.Error(t, err)
}
