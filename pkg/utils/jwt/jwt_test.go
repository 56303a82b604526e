package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	Configure("test-secret", time.Hour)

	token, err := GenerateToken(7, "ana@example.com", "admin")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestValidateRejectsOtherSecret(t *testing.T) {
	Configure("secret-a", time.Hour)
	token, err := GenerateToken(1, "a@example.com", "customer")
	require.NoError(t, err)

	Configure("secret-b", time.Hour)
	_, err = ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	Configure("test-secret", time.Hour)
	expired := gojwt.NewWithClaims(gojwt.SigningMethodHS256, Claims{
		UserID: 1,
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
