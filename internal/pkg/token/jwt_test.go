package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("segredo", time.Hour)

	signed, err := svc.GenerateToken("op-1", "operator")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "op-1", claims.UserID())
	assert.Equal(t, "operator", claims.Role)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestValidate_Fail_Expired(t *testing.T) {
	svc := NewService("segredo", time.Minute)
	issued := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	signed, err := svc.GenerateToken("op-1", "operator")
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = svc.ValidateToken(signed)

	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidate_Fail_WrongSecret(t *testing.T) {
	signed, err := NewService("segredo", time.Hour).GenerateToken("op-1", "admin")
	require.NoError(t, err)

	_, err = NewService("outro-segredo", time.Hour).ValidateToken(signed)

	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestGenerate_Fail_MissingRole(t *testing.T) {
	_, err := NewService("segredo", time.Hour).GenerateToken("op-1", "")

	assert.Error(t, err)
}
