package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret", 24)

	token, err := svc.Generate("user-1", "a@b.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "a@b.com", claims.Email)
	require.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestValidateWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 24).Generate("user-1", "a@b.com")
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", 24).Validate(token)
	require.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret", -1)

	token, err := svc.Generate("user-1", "a@b.com")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
}

func TestValidateGarbage(t *testing.T) {
	_, err := NewJWTService("test-secret", 24).Validate("not.a.token")
	require.Error(t, err)
}
