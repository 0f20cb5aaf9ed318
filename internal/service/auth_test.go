package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, "test-secret-at-least-16-chars")

	t.Run("register and validate", func(t *testing.T) {
		token, err := svc.Register("Ada", "ada@example.com", "s3cret-password")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.NotEqual(t, "", claims.UserID.String())
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := svc.Register("Ada Again", "ada@example.com", "another-password")
		assert.Error(t, err)
	})

	t.Run("login with correct password", func(t *testing.T) {
		token, err := svc.Login("ada@example.com", "s3cret-password")
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.NotNil(t, claims)
	})

	t.Run("login with wrong password", func(t *testing.T) {
		_, err := svc.Login("ada@example.com", "wrong-password")
		assert.Error(t, err)
	})

	t.Run("login with unknown email", func(t *testing.T) {
		_, err := svc.Login("nobody@example.com", "whatever")
		assert.Error(t, err)
	})

	t.Run("token signed elsewhere rejected", func(t *testing.T) {
		otherSvc := NewAuthService(db, "a-completely-different-secret")
		token, err := otherSvc.Login("ada@example.com", "s3cret-password")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.Error(t, err)
	})
}
