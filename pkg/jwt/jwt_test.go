package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/bookorder/pkg/errors"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, err := m.GenerateToken(42, "buyer@example.com", "买家")
	require.NoError(t, err)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "buyer@example.com", claims.Email)
}

func TestManager_Rejects(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	t.Run("过期Token", func(t *testing.T) {
		expired := NewManager("test-secret", -time.Minute)
		token, err := expired.GenerateToken(1, "a@b.c", "")
		require.NoError(t, err)

		_, err = m.ParseToken(token)
		assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})

	t.Run("签名密钥不同", func(t *testing.T) {
		other := NewManager("other-secret", time.Hour)
		token, err := other.GenerateToken(1, "a@b.c", "")
		require.NoError(t, err)

		_, err = m.ParseToken(token)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("格式错误", func(t *testing.T) {
		_, err := m.ParseToken("not-a-jwt")
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}
