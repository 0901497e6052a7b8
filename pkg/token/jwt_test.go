package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewJWTManager("secret", 1, 7)

	access, err := m.GenerateToken(42, "linh", "STUDENT")
	require.NoError(t, err)

	claims, err := m.VerifyToken(access, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "linh", claims.Username)
	assert.Equal(t, "STUDENT", claims.Role)
	assert.InDelta(t, time.Hour.Seconds(), m.Remaining(claims).Seconds(), 5)
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	m := NewJWTManager("secret", 1, 7)

	refresh, err := m.GenerateRefreshToken(1, "an", "TEACHER")
	require.NoError(t, err)

	_, err = m.VerifyToken(refresh, KindAccess)
	assert.ErrorIs(t, err, ErrWrongKind)

	claims, err := m.VerifyToken(refresh, KindRefresh)
	require.NoError(t, err)
	assert.Equal(t, "TEACHER", claims.Role)
}

func TestVerifyRejectsForeignSecretAndExpiry(t *testing.T) {
	m := NewJWTManager("secret", 1, 7)
	tok, err := m.GenerateToken(1, "an", "STUDENT")
	require.NoError(t, err)

	_, err = NewJWTManager("other", 1, 7).VerifyToken(tok, KindAccess)
	assert.Error(t, err)

	later := NewJWTManager("secret", 1, 7)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.VerifyToken(tok, KindAccess)
	assert.Error(t, err)
}
