package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	userID := uuid.New()

	token, err := m.Generate(userID, RoleOwner)
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	assert.Equal(t, RoleOwner, claims.Role)
}

func TestJWTManager_RejectsForeignSecret(t *testing.T) {
	token, err := NewJWTManager("one", time.Hour).Generate(uuid.New(), RoleCustomer)
	require.NoError(t, err)

	_, err = NewJWTManager("two", time.Hour).Verify(token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsExpired(t *testing.T) {
	m := NewJWTManager("secret", -time.Minute)
	token, err := m.Generate(uuid.New(), RoleCustomer)
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.Error(t, err)
}
