package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", 3600)

	token, err := svc.GenerateToken("node-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	nodeID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "node-1", nodeID)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, err := NewTokenService("secret-a", 3600).GenerateToken("node-1")
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", 3600).ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenExpiredRejected(t *testing.T) {
	svc := NewTokenService("secret", -1)

	token, err := svc.GenerateToken("node-1")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenGarbageRejected(t *testing.T) {
	_, err := NewTokenService("secret", 3600).ValidateToken("not.a.token")
	assert.Error(t, err)
}
