package users_test

import (
	"encoding/base64"
	"testing"

	"github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInvitationToken(t *testing.T) {
	token, err := users.GenerateInvitationToken(users.MinInvitationTokenLength)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err, "token must be URL-safe base64")
	assert.Len(t, raw, users.MinInvitationTokenLength)
}

func TestGenerateInvitationTokenBumpsSmallSizes(t *testing.T) {
	token, err := users.GenerateInvitationToken(4)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(raw), users.MinInvitationTokenLength)
}

func TestGenerateInvitationTokenIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := users.GenerateInvitationToken(users.MinInvitationTokenLength)
		require.NoError(t, err)
		assert.False(t, seen[token])
		seen[token] = true
	}
}
