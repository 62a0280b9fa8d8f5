package users_test

import (
	"testing"
	"time"

	"github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
)

func TestEnsureStatusDefaultsToActive(t *testing.T) {
	user := &users.User{}
	user.EnsureStatus()
	assert.Equal(t, users.UserStatusActive, user.Status)

	pending := &users.User{Status: users.UserStatusPending}
	pending.EnsureStatus()
	assert.Equal(t, users.UserStatusPending, pending.Status)
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, (&users.User{Status: users.UserStatusActive}).IsActive())
	assert.False(t, (&users.User{Status: users.UserStatusPending}).IsActive())
	assert.False(t, (&users.User{Status: users.UserStatusInactive}).IsActive())

	assert.True(t, (&users.User{Status: users.UserStatusPending}).IsPending())
	assert.False(t, (&users.User{Status: users.UserStatusActive}).IsPending())
}

func TestHasOpenInvitation(t *testing.T) {
	expiry := time.Now().Add(time.Hour)

	user := &users.User{
		InvitationToken:     "tok",
		InvitationExpiresAt: &expiry,
	}
	assert.True(t, user.HasOpenInvitation())

	assert.False(t, (&users.User{}).HasOpenInvitation())
	assert.False(t, (&users.User{InvitationToken: "tok"}).HasOpenInvitation())
	assert.False(t, (&users.User{InvitationExpiresAt: &expiry}).HasOpenInvitation())
}

func TestInvitationExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	expired := &users.User{InvitationToken: "tok", InvitationExpiresAt: &past}
	assert.True(t, expired.InvitationExpired(now))

	open := &users.User{InvitationToken: "tok", InvitationExpiresAt: &future}
	assert.False(t, open.InvitationExpired(now))

	// no invitation, nothing to expire
	assert.False(t, (&users.User{}).InvitationExpired(now))
}

func TestClearInvitation(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	user := &users.User{
		InvitationToken:     "tok",
		InvitationExpiresAt: &expiry,
	}

	user.ClearInvitation()

	assert.Empty(t, user.InvitationToken)
	assert.Nil(t, user.InvitationExpiresAt)
	assert.False(t, user.HasOpenInvitation())
}
