package users_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeAccount(t *testing.T, password string) *users.User {
	t.Helper()

	hash, err := users.HashPassword(password)
	require.NoError(t, err)

	return &users.User{
		ID:           uuid.New(),
		Name:         "Pepe Rone",
		Email:        "peperone@example.com",
		PasswordHash: hash,
		Role:         users.RoleEditor,
		Status:       users.UserStatusActive,
	}
}

func TestLoginSuccess(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepositoryManager()
	account := activeAccount(t, "valid-password-123")

	repo.UsersRepo.On("GetByIdentifier", ctx, account.Email).
		Return(account, nil).Once()

	manager := users.NewSessionManager(repo)

	session, err := manager.Login(ctx, account.Email, "valid-password-123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, account.ID, session.UserID)
	assert.Equal(t, users.RoleEditor, session.Role)
	assert.Equal(t, account.Email, session.Email)

	stored, err := manager.Store().Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, stored.UserID)

	repo.UsersRepo.AssertExpectations(t)
}

func TestLoginUnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepositoryManager()
	account := activeAccount(t, "valid-password-123")

	repo.UsersRepo.On("GetByIdentifier", ctx, "nobody@example.com").
		Return(nil, repository.NewRecordNotFound()).Once()
	repo.UsersRepo.On("GetByIdentifier", ctx, account.Email).
		Return(account, nil).Once()

	manager := users.NewSessionManager(repo)

	_, unknownErr := manager.Login(ctx, "nobody@example.com", "whatever-password")
	_, wrongErr := manager.Login(ctx, account.Email, "not-the-password")

	assert.ErrorIs(t, unknownErr, users.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, users.ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestLoginRejectsBlankCredentials(t *testing.T) {
	manager := users.NewSessionManager(NewMockRepositoryManager())

	_, err := manager.Login(context.Background(), "", "password")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)

	_, err = manager.Login(context.Background(), "peperone@example.com", "")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)
}

func TestLoginPendingAccountHasNoUsableHash(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepositoryManager()

	pending := &users.User{
		ID:     uuid.New(),
		Email:  "invited@example.com",
		Status: users.UserStatusPending,
	}

	repo.UsersRepo.On("GetByIdentifier", ctx, pending.Email).
		Return(pending, nil).Once()

	manager := users.NewSessionManager(repo)

	_, err := manager.Login(ctx, pending.Email, "any-password")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)
}

func TestLoginInactiveAccount(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepositoryManager()

	account := activeAccount(t, "valid-password-123")
	account.Status = users.UserStatusInactive

	repo.UsersRepo.On("GetByIdentifier", ctx, account.Email).
		Return(account, nil).Once()

	manager := users.NewSessionManager(repo)

	_, err := manager.Login(ctx, account.Email, "valid-password-123")
	assert.ErrorIs(t, err, users.ErrAccountInactive)
}

func TestReauthorizeRefreshesProfileFields(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepositoryManager()
	account := activeAccount(t, "valid-password-123")

	repo.UsersRepo.On("GetByIdentifier", ctx, account.Email).
		Return(account, nil).Once()

	manager := users.NewSessionManager(repo)

	session, err := manager.Login(ctx, account.Email, "valid-password-123")
	require.NoError(t, err)

	// a role change lands on the very next request, no re-login needed
	promoted := *account
	promoted.Role = users.RoleAdmin
	promoted.Name = "Pepe R. One"

	repo.UsersRepo.On("GetByIdentifier", ctx, account.ID.String()).
		Return(&promoted, nil).Once()

	refreshed, err := manager.Reauthorize(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, users.RoleAdmin, refreshed.Role)
	assert.Equal(t, "Pepe R. One", refreshed.Name)

	repo.UsersRepo.AssertExpectations(t)
}

func TestReauthorizeDestroysSessionWhenUserDeleted(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepositoryManager()
	account := activeAccount(t, "valid-password-123")

	repo.UsersRepo.On("GetByIdentifier", ctx, account.Email).
		Return(account, nil).Once()

	manager := users.NewSessionManager(repo)

	session, err := manager.Login(ctx, account.Email, "valid-password-123")
	require.NoError(t, err)

	repo.UsersRepo.On("GetByIdentifier", ctx, account.ID.String()).
		Return(nil, repository.NewRecordNotFound()).Once()

	_, err = manager.Reauthorize(ctx, session.ID)
	assert.ErrorIs(t, err, users.ErrAccountDeleted)

	_, err = manager.Store().Get(ctx, session.ID)
	assert.ErrorIs(t, err, users.ErrSessionNotFound)
}

func TestReauthorizeDestroysSessionWhenUserDeactivated(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepositoryManager()
	account := activeAccount(t, "valid-password-123")

	repo.UsersRepo.On("GetByIdentifier", ctx, account.Email).
		Return(account, nil).Once()

	manager := users.NewSessionManager(repo)

	session, err := manager.Login(ctx, account.Email, "valid-password-123")
	require.NoError(t, err)

	deactivated := *account
	deactivated.Status = users.UserStatusInactive

	repo.UsersRepo.On("GetByIdentifier", ctx, account.ID.String()).
		Return(&deactivated, nil).Once()

	_, err = manager.Reauthorize(ctx, session.ID)
	assert.ErrorIs(t, err, users.ErrAccountInactive)

	_, err = manager.Store().Get(ctx, session.ID)
	assert.ErrorIs(t, err, users.ErrSessionNotFound)
}

func TestReauthorizeUnknownSession(t *testing.T) {
	manager := users.NewSessionManager(NewMockRepositoryManager())

	_, err := manager.Reauthorize(context.Background(), "missing-sid")
	assert.ErrorIs(t, err, users.ErrSessionNotFound)

	_, err = manager.Reauthorize(context.Background(), "")
	assert.ErrorIs(t, err, users.ErrSessionNotFound)
}

func TestLogoutDestroysSession(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepositoryManager()
	account := activeAccount(t, "valid-password-123")

	repo.UsersRepo.On("GetByIdentifier", ctx, account.Email).
		Return(account, nil).Once()

	manager := users.NewSessionManager(repo)

	session, err := manager.Login(ctx, account.Email, "valid-password-123")
	require.NoError(t, err)

	require.NoError(t, manager.Logout(ctx, session.ID))

	_, err = manager.Store().Get(ctx, session.ID)
	assert.ErrorIs(t, err, users.ErrSessionNotFound)
}
