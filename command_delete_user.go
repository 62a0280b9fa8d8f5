package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DeleteUserMessage struct {
	UserID     uuid.UUID `json:"user_id"`
	ActingID   uuid.UUID `json:"-"`
	ActingRole UserRole  `json:"-"`
}

func (e DeleteUserMessage) Type() string { return "user.delete" }

type DeleteUserHandler struct {
	repo    RepositoryManager
	perms   Permissions
	avatars AvatarStorage
	logger  Logger
}

// NewDeleteUserHandler creates a handler with sane defaults
func NewDeleteUserHandler(repo RepositoryManager) *DeleteUserHandler {
	return &DeleteUserHandler{
		repo:   repo,
		perms:  NewPermissions(),
		logger: defLogger{},
	}
}

// WithPermissions overrides the permission engine
func (h *DeleteUserHandler) WithPermissions(perms Permissions) *DeleteUserHandler {
	if perms != nil {
		h.perms = perms
	}
	return h
}

// WithAvatarStorage enables best-effort cleanup of the deleted user's avatar
func (h *DeleteUserHandler) WithAvatarStorage(storage AvatarStorage) *DeleteUserHandler {
	h.avatars = storage
	return h
}

// WithLogger overrides the logger used by the handler
func (h *DeleteUserHandler) WithLogger(logger Logger) *DeleteUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *DeleteUserHandler) Execute(ctx context.Context, event DeleteUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user deletion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteUserHandler) execute(ctx context.Context, event DeleteUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if !h.perms.Check(event.ActingRole, ActionDelete) {
		return ErrPermissionDenied.WithMetadata(map[string]any{
			"acting_role": event.ActingRole,
			"action":      ActionDelete,
		})
	}

	if event.UserID == event.ActingID {
		return ErrSelfDelete.WithMetadata(map[string]any{"id": event.UserID.String()})
	}

	var avatarRef string

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		target, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.UserID.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUserNotFound.WithMetadata(map[string]any{"id": event.UserID.String()})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for deletion")
		}

		// the count and the delete share a transaction so two concurrent
		// deletions cannot both observe "more than one user left"
		count, err := h.repo.Users().CountAllTx(ctx, tx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count users")
		}

		if count <= 1 {
			return ErrLastUser
		}

		affected, err := h.repo.Users().DeleteByIDTx(ctx, tx, target.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user")
		}

		if affected == 0 {
			return ErrUserNotFound.WithMetadata(map[string]any{"id": event.UserID.String()})
		}

		avatarRef = target.AvatarRef
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user deletion transaction failed")
	}

	removeAvatar(ctx, h.avatars, h.logger, avatarRef)

	return nil
}
