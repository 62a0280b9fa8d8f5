package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UpdateUserMessage struct {
	UserID     uuid.UUID `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Password   string    `json:"password"`
	Role       UserRole  `json:"role"`
	AvatarRef  string    `json:"avatar_ref"`
	ActingID   uuid.UUID `json:"-"`
	ActingRole UserRole  `json:"-"`
	OnResponse func(*User)
}

func (e UpdateUserMessage) Type() string { return "user.update" }

type UpdateUserHandler struct {
	repo    RepositoryManager
	perms   Permissions
	avatars AvatarStorage
	logger  Logger
}

// NewUpdateUserHandler creates a handler with sane defaults
func NewUpdateUserHandler(repo RepositoryManager) *UpdateUserHandler {
	return &UpdateUserHandler{
		repo:   repo,
		perms:  NewPermissions(),
		logger: defLogger{},
	}
}

// WithPermissions overrides the permission engine
func (h *UpdateUserHandler) WithPermissions(perms Permissions) *UpdateUserHandler {
	if perms != nil {
		h.perms = perms
	}
	return h
}

// WithAvatarStorage enables best-effort cleanup of replaced avatar files
func (h *UpdateUserHandler) WithAvatarStorage(storage AvatarStorage) *UpdateUserHandler {
	h.avatars = storage
	return h
}

// WithLogger overrides the logger used by the handler
func (h *UpdateUserHandler) WithLogger(logger Logger) *UpdateUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *UpdateUserHandler) Execute(ctx context.Context, event UpdateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateUserHandler) execute(ctx context.Context, event UpdateUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var passwordHash string
	if event.Password != "" {
		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided").
				WithCode(goerrors.CodeBadRequest)
		}
		passwordHash = hash
	}

	var user *User
	var replacedAvatar string

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		target, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.UserID.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUserNotFound.WithMetadata(map[string]any{"id": event.UserID.String()})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for update")
		}

		if !h.perms.CanEditUser(event.ActingRole, event.ActingID, target) {
			return ErrPermissionDenied.WithMetadata(map[string]any{
				"acting_role": event.ActingRole,
				"target_id":   target.ID.String(),
			})
		}

		// a role change is gated separately from the edit itself
		if event.Role != "" && event.Role != target.Role {
			if !h.perms.CanAssignRole(event.ActingRole, event.Role) {
				return ErrPermissionDenied.WithMetadata(map[string]any{
					"acting_role": event.ActingRole,
					"target_role": event.Role,
				})
			}
			target.Role = event.Role
		}

		if event.Email != "" && event.Email != target.Email {
			if existing, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.Email); err == nil {
				if existing.ID != target.ID {
					return ErrEmailTaken.WithMetadata(map[string]any{"email": event.Email})
				}
			} else if !repository.IsRecordNotFound(err) {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email uniqueness")
			}
			target.Email = event.Email
		}

		if event.Name != "" {
			target.Name = event.Name
		}

		// never overwrite an existing hash with a blank password
		if passwordHash != "" {
			target.PasswordHash = passwordHash
		}

		if event.AvatarRef != "" && event.AvatarRef != target.AvatarRef {
			replacedAvatar = target.AvatarRef
			target.AvatarRef = event.AvatarRef
		}

		updated, err := h.repo.Users().UpdateTx(ctx, tx, target, repository.UpdateByID(target.ID.String()))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
		}

		user = updated
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user update transaction failed")
	}

	// the old file is orphaned once the row points at the new ref
	if replacedAvatar != "" {
		removeAvatar(ctx, h.avatars, h.logger, replacedAvatar)
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
