package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type CreateUserMessage struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	Role       UserRole `json:"role"`
	AvatarRef  string   `json:"avatar_ref"`
	ActingRole UserRole `json:"-"`
	UseHashid  bool     `json:"-"`
	OnResponse func(*User)
}

func (e CreateUserMessage) Type() string { return "user.create" }

type CreateUserHandler struct {
	repo   RepositoryManager
	perms  Permissions
	logger Logger
}

// NewCreateUserHandler creates a handler with sane defaults
func NewCreateUserHandler(repo RepositoryManager) *CreateUserHandler {
	return &CreateUserHandler{
		repo:   repo,
		perms:  NewPermissions(),
		logger: defLogger{},
	}
}

// WithPermissions overrides the permission engine
func (h *CreateUserHandler) WithPermissions(perms Permissions) *CreateUserHandler {
	if perms != nil {
		h.perms = perms
	}
	return h
}

// WithLogger overrides the logger used by the handler
func (h *CreateUserHandler) WithLogger(logger Logger) *CreateUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *CreateUserHandler) Execute(ctx context.Context, event CreateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateUserHandler) execute(ctx context.Context, event CreateUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if !h.perms.Check(event.ActingRole, ActionCreate) {
		return ErrPermissionDenied.WithMetadata(map[string]any{
			"acting_role": event.ActingRole,
			"action":      ActionCreate,
		})
	}

	role := event.Role
	if role == "" {
		role = RoleViewer
	}

	if !h.perms.CanAssignRole(event.ActingRole, role) {
		return ErrPermissionDenied.WithMetadata(map[string]any{
			"acting_role": event.ActingRole,
			"target_role": role,
		})
	}

	if event.Name == "" || event.Email == "" {
		return goerrors.New("name and email are required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	user := &User{
		Name:      event.Name,
		Email:     event.Email,
		Role:      role,
		AvatarRef: event.AvatarRef,
		Status:    UserStatusPending,
	}

	// a password at creation time means the account is immediately usable
	if event.Password != "" {
		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided").
				WithCode(goerrors.CodeBadRequest)
		}
		user.PasswordHash = hash
		user.Status = UserStatusActive
	}

	if event.UseHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		}
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.Email); err == nil {
			return ErrEmailTaken.WithMetadata(map[string]any{"email": event.Email})
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email uniqueness")
		}

		created, err := h.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		user = created
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user creation transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
