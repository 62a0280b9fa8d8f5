package users

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type InviteUserMessage struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Role       UserRole `json:"role"`
	ActingRole UserRole `json:"-"`
	OnResponse func(*User)
}

func (e InviteUserMessage) Type() string { return "user.invite" }

type InviteUserHandler struct {
	invitations Invitations
	perms       Permissions
}

// NewInviteUserHandler creates a handler with sane defaults
func NewInviteUserHandler(invitations Invitations) *InviteUserHandler {
	return &InviteUserHandler{
		invitations: invitations,
		perms:       NewPermissions(),
	}
}

// WithPermissions overrides the permission engine
func (h *InviteUserHandler) WithPermissions(perms Permissions) *InviteUserHandler {
	if perms != nil {
		h.perms = perms
	}
	return h
}

func (h *InviteUserHandler) Execute(ctx context.Context, event InviteUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invitation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InviteUserHandler) execute(ctx context.Context, event InviteUserMessage) error {
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

	user, err := h.invitations.Invite(ctx, event.Name, event.Email, role)

	// a mail failure still created the row; surface it after reporting
	// the user so the caller can offer a resend
	if user != nil && event.OnResponse != nil {
		event.OnResponse(user)
	}

	return err
}

type ResendInvitationMessage struct {
	UserID     uuid.UUID `json:"user_id"`
	ActingRole UserRole  `json:"-"`
	OnResponse func(*User)
}

func (e ResendInvitationMessage) Type() string { return "user.invite.resend" }

type ResendInvitationHandler struct {
	invitations Invitations
	perms       Permissions
}

// NewResendInvitationHandler creates a handler with sane defaults
func NewResendInvitationHandler(invitations Invitations) *ResendInvitationHandler {
	return &ResendInvitationHandler{
		invitations: invitations,
		perms:       NewPermissions(),
	}
}

// WithPermissions overrides the permission engine
func (h *ResendInvitationHandler) WithPermissions(perms Permissions) *ResendInvitationHandler {
	if perms != nil {
		h.perms = perms
	}
	return h
}

func (h *ResendInvitationHandler) Execute(ctx context.Context, event ResendInvitationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invitation resend",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendInvitationHandler) execute(ctx context.Context, event ResendInvitationMessage) error {
	if !h.perms.Check(event.ActingRole, ActionCreate) {
		return ErrPermissionDenied.WithMetadata(map[string]any{
			"acting_role": event.ActingRole,
			"action":      ActionCreate,
		})
	}

	user, err := h.invitations.Resend(ctx, event.UserID)

	if user != nil && event.OnResponse != nil {
		event.OnResponse(user)
	}

	return err
}
