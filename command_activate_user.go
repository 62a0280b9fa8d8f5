package users

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// ActivateUserMessage carries no principal: possession of a valid token
// is the whole authorization.
type ActivateUserMessage struct {
	Token      string `json:"token"`
	Password   string `json:"password"`
	AvatarRef  string `json:"avatar_ref"`
	OnResponse func(*User)
}

func (e ActivateUserMessage) Type() string { return "user.activate" }

type ActivateUserHandler struct {
	invitations Invitations
}

// NewActivateUserHandler creates a handler with sane defaults
func NewActivateUserHandler(invitations Invitations) *ActivateUserHandler {
	return &ActivateUserHandler{invitations: invitations}
}

func (h *ActivateUserHandler) Execute(ctx context.Context, event ActivateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateUserHandler) execute(ctx context.Context, event ActivateUserMessage) error {
	user, err := h.invitations.Activate(ctx, event.Token, event.Password, event.AvatarRef)
	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
