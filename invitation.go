package users

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultMailTimeout bounds the blocking call into the mail collaborator
// so a slow delivery backend cannot hang the request.
var DefaultMailTimeout = 10 * time.Second

// Invitations drives the pending → active lifecycle: token issuance,
// expiry, and the activation transition.
type Invitations interface {
	Invite(ctx context.Context, name, email string, role UserRole) (*User, error)
	Resend(ctx context.Context, userID uuid.UUID) (*User, error)
	Resolve(ctx context.Context, token string) (*User, error)
	Activate(ctx context.Context, token, password, avatarRef string) (*User, error)
}

// InvitationOption customizes the invitation machine
type InvitationOption func(*invitationMachine)

// WithInvitationClock injects a custom clock (useful for tests)
func WithInvitationClock(clock func() time.Time) InvitationOption {
	return func(m *invitationMachine) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithInvitationTTL overrides how long invitation links stay valid
func WithInvitationTTL(ttl time.Duration) InvitationOption {
	return func(m *invitationMachine) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithInvitationTokenSize sets token entropy in bytes; values below
// MinInvitationTokenLength are bumped up at generation time.
func WithInvitationTokenSize(size int) InvitationOption {
	return func(m *invitationMachine) {
		m.tokenSize = size
	}
}

// WithInvitationMailer sets the mail delivery collaborator
func WithInvitationMailer(mailer Mailer) InvitationOption {
	return func(m *invitationMachine) {
		if mailer != nil {
			m.mailer = mailer
		}
	}
}

// WithInvitationLogger overrides the logger
func WithInvitationLogger(logger Logger) InvitationOption {
	return func(m *invitationMachine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithActivationBaseURL sets the prefix used to build activation links
func WithActivationBaseURL(base string) InvitationOption {
	return func(m *invitationMachine) {
		m.baseURL = base
	}
}

// WithMailTimeout bounds each call into the mailer
func WithMailTimeout(d time.Duration) InvitationOption {
	return func(m *invitationMachine) {
		if d > 0 {
			m.mailTimeout = d
		}
	}
}

// NewInvitationMachine returns the default implementation backed by the
// provided repositories.
func NewInvitationMachine(repo RepositoryManager, opts ...InvitationOption) Invitations {
	m := &invitationMachine{
		repo:        repo,
		now:         time.Now,
		ttl:         DefaultInvitationTTL,
		tokenSize:   MinInvitationTokenLength,
		mailer:      NewLogMailer(nil),
		logger:      defLogger{},
		baseURL:     "",
		mailTimeout: DefaultMailTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

type invitationMachine struct {
	repo        RepositoryManager
	now         func() time.Time
	ttl         time.Duration
	tokenSize   int
	mailer      Mailer
	logger      Logger
	baseURL     string
	mailTimeout time.Duration
}

func (m *invitationMachine) Invite(ctx context.Context, name, email string, role UserRole) (*User, error) {
	if name == "" || email == "" {
		return nil, goerrors.New("name and email are required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if _, valid := ParseRole(role); !valid {
		return nil, goerrors.New("unknown role", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"role": role})
	}

	token, err := GenerateInvitationToken(m.tokenSize)
	if err != nil {
		return nil, err
	}

	expiresAt := m.now().Add(m.ttl)

	user := &User{
		Name:                name,
		Email:               email,
		Role:                role,
		Status:              UserStatusPending,
		InvitationToken:     token,
		InvitationExpiresAt: &expiresAt,
	}

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := m.repo.Users().GetByIdentifierTx(ctx, tx, email); err == nil {
			return ErrEmailTaken.WithMetadata(map[string]any{"email": email})
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email uniqueness")
		}

		created, err := m.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create invited user")
		}

		user = created
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create invitation")
	}

	// the row is committed; a delivery failure is reported but never
	// undoes the invitation, the caller can resend
	if err := m.deliver(ctx, user); err != nil {
		m.logger.Warn("invitation mail delivery failed", "email", user.Email, "error", err)
		return user, ErrInvitationMailFailed.WithMetadata(map[string]any{
			"user_id": user.ID.String(),
		})
	}

	return user, nil
}

func (m *invitationMachine) Resend(ctx context.Context, userID uuid.UUID) (*User, error) {
	token, err := GenerateInvitationToken(m.tokenSize)
	if err != nil {
		return nil, err
	}

	expiresAt := m.now().Add(m.ttl)

	var user *User
	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := m.repo.Users().GetByIdentifierTx(ctx, tx, userID.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUserNotFound.WithMetadata(map[string]any{"id": userID.String()})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for resend")
		}

		// resending never requires the previous token to still be valid;
		// only the status gates it
		if !record.IsPending() {
			return ErrInvitationNotPending.WithMetadata(map[string]any{
				"id":     userID.String(),
				"status": record.Status,
			})
		}

		updated, err := m.repo.Users().AssignInvitationTx(ctx, tx, record.ID, token, expiresAt)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvitationNotPending.WithMetadata(map[string]any{"id": userID.String()})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to assign new invitation token")
		}

		user = updated
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resend invitation")
	}

	if err := m.deliver(ctx, user); err != nil {
		m.logger.Warn("invitation mail delivery failed", "email", user.Email, "error", err)
		return user, ErrInvitationMailFailed.WithMetadata(map[string]any{
			"user_id": user.ID.String(),
		})
	}

	return user, nil
}

func (m *invitationMachine) Resolve(ctx context.Context, token string) (*User, error) {
	user, err := m.repo.Users().FindByInvitationToken(ctx, token, m.now())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvitationNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve invitation token")
	}

	return user, nil
}

func (m *invitationMachine) Activate(ctx context.Context, token, password, avatarRef string) (*User, error) {
	if token == "" {
		return nil, ErrInvitationNotFound
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided").
			WithCode(goerrors.CodeBadRequest)
	}

	var user *User
	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// single conditional write re-validates the token at write time,
		// which also makes concurrent double activation lose cleanly
		record, err := m.repo.Users().ActivateByTokenTx(ctx, tx, token, hash, avatarRef, m.now())
		if err != nil {
			return err
		}

		user = record
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate invitation")
	}

	return user, nil
}

func (m *invitationMachine) deliver(ctx context.Context, user *User) error {
	ctx, cancel := context.WithTimeout(ctx, m.mailTimeout)
	defer cancel()

	link := fmt.Sprintf("%s/invitation/%s", m.baseURL, user.InvitationToken)
	body := fmt.Sprintf(
		`<p>Hello %s,</p><p>You have been invited. Follow <a href="%s">this link</a> to choose a password and activate your account. The link expires at %s.</p>`,
		user.Name,
		link,
		user.InvitationExpiresAt.Format(time.RFC1123),
	)

	return m.mailer.Send(ctx, user.Email, "You have been invited", body)
}
