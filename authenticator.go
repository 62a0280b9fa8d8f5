package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// SessionManager authenticates principals and owns their server-side
// session state, including the per-request re-sync against the
// credential store.
type SessionManager struct {
	repo   RepositoryManager
	store  SessionStore
	logger Logger
	now    func() time.Time
}

// SessionManagerOption customizes the session manager
type SessionManagerOption func(*SessionManager)

// WithSessionStore overrides the backing session store
func WithSessionStore(store SessionStore) SessionManagerOption {
	return func(m *SessionManager) {
		if store != nil {
			m.store = store
		}
	}
}

// WithSessionClock injects a custom clock (useful for tests)
func WithSessionClock(clock func() time.Time) SessionManagerOption {
	return func(m *SessionManager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithSessionLogger overrides the logger
func WithSessionLogger(logger Logger) SessionManagerOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewSessionManager returns a session manager backed by an in-memory
// store unless one is provided.
func NewSessionManager(repo RepositoryManager, opts ...SessionManagerOption) *SessionManager {
	m := &SessionManager{
		repo:   repo,
		store:  NewMemorySessionStore(),
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Store exposes the backing session store
func (m *SessionManager) Store() SessionStore {
	return m.store
}

// Login verifies the credentials and establishes a session in one step.
// Unknown email and wrong password produce the same error, so callers
// cannot tell which accounts exist.
func (m *SessionManager) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := m.repo.Users().GetByIdentifier(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during login")
	}

	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		return nil, ErrAccountInactive
	}

	session := m.sessionFromUser(user)
	if err := m.store.Put(ctx, session); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist session")
	}

	return session, nil
}

// Logout destroys the session
func (m *SessionManager) Logout(ctx context.Context, sid string) error {
	return m.store.Delete(ctx, sid)
}

// Reauthorize is the per-request re-sync: it looks up the session's user
// in the credential store and either refreshes the cached profile fields
// or destroys the session when the backing account disappeared or lost
// its active status. It runs before every protected operation.
func (m *SessionManager) Reauthorize(ctx context.Context, sid string) (*Session, error) {
	if sid == "" {
		return nil, ErrSessionNotFound
	}

	session, err := m.store.Get(ctx, sid)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	user, err := m.repo.Users().GetByIdentifier(ctx, session.UserID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			if derr := m.store.Delete(ctx, sid); derr != nil {
				m.logger.Warn("failed to destroy orphaned session", "sid", sid, "error", derr)
			}
			return nil, ErrAccountDeleted
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to re-sync session user")
	}

	if !user.IsActive() {
		if derr := m.store.Delete(ctx, sid); derr != nil {
			m.logger.Warn("failed to destroy inactive session", "sid", sid, "error", derr)
		}
		return nil, ErrAccountInactive
	}

	session.Role = user.Role
	session.Name = user.Name
	session.Email = user.Email
	session.AvatarRef = user.AvatarRef
	session.LastActivity = m.now()

	if err := m.store.Put(ctx, session); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to refresh session")
	}

	return session, nil
}

// SetFlash appends a one-shot notification to the session
func (m *SessionManager) SetFlash(ctx context.Context, sid, kind, text string) error {
	session, err := m.store.Get(ctx, sid)
	if err != nil {
		return err
	}

	session.Flashes = append(session.Flashes, FlashMessage{Kind: kind, Text: text})
	return m.store.Put(ctx, session)
}

// ConsumeFlashes returns the queued notifications and clears them; a
// second call in the same turn returns nothing.
func (m *SessionManager) ConsumeFlashes(ctx context.Context, sid string) []FlashMessage {
	session, err := m.store.Get(ctx, sid)
	if err != nil {
		return nil
	}

	flashes := session.Flashes
	if len(flashes) == 0 {
		return nil
	}

	session.Flashes = nil
	if err := m.store.Put(ctx, session); err != nil {
		m.logger.Warn("failed to clear flash queue", "sid", sid, "error", err)
	}

	return flashes
}

func (m *SessionManager) sessionFromUser(user *User) *Session {
	return &Session{
		ID:           NewSessionID(),
		UserID:       user.ID,
		Role:         user.Role,
		Name:         user.Name,
		Email:        user.Email,
		AvatarRef:    user.AvatarRef,
		LastActivity: m.now(),
	}
}
