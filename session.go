package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// FlashSuccess is a success notification
	FlashSuccess = "success"
	// FlashError is an error notification
	FlashError = "error"
	// FlashWarning is a warning notification
	FlashWarning = "warning"
)

// FlashMessage is a one-shot notification stored server-side and shown on
// the next rendered page.
type FlashMessage struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Session is the server-side state behind a session cookie. Profile
// fields are a cache of the user row and are refreshed on every
// authenticated request, so role or profile edits take effect without a
// re-login.
type Session struct {
	ID           string         `json:"id"`
	UserID       uuid.UUID      `json:"user_id"`
	Role         UserRole       `json:"role"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	AvatarRef    string         `json:"avatar_ref,omitempty"`
	LastActivity time.Time      `json:"last_activity"`
	Flashes      []FlashMessage `json:"flashes,omitempty"`
}

// SessionStore persists sessions keyed by their opaque id. The in-memory
// implementation backs tests and single-process deployments; production
// can plug an external store behind the same interface.
type SessionStore interface {
	Get(ctx context.Context, sid string) (*Session, error)
	Put(ctx context.Context, session *Session) error
	Delete(ctx context.Context, sid string) error
}

// MemorySessionStore is a mutex-guarded map of sessions
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

var _ SessionStore = (*MemorySessionStore)(nil)

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*Session),
	}
}

func (s *MemorySessionStore) Get(ctx context.Context, sid string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sid]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return cloneSession(session), nil
}

func (s *MemorySessionStore) Put(ctx context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sid)
	return nil
}

// cloneSession keeps store internals isolated from caller mutation
func cloneSession(in *Session) *Session {
	out := *in
	if len(in.Flashes) > 0 {
		out.Flashes = make([]FlashMessage, len(in.Flashes))
		copy(out.Flashes, in.Flashes)
	}
	return &out
}

// NewSessionID returns a fresh opaque session identifier
func NewSessionID() string {
	return uuid.NewString()
}
