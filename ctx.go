package users

import (
	"context"

	"github.com/goliatone/go-router"
)

var sessionCtxKey = &contextKey{"session"}

// SessionLocalsKey is where protected routes stash the resolved session
const SessionLocalsKey = "session"

type contextKey struct {
	name string
}

// WithSessionContext sets the Session in the given context
func WithSessionContext(r context.Context, session *Session) context.Context {
	return context.WithValue(r, sessionCtxKey, session)
}

// SessionFromContext finds the session from the context.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*Session)
	return raw, ok
}

// GetRouterSession extracts the Session stashed by the protected route middleware
func GetRouterSession(c router.Context, key string) (*Session, error) {
	if key == "" {
		key = SessionLocalsKey
	}

	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrSessionNotFound
	}

	session, ok := raw.(*Session)
	if session == nil || !ok {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// Can checks an action against the session's role from the standard context
func Can(ctx context.Context, perms Permissions, action Action) bool {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return false
	}
	return perms.Check(session.Role, action)
}
