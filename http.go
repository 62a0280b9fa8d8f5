package users

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// DefaultSessionCookie is the cookie carrying the opaque session id
const DefaultSessionCookie = "sid"

// DefaultRejectedRouteKey is the cookie remembering where an
// unauthenticated request was headed.
const DefaultRejectedRouteKey = "redirect_to"

// LoginPayload is what the route layer needs from a login form
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
	GetExtendedSession() bool
}

// RouteSessions is the cookie glue between HTTP routes and the
// SessionManager: it sets and clears the session cookie and exposes the
// middleware that re-syncs the session on every protected request.
type RouteSessions struct {
	sessions               *SessionManager
	cookieName             string
	rejectedRouteKey       string
	rejectedRouteDefault   string
	cookieDuration         time.Duration
	extendedCookieDuration time.Duration
	Logger                 Logger
	AuthErrorHandler       func(c router.Context, err error) error
	ErrorHandler           func(c router.Context, err error) error
}

// RouteSessionsOption customizes the route session glue
type RouteSessionsOption func(*RouteSessions)

// WithSessionCookie overrides the session cookie name
func WithSessionCookie(name string) RouteSessionsOption {
	return func(a *RouteSessions) {
		if name != "" {
			a.cookieName = name
		}
	}
}

// WithCookieDuration overrides the base and remember-me cookie lifetimes
func WithCookieDuration(base, extended time.Duration) RouteSessionsOption {
	return func(a *RouteSessions) {
		if base > 0 {
			a.cookieDuration = base
		}
		if extended > 0 {
			a.extendedCookieDuration = extended
		}
	}
}

// WithRouteLogger overrides the logger
func WithRouteLogger(logger Logger) RouteSessionsOption {
	return func(a *RouteSessions) {
		if logger != nil {
			a.Logger = logger
		}
	}
}

func NewRouteSessions(sessions *SessionManager, opts ...RouteSessionsOption) *RouteSessions {
	a := &RouteSessions{
		sessions:               sessions,
		cookieName:             DefaultSessionCookie,
		rejectedRouteKey:       DefaultRejectedRouteKey,
		rejectedRouteDefault:   "/users",
		cookieDuration:         24 * time.Hour,
		extendedCookieDuration: 24 * time.Hour * 30,
		Logger:                 defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

func (a RouteSessions) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

func (a RouteSessions) GetExtendedCookieDuration() time.Duration {
	return a.extendedCookieDuration
}

// Sessions exposes the backing session manager
func (a *RouteSessions) Sessions() *SessionManager {
	return a.sessions
}

// CurrentSID returns the request's session id cookie
func (a *RouteSessions) CurrentSID(ctx router.Context) string {
	return ctx.Cookies(a.cookieName)
}

// Protected resolves the session cookie and re-syncs the session against
// the user store before the wrapped handler runs. The resolved session is
// available through GetRouterSession and SessionFromContext.
func (a *RouteSessions) Protected() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			sid := ctx.Cookies(a.cookieName)
			if sid == "" {
				return a.AuthErrorHandler(ctx, ErrSessionNotFound)
			}

			session, err := a.sessions.Reauthorize(ctx.Context(), sid)
			if err != nil {
				a.cookieDel(ctx, a.cookieName)
				return a.AuthErrorHandler(ctx, err)
			}

			ctx.Locals(SessionLocalsKey, session)
			ctx.SetContext(WithSessionContext(ctx.Context(), session))

			return hf(ctx)
		}
	}
}

func (a *RouteSessions) Login(ctx router.Context, payload LoginPayload) error {
	session, err := a.sessions.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return err
	}

	duration := a.cookieDuration
	if payload.GetExtendedSession() {
		duration = a.extendedCookieDuration
	}

	a.setCookieSID(ctx, session.ID, duration)
	return nil
}

func (a *RouteSessions) Logout(ctx router.Context) {
	if sid := ctx.Cookies(a.cookieName); sid != "" {
		if err := a.sessions.Logout(ctx.Context(), sid); err != nil {
			a.Logger.Warn("Logout error", "error", err)
		}
	}
	a.cookieDel(ctx, a.cookieName)
}

func (a *RouteSessions) GetRedirect(ctx router.Context, def ...string) string {
	r := ctx.Cookies(a.rejectedRouteKey)
	if r == "" {
		if len(def) > 0 {
			return def[0]
		}
		return a.rejectedRouteDefault
	}
	a.cookieDel(ctx, a.rejectedRouteKey)
	return r
}

func (a *RouteSessions) GetRedirectOrDefault(ctx router.Context) string {
	refererHeader := string(ctx.Referer())

	r := ctx.Cookies(a.rejectedRouteKey, refererHeader)
	if r == "" {
		r = a.rejectedRouteDefault
	}
	a.cookieDel(ctx, a.rejectedRouteKey)
	return r
}

func (a *RouteSessions) SetRedirect(ctx router.Context) {
	a.Logger.Info("Setting redirect cookie", "key", a.rejectedRouteKey, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     a.rejectedRouteKey,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteSessions) setCookieSID(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cookieName,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteSessions) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteSessions) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error, redirecting to login",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	a.SetRedirect(c)

	login := "/login"
	switch richErr.TextCode {
	case TextCodeAccountDeleted:
		login = "/login?reason=account_deleted"
	case TextCodeAccountInactive:
		login = "/login?reason=account_inactive"
	}

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect(login, statusCode)
}

func (a *RouteSessions) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}
