package users

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeAccountInactive    = "ACCOUNT_INACTIVE"
	TextCodeAccountDeleted     = "ACCOUNT_DELETED"
	TextCodePermissionDenied   = "PERMISSION_DENIED"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeInvitationInvalid  = "INVITATION_INVALID"
	TextCodeInvitationNotOpen  = "INVITATION_NOT_OPEN"
	TextCodeInvitationMail     = "INVITATION_MAIL_FAILED"
	TextCodeLastUser           = "LAST_USER"
	TextCodeSelfDelete         = "SELF_DELETE"
)

// ErrNoEmptyString is returned when hashing a blank password
var ErrNoEmptyString = errors.New("empty string not allowed")

// ErrMismatchedHashAndPassword is the uniform credential failure
var ErrMismatchedHashAndPassword = errors.New("credentials do not match")

// ErrInvalidCredentials covers both unknown email and wrong password,
// so login failures never reveal which of the two it was.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountInactive blocks authentication for non-active accounts
var ErrAccountInactive = goerrors.New("account is not active", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountInactive).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountDeleted is surfaced when a session's backing user disappeared
var ErrAccountDeleted = goerrors.New("account no longer exists", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountDeleted).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionNotFound means the request carried no resolvable session
var ErrSessionNotFound = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrPermissionDenied is returned when the permission engine rejects an action
var ErrPermissionDenied = goerrors.New("not permitted", goerrors.CategoryAuth).
	WithTextCode(TextCodePermissionDenied).
	WithCode(goerrors.CodeForbidden)

// ErrEmailTaken enforces email uniqueness at write time
var ErrEmailTaken = goerrors.New("email is already in use", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeBadRequest)

// ErrUserNotFound is returned when an id has no live match
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInvitationNotFound covers unknown and expired tokens alike; the two
// cases are deliberately indistinguishable to the caller.
var ErrInvitationNotFound = goerrors.New("invitation not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeInvitationInvalid).
	WithCode(goerrors.CodeNotFound)

// ErrInvitationNotPending is returned when resending to a non-pending user
var ErrInvitationNotPending = goerrors.New("user has no open invitation", goerrors.CategoryConflict).
	WithTextCode(TextCodeInvitationNotOpen).
	WithCode(goerrors.CodeConflict)

// ErrInvitationConsumed is returned when an activation loses the race:
// the token no longer resolves because a concurrent activation already
// cleared it, or it expired between render and submit.
var ErrInvitationConsumed = goerrors.New("invitation is no longer valid", goerrors.CategoryConflict).
	WithTextCode(TextCodeInvitationInvalid).
	WithCode(goerrors.CodeConflict)

// ErrInvitationMailFailed reports a failed delivery for an invitation that
// was still persisted; the caller should offer a resend.
var ErrInvitationMailFailed = goerrors.New("invitation email could not be sent", goerrors.CategoryOperation).
	WithTextCode(TextCodeInvitationMail)

// ErrLastUser forbids deleting the sole remaining user
var ErrLastUser = goerrors.New("cannot delete the last remaining user", goerrors.CategoryConflict).
	WithTextCode(TextCodeLastUser).
	WithCode(goerrors.CodeConflict)

// ErrSelfDelete forbids principals from deleting their own account
var ErrSelfDelete = goerrors.New("cannot delete your own account", goerrors.CategoryConflict).
	WithTextCode(TextCodeSelfDelete).
	WithCode(goerrors.CodeConflict)

// IsUserFacing reports whether the error is expected/recoverable and its
// message safe to render. Anything else is logged with full detail and
// shown as a generic failure.
func IsUserFacing(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}

	switch richErr.Category {
	case goerrors.CategoryValidation,
		goerrors.CategoryBadInput,
		goerrors.CategoryNotFound,
		goerrors.CategoryConflict:
		return true
	default:
		return false
	}
}

// UserMessage returns the message to render for err. Outside debug mode,
// non-recoverable errors collapse to a generic failure message with no
// classification detail.
func UserMessage(err error, debug bool) string {
	if err == nil {
		return ""
	}

	if debug {
		return err.Error()
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Category == goerrors.CategoryAuth {
			return richErr.Message
		}
		if IsUserFacing(err) {
			return richErr.Message
		}
	}

	return "Something went wrong, please try again"
}
