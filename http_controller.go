package users

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

// RegisterUserRoutes mounts the login surface and the user management
// pages. Everything behind the user list requires an authenticated
// session; the activation pages are reachable with an invitation token
// alone.
func RegisterUserRoutes[T any](app router.Router[T], opts ...UsersControllerOption) {

	controller := NewUsersController(opts...)
	protected := controller.Auther.Protected()

	app.
		Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")

	app.
		Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Users, protected(controller.UsersIndex)).
		SetName("users.index")

	app.Get(controller.Routes.UserNew, protected(controller.UserCreateShow)).
		SetName("users.new.get")
	app.Post(controller.Routes.UserNew, protected(controller.UserCreatePost)).
		SetName("users.new.post")

	app.Get(fmt.Sprintf("%s/:id/edit", controller.Routes.Users), protected(controller.UserEditShow)).
		SetName("users.edit.get")
	app.Post(fmt.Sprintf("%s/:id/edit", controller.Routes.Users), protected(controller.UserEditPost)).
		SetName("users.edit.post")

	app.Post(fmt.Sprintf("%s/:id/delete", controller.Routes.Users), protected(controller.UserDeletePost)).
		SetName("users.delete.post")

	app.Post(fmt.Sprintf("%s/:id/invitations", controller.Routes.Users), protected(controller.InvitationResendPost)).
		SetName("users.invitations.post")

	app.Get(fmt.Sprintf("%s/:token", controller.Routes.Invitation), controller.ActivationShow).
		SetName("activation.get")
	app.Post(fmt.Sprintf("%s/:token", controller.Routes.Invitation), controller.ActivationPost).
		SetName("activation.post")
}

type UsersControllerRoutes struct {
	Login      string
	Logout     string
	Users      string
	UserNew    string
	Invitation string
}

type UsersControllerViews struct {
	Login      string
	UsersIndex string
	UserForm   string
	Activation string
}

type UsersController struct {
	Debug       bool
	Logger      Logger
	Repo        RepositoryManager
	Perms       Permissions
	Invitations Invitations
	Routes      *UsersControllerRoutes
	Views       *UsersControllerViews
	Auther      *RouteSessions
	Avatars     AvatarStorage
}

type UsersControllerOption func(*UsersController) *UsersController

// WithControllerRepo sets the repository manager
func WithControllerRepo(repo RepositoryManager) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		c.Repo = repo
		return c
	}
}

// WithControllerAuther sets the route session glue
func WithControllerAuther(auther *RouteSessions) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		c.Auther = auther
		return c
	}
}

// WithControllerInvitations sets the invitation machine
func WithControllerInvitations(invitations Invitations) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		c.Invitations = invitations
		return c
	}
}

// WithControllerPermissions overrides the permission engine
func WithControllerPermissions(perms Permissions) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		if perms != nil {
			c.Perms = perms
		}
		return c
	}
}

// WithControllerAvatars enables avatar cleanup on destructive operations
func WithControllerAvatars(storage AvatarStorage) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		c.Avatars = storage
		return c
	}
}

// WithControllerLogger overrides the logger
func WithControllerLogger(logger Logger) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerDebug toggles verbose error rendering
func WithControllerDebug(debug bool) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		c.Debug = debug
		return c
	}
}

func NewUsersController(opts ...UsersControllerOption) *UsersController {
	c := &UsersController{
		Logger: defLogger{},
		Perms:  NewPermissions(),
		Routes: &UsersControllerRoutes{
			Login:      "/login",
			Logout:     "/logout",
			Users:      "/users",
			UserNew:    "/users/new",
			Invitation: "/invitation",
		},
		Views: &UsersControllerViews{
			Login:      "login",
			UsersIndex: "users/index",
			UserForm:   "users/form",
			Activation: "activation",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in users controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteSessions in users controller...")
	}

	if c.Invitations == nil {
		panic("Missing Invitations in users controller...")
	}

	return c
}

func (a *UsersController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
		"reason": ctx.Query("reason", ""),
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession will return the remember me flag
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *UsersController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.Auther.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		a.Logger.Debug("login attempt", "payload", print.MaybePrettyJSON(payload))
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": map[string]string{
				"authentication": UserMessage(err, a.Debug),
			},
			"record": payload,
		})
	}

	redirect := a.Auther.GetRedirect(ctx, a.Routes.Users)

	return ctx.Redirect(redirect, fiber.StatusSeeOther)
}

func (a *UsersController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.Redirect(a.Routes.Login, fiber.StatusTemporaryRedirect)
}

func (a *UsersController) UsersIndex(ctx router.Context) error {
	session, err := GetRouterSession(ctx, "")
	if err != nil {
		return a.Auther.AuthErrorHandler(ctx, err)
	}

	records, err := a.Repo.Users().ListAll(ctx.Context())
	if err != nil {
		a.Logger.Error("users list error", "error", err)
		return a.Auther.ErrorHandler(ctx, err)
	}

	stats := map[string]int{
		"total":    len(records),
		"active":   0,
		"pending":  0,
		"inactive": 0,
	}

	for _, record := range records {
		stats[string(record.Status)]++
	}

	return ctx.Render(a.Views.UsersIndex, router.ViewContext{
		"records":    records,
		"stats":      stats,
		"session":    session,
		"can_create": a.Perms.Check(session.Role, ActionCreate),
		"can_delete": a.Perms.Check(session.Role, ActionDelete),
	})
}

// UserFormPayload is the create form payload. SendInvite switches the
// form between direct creation with a password and an email invitation.
type UserFormPayload struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Role            string `form:"role" json:"role"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
	SendInvite      bool   `form:"send_invite" json:"send_invite"`
}

// Validate will validate the payload
func (r UserFormPayload) Validate() error {
	fields := []*validation.FieldRules{
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Role, validation.Required, validation.In(RoleViewer, RoleEditor, RoleAdmin)),
	}

	if !r.SendInvite {
		fields = append(fields,
			validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
			validation.Field(
				&r.ConfirmPassword,
				validation.Required,
				validation.By(ValidateStringEquals(r.Password)),
			),
		)
	}

	return validation.ValidateStruct(&r, fields...)
}

func (a *UsersController) UserCreateShow(ctx router.Context) error {
	session, err := GetRouterSession(ctx, "")
	if err != nil {
		return a.Auther.AuthErrorHandler(ctx, err)
	}

	if !a.Perms.Check(session.Role, ActionCreate) {
		return a.renderDenied(ctx, session)
	}

	return ctx.Render(a.Views.UserForm, router.ViewContext{
		"errors":  map[string]string{},
		"record":  UserFormPayload{},
		"roles":   a.assignableRoles(session.Role),
		"session": session,
	})
}

func (a *UsersController) UserCreatePost(ctx router.Context) error {
	session, err := GetRouterSession(ctx, "")
	if err != nil {
		return a.Auther.AuthErrorHandler(ctx, err)
	}

	payload := new(UserFormPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("create user parse payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.UserForm, router.ViewContext{
			"errors":  map[string]string{"form": "Failed to parse form"},
			"record":  payload,
			"roles":   a.assignableRoles(session.Role),
			"session": session,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("create user validate payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.UserForm, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
			"roles":      a.assignableRoles(session.Role),
			"session":    session,
		})
	}

	if payload.SendInvite {
		return a.createByInvitation(ctx, session, payload)
	}

	req := CreateUserMessage{
		Name:       payload.Name,
		Email:      payload.Email,
		Password:   payload.Password,
		Role:       payload.Role,
		ActingRole: session.Role,
	}

	createUser := NewCreateUserHandler(a.Repo).
		WithPermissions(a.Perms).
		WithLogger(a.Logger)

	if err := createUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("create user error", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  UserMessage(err, a.Debug),
			"system_message": "Could not create user",
		}).Render(a.Views.UserForm, router.ViewContext{
			"record":  payload,
			"errors":  map[string]string{"create": UserMessage(err, a.Debug)},
			"roles":   a.assignableRoles(session.Role),
			"session": session,
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": fmt.Sprintf("User %s created", payload.Email),
	}).Redirect(a.Routes.Users, fiber.StatusSeeOther)
}

func (a *UsersController) createByInvitation(ctx router.Context, session *Session, payload *UserFormPayload) error {
	req := InviteUserMessage{
		Name:       payload.Name,
		Email:      payload.Email,
		Role:       payload.Role,
		ActingRole: session.Role,
	}

	inviteUser := NewInviteUserHandler(a.Invitations).WithPermissions(a.Perms)

	err := inviteUser.Execute(ctx.Context(), req)
	if err == nil {
		return flash.WithSuccess(ctx, router.ViewContext{
			"system_message": fmt.Sprintf("Invitation sent to %s", payload.Email),
		}).Redirect(a.Routes.Users, fiber.StatusSeeOther)
	}

	// the row exists even when delivery failed; land on the list where
	// the resend action is available
	if isMailFailure(err) {
		a.Logger.Warn("invitation mail failed", "email", payload.Email, "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"system_message": fmt.Sprintf("User %s created but the invitation email failed, try resending", payload.Email),
		}).Redirect(a.Routes.Users, fiber.StatusSeeOther)
	}

	a.Logger.Error("invite user error", "error", err)
	return flash.WithError(ctx, router.ViewContext{
		"error_message":  UserMessage(err, a.Debug),
		"system_message": "Could not invite user",
	}).Render(a.Views.UserForm, router.ViewContext{
		"record":  payload,
		"errors":  map[string]string{"create": UserMessage(err, a.Debug)},
		"roles":   a.assignableRoles(session.Role),
		"session": session,
	})
}

// UserEditPayload is the edit form payload. Blank fields keep their
// stored value; a blank password never clears the stored hash.
type UserEditPayload struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Role            string `form:"role" json:"role"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r UserEditPayload) Validate() error {
	fields := []*validation.FieldRules{
		validation.Field(&r.Name, validation.Length(0, 200)),
		validation.Field(&r.Role, validation.In(RoleViewer, RoleEditor, RoleAdmin)),
	}

	if r.Email != "" {
		fields = append(fields,
			validation.Field(&r.Email, validation.Length(6, 100), is.Email),
		)
	}

	if r.Password != "" {
		fields = append(fields,
			validation.Field(&r.Password, validation.Length(10, 100)),
			validation.Field(
				&r.ConfirmPassword,
				validation.Required,
				validation.By(ValidateStringEquals(r.Password)),
			),
		)
	}

	return validation.ValidateStruct(&r, fields...)
}

func (a *UsersController) UserEditShow(ctx router.Context) error {
	session, err := GetRouterSession(ctx, "")
	if err != nil {
		return a.Auther.AuthErrorHandler(ctx, err)
	}

	record, err := a.Repo.Users().GetByIdentifier(ctx.Context(), ctx.Param("id", ""))
	if err != nil {
		a.Logger.Error("user edit fetch error", "error", err)
		return a.renderNotFound(ctx, session)
	}

	if !a.Perms.CanEditUser(session.Role, session.UserID, record) {
		return a.renderDenied(ctx, session)
	}

	return ctx.Render(a.Views.UserForm, router.ViewContext{
		"errors":     map[string]string{},
		"record":     record,
		"roles":      a.assignableRoles(session.Role),
		"session":    session,
		"can_resend": record.HasOpenInvitation(),
	})
}

func (a *UsersController) UserEditPost(ctx router.Context) error {
	session, err := GetRouterSession(ctx, "")
	if err != nil {
		return a.Auther.AuthErrorHandler(ctx, err)
	}

	userID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.renderNotFound(ctx, session)
	}

	payload := new(UserEditPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("edit user parse payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.UserForm, router.ViewContext{
			"errors":  map[string]string{"form": "Failed to parse form"},
			"record":  payload,
			"roles":   a.assignableRoles(session.Role),
			"session": session,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("edit user validate payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.UserForm, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
			"roles":      a.assignableRoles(session.Role),
			"session":    session,
		})
	}

	req := UpdateUserMessage{
		UserID:     userID,
		Name:       payload.Name,
		Email:      payload.Email,
		Password:   payload.Password,
		Role:       payload.Role,
		ActingID:   session.UserID,
		ActingRole: session.Role,
	}

	updateUser := NewUpdateUserHandler(a.Repo).
		WithPermissions(a.Perms).
		WithAvatarStorage(a.Avatars).
		WithLogger(a.Logger)

	if err := updateUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("update user error", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  UserMessage(err, a.Debug),
			"system_message": "Could not update user",
		}).Render(a.Views.UserForm, router.ViewContext{
			"record":  payload,
			"errors":  map[string]string{"update": UserMessage(err, a.Debug)},
			"roles":   a.assignableRoles(session.Role),
			"session": session,
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "User updated",
	}).Redirect(a.Routes.Users, fiber.StatusSeeOther)
}

func (a *UsersController) UserDeletePost(ctx router.Context) error {
	session, err := GetRouterSession(ctx, "")
	if err != nil {
		return a.Auther.AuthErrorHandler(ctx, err)
	}

	userID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.renderNotFound(ctx, session)
	}

	req := DeleteUserMessage{
		UserID:     userID,
		ActingID:   session.UserID,
		ActingRole: session.Role,
	}

	deleteUser := NewDeleteUserHandler(a.Repo).
		WithPermissions(a.Perms).
		WithAvatarStorage(a.Avatars).
		WithLogger(a.Logger)

	if err := deleteUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("delete user error", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  UserMessage(err, a.Debug),
			"system_message": "Could not delete user",
		}).Redirect(a.Routes.Users, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "User deleted",
	}).Redirect(a.Routes.Users, fiber.StatusSeeOther)
}

func (a *UsersController) InvitationResendPost(ctx router.Context) error {
	session, err := GetRouterSession(ctx, "")
	if err != nil {
		return a.Auther.AuthErrorHandler(ctx, err)
	}

	userID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.renderNotFound(ctx, session)
	}

	var record *User
	req := ResendInvitationMessage{
		UserID:     userID,
		ActingRole: session.Role,
		OnResponse: func(u *User) {
			record = u
		},
	}

	resend := NewResendInvitationHandler(a.Invitations).WithPermissions(a.Perms)

	if err := resend.Execute(ctx.Context(), req); err != nil {
		if isMailFailure(err) && record != nil {
			a.Logger.Warn("invitation resend mail failed", "email", record.Email, "error", err)
			return flash.WithError(ctx, router.ViewContext{
				"system_message": fmt.Sprintf("Invitation for %s refreshed but the email failed, try again", record.Email),
			}).Redirect(a.Routes.Users, fiber.StatusSeeOther)
		}

		a.Logger.Error("invitation resend error", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  UserMessage(err, a.Debug),
			"system_message": "Could not resend invitation",
		}).Redirect(a.Routes.Users, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": fmt.Sprintf("Invitation sent to %s", record.Email),
	}).Redirect(a.Routes.Users, fiber.StatusSeeOther)
}

func (a *UsersController) ActivationShow(ctx router.Context) error {
	token := ctx.Param("token", "")

	record, err := a.Invitations.Resolve(ctx.Context(), token)
	if err != nil {
		return ctx.Render(a.Views.Activation, router.ViewContext{
			"valid":  false,
			"errors": map[string]string{"token": UserMessage(err, a.Debug)},
		})
	}

	return ctx.Render(a.Views.Activation, router.ViewContext{
		"valid":  true,
		"record": record,
		"token":  token,
		"errors": map[string]string{},
	})
}

// ActivationPayload holds the password chosen during activation
type ActivationPayload struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r ActivationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(10, 100),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *UsersController) ActivationPost(ctx router.Context) error {
	token := ctx.Param("token", "")

	payload := new(ActivationPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("activation parse payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Activation, router.ViewContext{
			"valid":  true,
			"token":  token,
			"errors": map[string]string{"form": "Failed to parse form"},
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Activation, router.ViewContext{
			"valid":      true,
			"token":      token,
			"errors":     map[string]string{},
			"validation": FormatValidationErrorToMap(err),
		})
	}

	req := ActivateUserMessage{
		Token:    token,
		Password: payload.Password,
	}

	activateUser := NewActivateUserHandler(a.Invitations)

	if err := activateUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("activation error", "error", err)
		return ctx.Render(a.Views.Activation, router.ViewContext{
			"valid":  false,
			"errors": map[string]string{"token": UserMessage(err, a.Debug)},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Account activated, you can sign in now",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

// assignableRoles filters the role list down to what the acting role may
// hand out, so the form never offers an option the handler would reject.
func (a *UsersController) assignableRoles(acting UserRole) []UserRole {
	roles := []UserRole{}
	for _, role := range GetAllRoles() {
		if a.Perms.CanAssignRole(acting, role) {
			roles = append(roles, role)
		}
	}
	return roles
}

func (a *UsersController) renderDenied(ctx router.Context, session *Session) error {
	return ctx.Status(fiber.StatusForbidden).Render("errors/403", router.ViewContext{
		"session": session,
	})
}

func (a *UsersController) renderNotFound(ctx router.Context, session *Session) error {
	return ctx.Status(fiber.StatusNotFound).Render("errors/404", router.ViewContext{
		"session": session,
	})
}

func isMailFailure(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == TextCodeInvitationMail
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map for templates.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["error"] = err.Error()
	return out
}
