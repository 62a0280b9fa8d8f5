package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleViewer is a read-only role
	RoleViewer UserRole = "viewer"
	// RoleEditor is a member role (i.e. read, update)
	RoleEditor UserRole = "editor"
	// RoleAdmin is an admin role (i.e. create, read, update, delete)
	RoleAdmin UserRole = "admin"
)

// UserStatus is the lifecycle status of a user account
type UserStatus = string

const (
	// UserStatusPending is an invited account that has not been activated
	UserStatusPending UserStatus = "pending"
	// UserStatusActive is a regular, usable account
	UserStatusActive UserStatus = "active"
	// UserStatusInactive is a deactivated account, blocked from login
	UserStatusInactive UserStatus = "inactive"
)

// User is the user model
type User struct {
	bun.BaseModel       `bun:"table:users,alias:usr"`
	ID                  uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name                string     `bun:"name,notnull" json:"name,omitempty"`
	Email               string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash        string     `bun:"password_hash" json:"-"`
	Role                UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Status              UserStatus `bun:"status,notnull" json:"status,omitempty"`
	InvitationToken     string     `bun:"invitation_token,nullzero,unique" json:"-"`
	InvitationExpiresAt *time.Time `bun:"invitation_expires_at,nullzero" json:"invitation_expires_at,omitempty"`
	AvatarRef           string     `bun:"avatar_ref" json:"avatar_ref,omitempty"`
	CreatedAt           *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt           *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus normalizes records created before the status column existed
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// IsActive reports whether the account can authenticate
func (u *User) IsActive() bool {
	u.EnsureStatus()
	return u.Status == UserStatusActive
}

// IsPending reports whether the account is awaiting activation
func (u *User) IsPending() bool {
	u.EnsureStatus()
	return u.Status == UserStatusPending
}

// HasOpenInvitation reports whether an invitation token is outstanding.
// Token and expiry are always set and cleared together.
func (u *User) HasOpenInvitation() bool {
	return u.InvitationToken != "" && u.InvitationExpiresAt != nil
}

// InvitationExpired reports whether the outstanding invitation, if any,
// is past its expiry. An expired invitation keeps the record pending;
// expiry only affects token validation.
func (u *User) InvitationExpired(now time.Time) bool {
	if !u.HasOpenInvitation() {
		return false
	}
	return now.After(*u.InvitationExpiresAt)
}

// ClearInvitation removes the invitation token and its expiry
func (u *User) ClearInvitation() {
	u.InvitationToken = ""
	u.InvitationExpiresAt = nil
}
