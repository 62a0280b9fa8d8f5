package users

import "github.com/google/uuid"

// Action is a permission-checked operation on the users resource
type Action = string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Permissions answers authorization questions for lifecycle operations.
// Implementations must be side-effect free: unknown roles or actions
// degrade to "not permitted", they never error.
type Permissions interface {
	// Check reports whether the role may perform the action
	Check(role UserRole, action Action) bool

	// RoleLevel returns the position of the role in the total order
	// viewer(0) < editor(1) < admin(2); unknown roles return -1
	RoleLevel(role UserRole) int

	// CanAssignRole reports whether actingRole may hand out targetRole
	CanAssignRole(actingRole, targetRole UserRole) bool

	// CanEditUser reports whether the acting principal may edit target
	CanEditUser(actingRole UserRole, actingID uuid.UUID, target *User) bool
}

var roleActions = map[UserRole]map[Action]struct{}{
	RoleAdmin: {
		ActionCreate: {},
		ActionRead:   {},
		ActionUpdate: {},
		ActionDelete: {},
	},
	RoleEditor: {
		ActionRead:   {},
		ActionUpdate: {},
	},
	RoleViewer: {
		ActionRead: {},
	},
}

var roleHierarchy = map[UserRole]int{
	RoleViewer: 0,
	RoleEditor: 1,
	RoleAdmin:  2,
}

// RolePermissions is the static, table-driven Permissions implementation
type RolePermissions struct{}

var _ Permissions = RolePermissions{}

// NewPermissions returns the default permission engine
func NewPermissions() RolePermissions {
	return RolePermissions{}
}

func (RolePermissions) Check(role UserRole, action Action) bool {
	actions, ok := roleActions[role]
	if !ok {
		return false
	}
	_, ok = actions[action]
	return ok
}

func (RolePermissions) RoleLevel(role UserRole) int {
	level, ok := roleHierarchy[role]
	if !ok {
		return -1
	}
	return level
}

func (RolePermissions) CanAssignRole(actingRole, targetRole UserRole) bool {
	if _, ok := roleHierarchy[targetRole]; !ok {
		return false
	}

	switch actingRole {
	case RoleAdmin:
		return true
	case RoleEditor:
		return targetRole != RoleAdmin
	default:
		return false
	}
}

func (p RolePermissions) CanEditUser(actingRole UserRole, actingID uuid.UUID, target *User) bool {
	if target == nil {
		return false
	}

	// everyone may edit their own record
	if target.ID != uuid.Nil && target.ID == actingID {
		return true
	}

	switch actingRole {
	case RoleAdmin:
		return true
	case RoleEditor:
		return target.Role == RoleViewer
	default:
		return false
	}
}

// IsValid checks if the role is one of the predefined valid roles
func (p RolePermissions) IsValid(role UserRole) bool {
	_, ok := roleHierarchy[role]
	return ok
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleViewer,
		RoleEditor,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	_, ok := roleHierarchy[role]
	return role, ok
}
