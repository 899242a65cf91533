package domain

import "fmt"

// Role is an application role assigned to a user.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleEventPlanner Role = "event_planner"
	RoleTeamMember   Role = "team_member"
	RoleUserManager  Role = "user_manager"
)

// Permission is a single capability checked by the services.
type Permission string

const (
	PermissionReadEvents           Permission = "read_events"
	PermissionWriteEvents          Permission = "write_events"
	PermissionCreateEvents         Permission = "create_events"
	PermissionDeleteEvents         Permission = "delete_events"
	PermissionWriteRegistrations   Permission = "write_registrations"
	PermissionWriteOwnRegistration Permission = "write_own_registrations"
	PermissionReadPositions        Permission = "read_positions"
	PermissionWritePositions       Permission = "write_positions"
	PermissionReadUsers            Permission = "read_users"
	PermissionWriteUsers           Permission = "write_users"
	PermissionReadQualifications   Permission = "read_qualifications"
	PermissionWriteQualifications  Permission = "write_qualifications"
)

var allPermissions = []Permission{
	PermissionReadEvents,
	PermissionWriteEvents,
	PermissionCreateEvents,
	PermissionDeleteEvents,
	PermissionWriteRegistrations,
	PermissionWriteOwnRegistration,
	PermissionReadPositions,
	PermissionWritePositions,
	PermissionReadUsers,
	PermissionWriteUsers,
	PermissionReadQualifications,
	PermissionWriteQualifications,
}

var rolePermissions = map[Role][]Permission{
	RoleAdmin: allPermissions,
	RoleEventPlanner: {
		PermissionReadEvents,
		PermissionWriteEvents,
		PermissionCreateEvents,
		PermissionDeleteEvents,
		PermissionWriteRegistrations,
		PermissionWriteOwnRegistration,
		PermissionReadPositions,
		PermissionReadUsers,
		PermissionReadQualifications,
	},
	RoleTeamMember: {
		PermissionReadEvents,
		PermissionWriteOwnRegistration,
		PermissionReadPositions,
		PermissionReadQualifications,
	},
	RoleUserManager: {
		PermissionReadUsers,
		PermissionWriteUsers,
		PermissionReadPositions,
		PermissionWritePositions,
		PermissionReadQualifications,
		PermissionWriteQualifications,
	},
}

// permissionTable is rolePermissions flattened into set lookups at init.
var permissionTable = func() map[Role]map[Permission]struct{} {
	table := make(map[Role]map[Permission]struct{}, len(rolePermissions))
	for role, perms := range rolePermissions {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		table[role] = set
	}
	return table
}()

// ParseRole returns the Role for code, or ErrInvalidInput for unknown codes.
func ParseRole(code string) (Role, error) {
	r := Role(code)
	if _, ok := permissionTable[r]; !ok {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, code)
	}
	return r, nil
}

// Permissions returns the fixed permission list granted to the role.
func (r Role) Permissions() []Permission {
	return rolePermissions[r]
}

// SignedInUser is the authenticated caller of a service operation.
type SignedInUser struct {
	Key   UserKey
	Email string
	Roles []Role
}

// HasPermission reports whether any of the user's roles grants p.
func (u SignedInUser) HasPermission(p Permission) bool {
	for _, r := range u.Roles {
		if _, ok := permissionTable[r][p]; ok {
			return true
		}
	}
	return false
}

// AssertHasPermission returns ErrForbidden when the user lacks p.
func (u SignedInUser) AssertHasPermission(p Permission) error {
	if !u.HasPermission(p) {
		return fmt.Errorf("%w: missing permission %s", ErrForbidden, p)
	}
	return nil
}
