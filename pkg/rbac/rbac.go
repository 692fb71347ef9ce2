package rbac

// Permissions
const (
	PermissionViewChart  = "gantt:view"
	PermissionEditDates  = "gantt:edit_dates"
	PermissionEditLinks  = "gantt:edit_links"
	PermissionSeedArrows = "gantt:seed"
)

// Project roles, as stored in project_users.role
const (
	RoleViewer  = "project-viewer"
	RoleMember  = "project-member"
	RoleManager = "project-manager"
)

var rolePermissions = map[string][]string{
	RoleViewer: {
		PermissionViewChart,
	},
	RoleMember: {
		PermissionViewChart,
		PermissionEditDates,
		PermissionEditLinks,
		PermissionSeedArrows,
	},
	RoleManager: {
		PermissionViewChart,
		PermissionEditDates,
		PermissionEditLinks,
		PermissionSeedArrows,
	},
}

// RoleHasPermission reports whether role grants permission. Unknown roles
// grant nothing.
func RoleHasPermission(role string, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission returns a *PermissionDeniedError when role lacks permission.
func CheckPermission(userID int, projectID int, role string, permission string) error {
	if !RoleHasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			ProjectID:  projectID,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError is returned when a user lacks a project permission.
type PermissionDeniedError struct {
	UserID     int
	ProjectID  int
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
