package shared

// Core platform permissions.
const (
	PermNavigationView   = "navigation.view"
	PermNavigationManage = "navigation.manage"

	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermNavigationView,
		PermNavigationManage,
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
	}
}
