// Package policy holds the static role policy table and the authorization
// guard evaluated before every state-changing operation.
package policy

import "docflow/internal/models"

// statusWrites maps each role to the set of statuses it may set on a request.
// Roles absent from the map have no status-write permission.
var statusWrites = map[models.Role][]models.RequestStatus{
	models.RoleAdmin:   models.RequestStatuses,
	models.RoleManager: models.RequestStatuses,
	models.RoleEditor:  models.RequestStatuses,
	models.RoleLegal: {
		models.StatusReview,
		models.StatusApproval,
		models.StatusPublished,
	},
}

// fieldPatchRoles may alter owner, slaDays and dueAt on a request. LEGAL is
// deliberately excluded: a LEGAL patch touching those fields fails regardless
// of any status value carried in the same request.
var fieldPatchRoles = map[models.Role]struct{}{
	models.RoleAdmin:   {},
	models.RoleManager: {},
	models.RoleEditor:  {},
}

// routeAccess maps each role to its permitted navigation route prefixes.
var routeAccess = map[models.Role][]string{
	models.RoleAdmin:     {"/admin", "/integrations", "/workflow", "/intake", "/metrics", "/knowledge", "/workspace", "/roles", "/crowd", "/account", "/playbook", "/team", "/chat"},
	models.RoleManager:   {"/workflow", "/intake", "/metrics", "/knowledge", "/workspace", "/integrations", "/roles", "/account", "/playbook", "/team", "/chat", "/crowd"},
	models.RoleEditor:    {"/workflow", "/knowledge", "/workspace", "/account", "/team", "/chat"},
	models.RoleLegal:     {"/workflow", "/knowledge", "/account", "/team", "/chat"},
	models.RoleCrowd:     {"/crowd", "/workflow", "/knowledge", "/account", "/team", "/chat"},
	models.RoleRequester: {"/workflow", "/intake", "/knowledge", "/account", "/team", "/chat"},
	models.RoleGuest:     {"/login", "/register", "/setup"},
}

// StatusWriters lists the roles with any status-write permission.
func StatusWriters() []models.Role {
	return []models.Role{models.RoleAdmin, models.RoleManager, models.RoleEditor, models.RoleLegal}
}

// PermittedStatuses returns the statuses a single role may set.
func PermittedStatuses(role models.Role) []models.RequestStatus {
	return statusWrites[role]
}

// PermittedRoutes returns the navigation route prefixes for a role. Unknown
// roles fall back to the MANAGER set, matching the UI's default navigation.
func PermittedRoutes(role models.Role) []string {
	if routes, ok := routeAccess[role]; ok {
		return routes
	}
	return routeAccess[models.RoleManager]
}

// IsRouteAllowed reports whether the role may navigate to path.
func IsRouteAllowed(role models.Role, path string) bool {
	for _, prefix := range PermittedRoutes(role) {
		if len(path) >= len(prefix) && path[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
