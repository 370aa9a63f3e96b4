package policy

import "docflow/internal/models"

// EffectiveRoles returns the actor's permission roles: the primary role plus
// any extra roles. GUEST contributes nothing beyond itself.
func EffectiveRoles(primary models.Role, extra []models.Role) []models.Role {
	roles := make([]models.Role, 0, 1+len(extra))
	roles = append(roles, primary)
	for _, r := range extra {
		if r == primary {
			continue
		}
		roles = append(roles, r)
	}
	return roles
}

// Authorize is a pure predicate: it reports whether the actor's effective role
// set intersects the required set. An empty required set denies everything, so
// a missing session (GUEST) fails closed.
func Authorize(primary models.Role, extra []models.Role, required []models.Role) bool {
	for _, have := range EffectiveRoles(primary, extra) {
		for _, want := range required {
			if have == want {
				return true
			}
		}
	}
	return false
}

// CanSetStatus reports whether any of the actor's effective roles may set the
// given status on a request.
func CanSetStatus(primary models.Role, extra []models.Role, status models.RequestStatus) bool {
	for _, role := range EffectiveRoles(primary, extra) {
		for _, allowed := range statusWrites[role] {
			if allowed == status {
				return true
			}
		}
	}
	return false
}

// CanWriteStatus reports whether the actor may set any status at all.
func CanWriteStatus(primary models.Role, extra []models.Role) bool {
	for _, role := range EffectiveRoles(primary, extra) {
		if len(statusWrites[role]) > 0 {
			return true
		}
	}
	return false
}

// CanPatchFields reports whether the actor may alter owner, slaDays or dueAt.
func CanPatchFields(primary models.Role, extra []models.Role) bool {
	for _, role := range EffectiveRoles(primary, extra) {
		if _, ok := fieldPatchRoles[role]; ok {
			return true
		}
	}
	return false
}
