package policy

import (
	"testing"

	"docflow/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveRolesDeduplicates(t *testing.T) {
	roles := EffectiveRoles(models.RoleEditor, []models.Role{models.RoleLegal, models.RoleEditor})
	assert.ElementsMatch(t, []models.Role{models.RoleEditor, models.RoleLegal}, roles)
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name     string
		primary  models.Role
		extra    []models.Role
		required []models.Role
		want     bool
	}{
		{"primary role matches", models.RoleAdmin, nil, []models.Role{models.RoleAdmin}, true},
		{"extra role matches", models.RoleRequester, []models.Role{models.RoleManager}, []models.Role{models.RoleManager}, true},
		{"no match", models.RoleLegal, nil, []models.Role{models.RoleAdmin, models.RoleManager}, false},
		{"guest never matches", models.RoleGuest, nil, []models.Role{models.RoleRequester}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.primary, tt.extra, tt.required))
		})
	}
}

func TestCanSetStatusPerRole(t *testing.T) {
	// Full-pipeline roles can set every status.
	for _, role := range []models.Role{models.RoleAdmin, models.RoleManager, models.RoleEditor} {
		for _, status := range models.RequestStatuses {
			assert.True(t, CanSetStatus(role, nil, status), "%s should set %s", role, status)
		}
	}

	// LEGAL is limited to the review tail of the pipeline.
	allowed := map[models.RequestStatus]bool{
		models.StatusReview:    true,
		models.StatusApproval:  true,
		models.StatusPublished: true,
	}
	for _, status := range models.RequestStatuses {
		assert.Equal(t, allowed[status], CanSetStatus(models.RoleLegal, nil, status),
			"LEGAL setting %s", status)
	}

	// REQUESTER has no status-write permission at all.
	for _, status := range models.RequestStatuses {
		assert.False(t, CanSetStatus(models.RoleRequester, nil, status))
	}
}

func TestExtraRolesUnionForStatusWrites(t *testing.T) {
	// A REQUESTER with EDITOR as an extra role gains the full pipeline.
	assert.True(t, CanSetStatus(models.RoleRequester, []models.Role{models.RoleEditor}, models.StatusTriage))

	// A LEGAL with REQUESTER extra gains nothing beyond the LEGAL set.
	assert.False(t, CanSetStatus(models.RoleLegal, []models.Role{models.RoleRequester}, models.StatusNew))
}

func TestCanPatchFields(t *testing.T) {
	assert.True(t, CanPatchFields(models.RoleAdmin, nil))
	assert.True(t, CanPatchFields(models.RoleManager, nil))
	assert.True(t, CanPatchFields(models.RoleEditor, nil))
	assert.False(t, CanPatchFields(models.RoleLegal, nil))
	assert.False(t, CanPatchFields(models.RoleRequester, nil))

	// Union applies here too.
	assert.True(t, CanPatchFields(models.RoleLegal, []models.Role{models.RoleEditor}))
}

func TestPermittedRoutesFallsBackToManager(t *testing.T) {
	assert.Equal(t, PermittedRoutes(models.RoleManager), PermittedRoutes(models.Role("UNKNOWN")))
}

func TestIsRouteAllowed(t *testing.T) {
	assert.True(t, IsRouteAllowed(models.RoleAdmin, "/admin/users"))
	assert.False(t, IsRouteAllowed(models.RoleRequester, "/admin"))
	assert.True(t, IsRouteAllowed(models.RoleGuest, "/login"))
	assert.False(t, IsRouteAllowed(models.RoleGuest, "/workflow"))
}
