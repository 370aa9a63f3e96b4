package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"docflow/internal/config"
	"docflow/internal/models"
	"docflow/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleRequired(t *testing.T) {
	s := &Server{config: &config.Config{JWTSecret: "test_secret"}}

	tests := []struct {
		name           string
		actor          service.Actor
		required       []models.Role
		expectedStatus int
	}{
		{
			name:           "Primary Role Allowed",
			actor:          service.Actor{UserID: 1, Role: models.RoleManager},
			required:       []models.Role{models.RoleAdmin, models.RoleManager},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Role Denied",
			actor:          service.Actor{UserID: 2, Role: models.RoleEditor},
			required:       []models.Role{models.RoleAdmin, models.RoleManager},
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "Extra Role Grants Access",
			actor: service.Actor{
				UserID: 3, Role: models.RoleRequester,
				Extra: []models.Role{models.RoleManager},
			},
			required:       []models.Role{models.RoleManager},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Unauthenticated Guest Denied",
			actor:          service.Actor{Role: models.RoleGuest},
			required:       []models.Role{models.RoleAdmin},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/guarded", asActor(s, tt.actor), s.RoleRequired(tt.required...),
				func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}
