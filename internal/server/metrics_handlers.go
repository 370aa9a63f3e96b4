package server

import (
	"docflow/internal/models"
	"docflow/internal/policy"

	"github.com/gofiber/fiber/v2"
)

// GetMetricsSummary returns the delivery metrics dashboard rows.
func (s *Server) GetMetricsSummary(c *fiber.Ctx) error {
	rows, err := s.metricsService.Summary(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"metrics": rows})
}

// GetRoutePreview returns the navigation routes a role would see. This is a
// UI hint for building menus, not an authorization check.
func (s *Server) GetRoutePreview(c *fiber.Ctx) error {
	role := models.Role(c.Query("role"))
	if role == "" {
		role = models.RoleGuest
	}
	return c.JSON(fiber.Map{
		"role":   role,
		"routes": policy.PermittedRoutes(role),
	})
}
