package server

import (
	"docflow/internal/models"
	"docflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateUserPayload is an admin-provisioned account.
type CreateUserPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Team     string `json:"team"`
}

// UpdateUserPayload carries partial account updates.
type UpdateUserPayload struct {
	Name       *string   `json:"name"`
	Team       *string   `json:"team"`
	Role       *string   `json:"role"`
	ExtraRoles *[]string `json:"extraRoles"`
}

// GetMyProfile returns the authenticated user's account.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	actor := s.actor(c)
	user, err := s.userService.GetUser(c.UserContext(), actor.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetAllUsers lists accounts.
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	users, err := s.userService.ListUsers(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "count": len(users)})
}

// GetUser returns one account by ID.
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	user, err := s.userService.GetUser(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// CreateUser provisions an account with a chosen role. Admin only;
// self-registration goes through Signup and always starts as REQUESTER.
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var payload CreateUserPayload
	if err := c.BodyParser(&payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.CreateUser(c.UserContext(), service.CreateUserInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     models.Role(payload.Role),
		Team:     payload.Team,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// UpdateUser applies account changes. Role, team and extra-role changes are
// admin-only; other users may only edit themselves.
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}

	var payload UpdateUserPayload
	if err := c.BodyParser(&payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.UpdateUserInput{
		Actor:  s.actor(c),
		UserID: id,
		Name:   payload.Name,
		Team:   payload.Team,
	}
	if payload.Role != nil {
		r := models.Role(*payload.Role)
		in.Role = &r
	}
	if payload.ExtraRoles != nil {
		extra := make([]models.Role, 0, len(*payload.ExtraRoles))
		for _, r := range *payload.ExtraRoles {
			extra = append(extra, models.Role(r))
		}
		in.ExtraRoles = &extra
	}

	user, err := s.userService.UpdateUser(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// DeleteUser removes an account. Admin only; self-deletion is rejected.
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	if err := s.userService.DeleteUser(c.UserContext(), s.actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}
