package server

import (
	"docflow/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ChatMessagePayload is the body for posting a team chat message.
type ChatMessagePayload struct {
	Body string `json:"body"`
}

// GetChatHistory returns recent team chat messages in chronological order.
func (s *Server) GetChatHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	messages, err := s.chatService.History(c.UserContext(), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages, "count": len(messages)})
}

// PostChatMessage stores a chat message and fans it out to connected clients.
func (s *Server) PostChatMessage(c *fiber.Ctx) error {
	var payload ChatMessagePayload
	if err := c.BodyParser(&payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	msg, err := s.chatService.PostMessage(c.UserContext(), s.actor(c), payload.Body)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
