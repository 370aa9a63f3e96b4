package server

import (
	"docflow/internal/models"
	"docflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

// KnowledgeItemPayload is the body for KB create and update.
type KnowledgeItemPayload struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// GetKnowledgeItems lists KB articles, filterable by text query and tag.
func (s *Server) GetKnowledgeItems(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	items, err := s.knowledgeService.ListItems(c.UserContext(),
		c.Query("q"), c.Query("tag"), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"items": items, "count": len(items)})
}

// GetKnowledgeItem returns one KB article.
func (s *Server) GetKnowledgeItem(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	item, err := s.knowledgeService.GetItem(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// CreateKnowledgeItem adds a KB article.
func (s *Server) CreateKnowledgeItem(c *fiber.Ctx) error {
	var payload KnowledgeItemPayload
	if err := c.BodyParser(&payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	item, err := s.knowledgeService.CreateItem(c.UserContext(), service.KnowledgeItemInput{
		Title:   payload.Title,
		Content: payload.Content,
		Tags:    payload.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// UpdateKnowledgeItem replaces a KB article's content.
func (s *Server) UpdateKnowledgeItem(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	var payload KnowledgeItemPayload
	if err := c.BodyParser(&payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	item, err := s.knowledgeService.UpdateItem(c.UserContext(), id, service.KnowledgeItemInput{
		Title:   payload.Title,
		Content: payload.Content,
		Tags:    payload.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// DeleteKnowledgeItem removes a KB article.
func (s *Server) DeleteKnowledgeItem(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	if err := s.knowledgeService.DeleteItem(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}
